package cmd

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/s0up4200/spamwatch/filter"
	"github.com/s0up4200/spamwatch/format"
	"github.com/s0up4200/spamwatch/spamwatch"
)

var (
	filterExpr string
	preset     string
	banReason  string
	banMessage string
	idsFile    string
	dryRun     bool
	noConfirm  bool
)

// banCmd groups the ban list commands
var banCmd = &cobra.Command{
	Use:   "ban",
	Short: "Look up and manage bans",
}

var banGetCmd = &cobra.Command{
	Use:   "get <user-id>",
	Short: "Show the ban of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseUserIDs(args)
		if err != nil {
			return err
		}

		ban, err := client.GetBan(cmd.Context(), ids[0])
		if errors.Is(err, spamwatch.ErrNotFound) {
			fmt.Printf("User %d is not banned\n", ids[0])
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Print(formatter.FormatBan(ban))
		return nil
	},
}

var banAddCmd = &cobra.Command{
	Use:   "add <user-id>...",
	Short: "Ban one or more users",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseUserIDs(args)
		if err != nil {
			return err
		}
		if banReason == "" {
			return fmt.Errorf("--reason is required")
		}

		bans := make([]spamwatch.BanRequest, len(ids))
		for i, id := range ids {
			bans[i] = spamwatch.BanRequest{UserID: id, Reason: banReason, Message: banMessage}
		}

		if dryRun {
			fmt.Printf("[DRY RUN] Would ban %d %s for %q\n", len(bans), format.Plural(len(bans), "user"), banReason)
			return nil
		}

		if err := client.AddBans(cmd.Context(), bans); err != nil {
			return err
		}

		logger.Info().Int("count", len(bans)).Str("reason", banReason).Msg("Bans added")
		fmt.Printf("✓ Banned %d %s\n", len(bans), format.Plural(len(bans), "user"))
		return nil
	},
}

var banDeleteCmd = &cobra.Command{
	Use:     "delete <user-id>...",
	Aliases: []string{"unban"},
	Short:   "Lift the ban of one or more users",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := collectUserIDs(args, idsFile)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no user IDs given")
		}

		if dryRun {
			fmt.Printf("[DRY RUN] Would unban %d %s\n", len(ids), format.Plural(len(ids), "user"))
			return nil
		}

		if len(ids) == 1 {
			if err := client.DeleteBan(cmd.Context(), ids[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Unbanned user %d\n", ids[0])
			return nil
		}

		result := client.DeleteBans(cmd.Context(), ids)
		fmt.Print(formatter.FormatDeleteResult(result))
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d of %d unbans failed", len(result.Failed), result.Requested)
		}
		return nil
	},
}

var banListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bans matching a filter",
	Long: `List the bans of the ban list. Bans can be narrowed with an expression, e.g.

  spamwatch ban list --filter 'contains(Reason, "spam") and Date > monthsAgo(1)'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bans, err := filteredBans(cmd)
		if err != nil {
			return err
		}
		fmt.Print(formatter.FormatBanList(bans))
		return nil
	},
}

var banPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Lift all bans matching a filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if filterExpr == "" && preset == "" {
			return fmt.Errorf("purge requires --filter or --preset")
		}

		bans, err := filteredBans(cmd)
		if err != nil {
			return err
		}
		if len(bans) == 0 {
			fmt.Println("No bans found matching the filter criteria.")
			return nil
		}

		fmt.Print(formatter.FormatBanList(bans))

		if dryRun {
			fmt.Printf("[DRY RUN] Would unban %d %s\n", len(bans), format.Plural(len(bans), "user"))
			return nil
		}

		if !noConfirm {
			ok, err := confirm(os.Stdin, fmt.Sprintf("Unban %d %s?", len(bans), format.Plural(len(bans), "user")))
			if err != nil {
				return err
			}
			if !ok {
				logger.Info().Msg("Purge cancelled")
				return nil
			}
		}

		ids := make([]int64, len(bans))
		for i, ban := range bans {
			ids[i] = ban.UserID
		}

		result := client.DeleteBans(cmd.Context(), ids)
		fmt.Print(formatter.FormatDeleteResult(result))
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d of %d unbans failed", len(result.Failed), result.Requested)
		}
		return nil
	},
}

var banPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Count the bans matched by each configured preset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Filter.Presets) == 0 {
			fmt.Println("No presets configured")
			return nil
		}

		bans, err := client.GetBans(cmd.Context())
		if err != nil {
			return err
		}

		results, err := filter.EvaluateFilters(cmd.Context(), cfg.Filter.Presets, bans)
		if err != nil {
			return err
		}

		for _, name := range slices.Sorted(maps.Keys(cfg.Filter.Presets)) {
			fmt.Printf("%-20s %6d  %s\n", name, len(results[name]), cfg.Filter.Presets[name])
		}
		return nil
	},
}

var banIDsCmd = &cobra.Command{
	Use:   "ids",
	Short: "Print the IDs of all banned users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := client.GetBanIDs(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	banCmd.AddCommand(banGetCmd, banAddCmd, banDeleteCmd, banListCmd, banPurgeCmd, banPresetsCmd, banIDsCmd)

	banAddCmd.Flags().StringVarP(&banReason, "reason", "r", "", "ban reason")
	banAddCmd.Flags().StringVarP(&banMessage, "message", "m", "", "message that triggered the ban")
	banAddCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would be banned")

	banDeleteCmd.Flags().StringVar(&idsFile, "file", "", "read user IDs from a file, one per line (- for stdin)")
	banDeleteCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would be unbanned")

	for _, c := range []*cobra.Command{banListCmd, banPurgeCmd} {
		c.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
		c.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	}
	banPurgeCmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "show what would be unbanned")
	banPurgeCmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip confirmation prompt")
}

// filteredBans fetches the ban list and applies the selected filter
func filteredBans(cmd *cobra.Command) ([]spamwatch.Ban, error) {
	expr, err := getFilterExpression()
	if err != nil {
		return nil, err
	}

	bans, err := client.GetBans(cmd.Context())
	if err != nil {
		return nil, err
	}
	if expr == "" {
		return bans, nil
	}

	logger.Debug().Str("filter", expr).Int("bans", len(bans)).Msg("Filtering bans")

	compiled, err := filter.CompileFilter(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	evaluator := filter.NewConcurrentEvaluator()
	defer func() {
		//nolint:errcheck
		evaluator.Stop(cmd.Context())
	}()

	return evaluator.Evaluate(cmd.Context(), compiled, bans)
}

// getFilterExpression determines the filter expression to use.
// Priority: command line filter > preset > configured default.
func getFilterExpression() (string, error) {
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if expr, ok := cfg.Filter.Presets[preset]; ok {
			return expr, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return cfg.Filter.Default, nil
}
