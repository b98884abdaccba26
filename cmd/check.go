package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/spamwatch/format"
	"github.com/s0up4200/spamwatch/spamwatch"
)

var (
	checkFile  string
	failOnBan  bool
	checkLimit int
)

// checkCmd checks many users against the ban list
var checkCmd = &cobra.Command{
	Use:   "check [user-id...]",
	Short: "Check users against the ban list",
	Long: `Look up the ban status of many users concurrently. IDs are taken from the
arguments and from --file (one per line, - for stdin).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := collectUserIDs(args, checkFile)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no user IDs given")
		}

		c := client
		if checkLimit > 0 {
			c, err = newClient(spamwatch.WithConcurrency(checkLimit))
			if err != nil {
				return err
			}
		}

		logger.Info().Int("users", len(ids)).Msg("Checking users")
		start := time.Now()

		result, err := c.CheckUsers(cmd.Context(), ids)
		fmt.Print(formatter.FormatCheckResult(result))

		var rateLimited *spamwatch.TooManyRequestsError
		if errors.As(err, &rateLimited) {
			return fmt.Errorf("rate limited, retry in %s: %w", rateLimited.RetryIn(time.Now()).Round(time.Second), err)
		}
		if err != nil {
			return err
		}

		logger.Info().
			Int("banned", len(result.Banned)).
			Int("clean", len(result.Clean)).
			Int("failed", len(result.Failed)).
			Dur("took", time.Since(start)).
			Msg("Check finished")

		if len(result.Failed) > 0 {
			return fmt.Errorf("%d %s could not be checked", len(result.Failed), format.Plural(len(result.Failed), "user"))
		}
		if failOnBan && len(result.Banned) > 0 {
			return fmt.Errorf("%d banned %s found", len(result.Banned), format.Plural(len(result.Banned), "user"))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFile, "file", "", "read user IDs from a file, one per line (- for stdin)")
	checkCmd.Flags().BoolVar(&failOnBan, "fail-on-ban", false, "exit non-zero when a banned user is found")
	checkCmd.Flags().IntVarP(&checkLimit, "concurrency", "c", 0, "concurrent lookups (default from config)")
}
