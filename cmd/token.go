package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/s0up4200/spamwatch/spamwatch"
)

var (
	tokenPermission string
	showSecrets     bool
)

// tokenCmd groups the token administration commands. These require a Root token.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Administer API tokens (Root only)",
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := client.GetTokens(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(formatter.FormatTokenList(tokens))
		return nil
	},
}

var tokenGetCmd = &cobra.Command{
	Use:   "get <token-id>",
	Short: "Show a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenID(args[0])
		if err != nil {
			return err
		}
		tok, err := client.GetToken(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Print(formatter.FormatToken(tok, showSecrets))
		return nil
	},
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create <user-id>",
	Short: "Create a token for a Telegram user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseUserIDs(args)
		if err != nil {
			return err
		}
		perm, err := spamwatch.ParsePermission(tokenPermission)
		if err != nil {
			return err
		}

		tok, err := client.CreateToken(cmd.Context(), ids[0], perm)
		if err != nil {
			return err
		}

		logger.Info().Int("id", tok.ID).Int64("user_id", ids[0]).Str("permission", perm.String()).Msg("Token created")
		fmt.Print(formatter.FormatToken(tok, true))
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:     "delete <token-id>",
	Aliases: []string{"retire"},
	Short:   "Retire a token",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTokenID(args[0])
		if err != nil {
			return err
		}
		if err := client.DeleteToken(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("✓ Retired token #%d\n", id)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenListCmd, tokenGetCmd, tokenCreateCmd, tokenDeleteCmd)

	tokenGetCmd.Flags().BoolVar(&showSecrets, "show-secret", false, "print the full token secret")
	tokenCreateCmd.Flags().StringVar(&tokenPermission, "permission", "User", "token permission (User, Admin, Root)")
}

func parseTokenID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid token ID '%s': must be a positive integer", s)
	}
	return id, nil
}
