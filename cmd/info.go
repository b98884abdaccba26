package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// selfCmd shows the token the client authenticates with
var selfCmd = &cobra.Command{
	Use:   "self",
	Short: "Show the token in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := client.Authenticate(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(formatter.FormatToken(tok, false))
		return nil
	},
}

// versionCmd shows the server version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the API server version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := client.Version(cmd.Context())
		if err != nil {
			return err
		}
		if !v.Supported() {
			logger.Warn().Str("server", v.String()).Msg("Server version is not supported by this client")
		}
		fmt.Print(formatter.FormatVersion(v))
		return nil
	},
}

// statsCmd shows ban list statistics
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ban list statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := client.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(formatter.FormatStats(stats))
		return nil
	},
}

// statusCmd fetches token, version and statistics concurrently
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show token, server version and statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		async := client.Async()

		selfCall := async.Authenticate(ctx)
		versionCall := async.Version(ctx)
		statsCall := async.Stats(ctx)

		tok, err := selfCall.Wait(ctx)
		if err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
		v, err := versionCall.Wait(ctx)
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		stats, err := statsCall.Wait(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Connected to %s\n", client.BaseURL())
		fmt.Print(formatter.FormatVersion(v))
		fmt.Print(formatter.FormatStats(stats))
		fmt.Print(formatter.FormatToken(tok, false))
		return nil
	},
}
