package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/spamwatch/config"
	"github.com/s0up4200/spamwatch/format"
	"github.com/s0up4200/spamwatch/spamwatch"
)

var (
	cfgFile   string
	cfg       *config.Config
	logger    zerolog.Logger
	client    *spamwatch.Client
	formatter *format.ConsoleFormatter

	// Global flags
	tokenFlag string
	urlFlag   string
	logLevel  string

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "spamwatch",
	Short: "Command line client for the SpamWatch ban list API",
	Long: `spamwatch talks to a SpamWatch API server. It looks up and manages bans,
administers API tokens and checks many Telegram users against the ban list at once.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
}

// SetVersion sets the build information shown by --version
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = fmt.Sprintf("%s (built %s)", v, built)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "API token (overrides config and "+config.EnvPrefix+"_API_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&urlFlag, "url", "", "API base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")

	rootCmd.AddCommand(selfCmd, versionCmd, statsCmd, statusCmd)
	rootCmd.AddCommand(banCmd, tokenCmd, checkCmd)
	rootCmd.AddCommand(updateCmd)
}

// initializeApp loads the configuration and creates the API client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.LoadWithOverrides(cfgFile, config.Overrides{
		Token: tokenFlag,
		URL:   urlFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err = setupLogger(cfg.Logging)
	if err != nil {
		return err
	}

	client, err = newClient()
	if err != nil {
		return fmt.Errorf("failed to create SpamWatch client: %w", err)
	}

	formatter = format.NewConsoleFormatterFor(os.Stdout, cfg.Logging.Color)

	logger.Debug().Str("url", client.BaseURL()).Msg("SpamWatch client ready")
	return nil
}

// newClient builds a client from the loaded configuration. Extra options are
// applied last.
func newClient(extra ...spamwatch.Option) (*spamwatch.Client, error) {
	opts := []spamwatch.Option{
		spamwatch.WithBaseURL(cfg.API.URL),
		spamwatch.WithTimeout(cfg.API.Timeout),
		spamwatch.WithConcurrency(cfg.Check.Concurrency),
		spamwatch.WithLogger(logger),
		spamwatch.WithUserAgent(userAgent()),
	}
	if cfg.Logging.Level == "debug" {
		opts = append(opts, spamwatch.WithHTTPDebug())
	}
	return spamwatch.NewClient(cfg.API.Token, append(opts, extra...)...)
}

func userAgent() string {
	return "spamwatch-cli/" + version
}
