package scangate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/redactyl/scangate/internal/report"
)

var (
	flagConfig        string
	flagEnvFile       string
	flagVerbose       bool
	flagNoColor       bool
	flagNoUpdateCheck bool

	version = "0.1.0"

	logger = slog.Default()
)

// rootCmd is the base Cobra command for the scangate CLI.
var rootCmd = &cobra.Command{
	Use:   "scangate",
	Short: "Gate builds on web application scan results",
	Long: "scangate drives an OWASP ZAP instance through spidering and active scanning, " +
		"triages the alerts and fails when unaccepted risk remains.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the scangate CLI. It should be called by the main package.
// Exit codes: 0 pass, 1 risk gate failed, 2 any other error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exceeded *report.RiskThresholdExceeded
	if errors.As(err, &exceeded) {
		return 1
	}
	return 2
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file (default: .scangate.yml, then $XDG_CONFIG_HOME/scangate/config.yml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file providing SCANGATE_API_KEY")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging (poll progress, discovered URLs)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable update check")
}

func setup(cmd *cobra.Command, _ []string) error {
	logger = newLogger(cmd.ErrOrStderr(), flagVerbose)
	slog.SetDefault(logger)
	if flagEnvFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(flagEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", flagEnvFile, err)
		}
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
