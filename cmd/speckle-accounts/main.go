package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/app"
	"github.com/ternarybob/speckle-accounts/internal/common"
)

var (
	// Command-line flags
	configFiles  []string // Multiple --config flags supported
	logLevel     string
	callbackPort int

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "speckle-accounts",
	Short:         "Manage Speckle accounts and resolve stream urls",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().IntVar(&callbackPort, "callback-port", 0, "Login callback port (overrides config)")

	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// Ctrl+C cancels a pending login or refresh
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error().Err(err).Msg("Command failed")
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence in order:
// config (defaults -> files -> env), flag overrides, logger, banner
func loadConfig() error {
	if len(configFiles) == 0 {
		// Check current directory first
		if _, err := os.Stat("speckle-accounts.toml"); err == nil {
			configFiles = append(configFiles, "speckle-accounts.toml")
		} else if _, err := os.Stat("deployments/local/speckle-accounts.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/speckle-accounts.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, logLevel, callbackPort)

	logger = common.InitLogger(config)
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Application configuration loaded")

	return nil
}

// newApp builds the application for commands that need services
func newApp(opts ...app.Option) (*app.App, error) {
	application, err := app.New(config, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}
