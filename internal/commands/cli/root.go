// Package cli provides the CLI command structure for go_fle.
package cli

import (
	"fmt"

	"github.com/andrei-cloud/go_fle/internal/config"
	"github.com/andrei-cloud/go_fle/internal/logging"
	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCommand creates and returns the root command with all subcommands.
func NewRootCommand() (*cobra.Command, error) {
	config.ResetFlags()

	rootCmd := &cobra.Command{
		Use:   "go_fle",
		Short: "Field level encryption client and PIN protection utilities",
		Long: `A client for APIs protecting payment card fields with hybrid RSA/AES
envelope encryption, with ISO 9564-1 PIN block protection, a TCP PIN
encryption service and an HTTP peer simulator.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			// Initialize configuration before running any command.
			if err := config.Initialize(cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg := config.Get()

			return logging.Setup(cfg.Log.Level, cfg.Log.Format)
		},
	}

	// Add persistent flags that affect all commands.
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is $HOME/.go_fle/config.yaml)")

	// Add global flags that can override config file settings.
	rootCmd.PersistentFlags().
		String("log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "logging format (human, json)")

	config.BindFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	config.BindFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Register all commands.
	if err := RegisterCommands(rootCmd); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	return rootCmd, nil
}
