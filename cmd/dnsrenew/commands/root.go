package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrled/suns/dnsrenew/internal/logger"
)

var rootFlags struct {
	LogLevel  string
	LogFormat string
}

var rootCmd = &cobra.Command{
	Use:   "dnsrenew",
	Short: "dnsrenew answers ACME DNS-01 challenges and renews certificates",
	Long: `A command-line tool for publishing ACME DNS-01 challenge records through a
DNS hosting provider, verifying that they propagate, and issuing certificates.

Settings are read from the environment (and a .env file in the working
directory); flags override them.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := logger.DefaultConfig()
		if rootFlags.LogLevel != "" {
			cfg.Level = rootFlags.LogLevel
		}
		if rootFlags.LogFormat != "" {
			cfg.Format = rootFlags.LogFormat
		}
		cfg.Output = os.Stderr
		log := logger.WithExecutable(logger.NewLogger(cfg), "dnsrenew")
		logger.SetDefault(log)
		log.Debug("Starting command", slog.String("command", cmd.CommandPath()))
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.LogLevel, "log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.LogFormat, "log-format", "", "Log format: json or text (default from LOG_FORMAT)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "challenge", Title: "Challenge Commands:"},
		&cobra.Group{ID: "store", Title: "Certificate Commands:"},
	)
	rootCmd.AddCommand(presentCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(zoneCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(issueCmd)
}
