package cmd

import (
	"fmt"
	"os"

	"yampd/config"
	"yampd/logger"

	"github.com/spf13/cobra"
)

// cfg is loaded once per invocation, before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "yampd",
	Short: "yampd is a personal media-serving daemon.",
	Long: `yampd indexes a local audio library into MySQL and plays it,
controlled over an HTTP API. Without a subcommand it runs the daemon.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		return logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   cfg.LogCompress,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
