package cmd

import (
	"fmt"
	"os"

	"license-reconciler/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "license-reconciler",
	Short: "External License Reconciliation Service",
	Long: `License Reconciler keeps the internal license store in step with the
third-party licensing system: it fetches the external population, detects
duplicate business entities, and reconciles each record with selective
field ownership.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format for CLI error reporting; the server commands
		// configure their own logger.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
