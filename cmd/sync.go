package cmd

import (
	"fmt"
	"log"

	"license-reconciler/core/config"
	"license-reconciler/core/logger"
	"license-reconciler/feature/sync"

	"github.com/spf13/cobra"
)

var (
	syncComprehensive bool
	syncDetect        bool
	syncDryRun        bool
)

// syncCmd runs one reconciliation pass from the command line.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one external license sync",
	Long:  `Fetches the external license population, reconciles it into the internal store, and prints the result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console"})
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		if cfg.External.BaseURL == "" {
			return fmt.Errorf("external.base_url is not configured")
		}

		eng, err := buildEngine(cfg, logg)
		if err != nil {
			return err
		}

		result, err := eng.syncSvc.Run(cmd.Context(), sync.Options{
			Comprehensive:    syncComprehensive,
			DetectDuplicates: syncDetect,
			DryRun:           syncDryRun,
		})
		if err != nil {
			return err
		}

		printResult(result)
		if !result.Success {
			return fmt.Errorf("sync failed: %s", result.Error)
		}
		return nil
	},
}

func printResult(r *sync.Result) {
	fmt.Printf("operation:          %s\n", r.OperationID)
	if r.DryRun {
		fmt.Println("mode:               dry-run (nothing persisted)")
	}
	fmt.Printf("fetched:            %d\n", r.Fetched)
	fmt.Printf("created:            %d\n", r.Created)
	fmt.Printf("updated:            %d\n", r.Updated)
	fmt.Printf("unchanged:          %d\n", r.Unchanged)
	fmt.Printf("failed:             %d\n", r.Failed)
	fmt.Printf("duplicates handled: %d\n", r.DuplicatesHandled)
	for _, f := range r.Failures {
		fmt.Printf("  %s: %s\n", f.AppID, f.Reason)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncComprehensive, "comprehensive", false, "run the full duplicate analysis passes")
	syncCmd.Flags().BoolVar(&syncDetect, "detect-duplicates", false, "enable duplicate detection")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "compute every decision without persisting")
	RootCmd.AddCommand(syncCmd)
}
