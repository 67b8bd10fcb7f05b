package cmd

import (
	"fmt"
	"log"
	"strings"

	"license-reconciler/core/config"
	"license-reconciler/core/logger"

	"github.com/spf13/cobra"
)

var (
	dupDBA       string
	dupEmail     string
	dupThreshold int
)

// duplicatesCmd scans the internal store for duplicates of a probe.
var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Scan stored licenses for duplicates of a business",
	Long:  `Scores a business name and email against every stored license and prints likely duplicates, best first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if dupDBA == "" && dupEmail == "" {
			return fmt.Errorf("at least one of --dba or --email is required")
		}

		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&logger.Config{Level: "warn", Format: "console"})
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		eng, err := buildEngine(cfg, logg)
		if err != nil {
			return err
		}

		matches, err := eng.licSvc.CheckDuplicates(cmd.Context(), dupDBA, dupEmail, dupThreshold)
		if err != nil {
			return err
		}

		if len(matches) == 0 {
			fmt.Println("no potential duplicates found")
			return nil
		}
		for _, m := range matches {
			fmt.Printf("license %s  score=%d  reasons: %s\n",
				m.Members[0].ID, m.Score, strings.Join(m.MatchReasons, ", "))
		}
		return nil
	},
}

func init() {
	duplicatesCmd.Flags().StringVar(&dupDBA, "dba", "", "business name to probe")
	duplicatesCmd.Flags().StringVar(&dupEmail, "email", "", "email to probe")
	duplicatesCmd.Flags().IntVar(&dupThreshold, "threshold", 0, "minimum confidence score (default: review threshold)")
	RootCmd.AddCommand(duplicatesCmd)
}
