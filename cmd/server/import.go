package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	importQuery string
	importMax   int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import and translate the latest arXiv articles once",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if importQuery != "" {
			cfg.Import.Query = importQuery
		}
		if importMax > 0 {
			cfg.Import.MaxResults = importMax
		}

		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.importer().Run(cmd.Context())
		if err != nil {
			return err
		}
		log.Info(fmt.Sprintf("Imported %d articles", n))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importQuery, "query", "", "arXiv search terms (overrides import.query)")
	importCmd.Flags().IntVar(&importMax, "max", 0, "maximum number of articles (overrides import.max_results)")
	rootCmd.AddCommand(importCmd)
}
