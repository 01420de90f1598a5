package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tribunalwatch/ingest-cli/internal/pipeline"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus-wide case statistics",
	Long:  "Recomputes confidence buckets and category counts across every stored case.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		stats, err := pipeline.NewCollector(st).Collect(ctx)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}

		fmt.Fprint(os.Stdout, pipeline.FormatStats(stats))
		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "emit stats as JSON")
	rootCmd.AddCommand(statsCmd)
}
