package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List cases awaiting human review",
	Long:  "Shows pending cases flagged for review, lowest confidence first.",
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

		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Ingest.ReviewPageSize
		}

		cases, err := st.ListReviewQueue(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "review")
		}

		if len(cases) == 0 {
			fmt.Fprintln(os.Stderr, "Review queue is empty.")
			return nil
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(cases)
		}

		formatReviewQueue(os.Stdout, cases)
		return nil
	},
}

func init() {
	reviewCmd.Flags().Int("limit", 0, "max cases to display (default from config)")
	reviewCmd.Flags().Bool("json", false, "emit full case records as JSON")
	rootCmd.AddCommand(reviewCmd)
}

// formatReviewQueue writes a tabular review queue to w.
func formatReviewQueue(out io.Writer, cases []model.TribunalCase) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tTRIBUNAL\tCONFIDENCE\tQUALITY\tNOTES")
	_, _ = fmt.Fprintln(w, "--\t-----\t--------\t----------\t-------\t-----")

	for _, c := range cases {
		title := c.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			truncateID(c.ID),
			title,
			c.TribunalName,
			c.CombinedConfidence,
			c.ExtractionQuality,
			c.ReviewNotes,
		)
	}
	_ = w.Flush()
}
