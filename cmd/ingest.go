package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/pipeline"
	"github.com/tribunalwatch/ingest-cli/internal/source"
	"github.com/tribunalwatch/ingest-cli/pkg/canlii"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run an ingestion job against a tribunal source",
	Long:  "Discovers decisions from CanLII (or a JSONL dump), classifies them, and stores new cases. Duplicate source URLs resolve to the existing case.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		database, _ := cmd.Flags().GetString("database")
		input, _ := cmd.Flags().GetString("input")
		jobType, _ := cmd.Flags().GetString("type")
		since, _ := cmd.Flags().GetString("since")
		limit, _ := cmd.Flags().GetInt("limit")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		resume, _ := cmd.Flags().GetBool("resume")
		report, _ := cmd.Flags().GetBool("report")

		if database == "" && input == "" {
			return eris.New("either --database or --input is required")
		}
		if database != "" && input != "" {
			return eris.New("--database and --input are mutually exclusive")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var (
			discoverer   pipeline.Discoverer
			fetcher      pipeline.Fetcher
			sourceSystem string
			sourceConfig []byte
		)
		switch {
		case input != "":
			fs, err := source.NewFileSource(input)
			if err != nil {
				return err
			}
			discoverer, fetcher = fs, fs
			sourceSystem = "file"
			sourceConfig = fmt.Appendf(nil, `{"input":%q}`, input)
		default:
			client := canlii.NewClient(cfg.CanLII.Key,
				canlii.WithBaseURL(cfg.CanLII.BaseURL),
				canlii.WithLanguage(cfg.CanLII.Language),
			)
			opts := []source.CanLIIOption{source.WithPageSize(cfg.CanLII.PageSize)}
			if since != "" {
				opts = append(opts, source.WithDecidedAfter(since))
			}
			cs := source.NewCanLIISource(client, database, opts...)
			discoverer, fetcher = cs, cs
			sourceSystem = sourceSystemFor(database)
			sourceConfig = fmt.Appendf(nil, `{"database":%q,"since":%q}`, database, since)
		}

		runner := pipeline.NewRunner(st, discoverer, fetcher, initClassifier())
		job, err := runner.Run(ctx, pipeline.Options{
			SourceSystem:    sourceSystem,
			JobType:         model.JobType(jobType),
			SourceConfig:    sourceConfig,
			Limit:           limit,
			DryRun:          dryRun,
			Resume:          resume,
			ResumeWindow:    time.Duration(cfg.Ingest.ProcessedLookbackDays) * 24 * time.Hour,
			Concurrency:     cfg.Ingest.FetchConcurrency,
			RatePerSecond:   float64(cfg.Ingest.RatePerSecond),
			CheckpointEvery: cfg.Ingest.CheckpointEvery,
		})
		if err != nil {
			return err
		}

		if report {
			errs, err := st.ListErrors(ctx, job.ID)
			if err != nil {
				return eris.Wrap(err, "ingest: list errors for report")
			}
			fmt.Fprint(os.Stdout, pipeline.FormatJobReport(job, errs))
			return nil
		}

		fmt.Fprintf(os.Stdout, "job %s finished: %s (stored %d, failed %d)\n",
			job.ID, job.Status, job.CasesStored, job.CasesFailed)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("database", "", "CanLII database id (onhrt, chrt, bchrt, qctdp, ...)")
	ingestCmd.Flags().String("input", "", "JSONL document dump to ingest instead of CanLII")
	ingestCmd.Flags().String("type", "manual", "job type (manual, scheduled, retry)")
	ingestCmd.Flags().String("since", "", "only discover decisions after this date (YYYY-MM-DD)")
	ingestCmd.Flags().Int("limit", 0, "max cases to process (0 = no cap)")
	ingestCmd.Flags().Bool("dry-run", false, "classify but do not store")
	ingestCmd.Flags().Bool("resume", false, "skip URLs already stored in the lookback window")
	ingestCmd.Flags().Bool("report", false, "print a full job report instead of a summary line")
	rootCmd.AddCommand(ingestCmd)
}
