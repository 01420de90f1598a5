package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/pipeline"
	"github.com/tribunalwatch/ingest-cli/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect ingestion job history",
	Long:  "Commands for listing, viewing, and reporting on ingestion jobs.",
}

// -- jobs list --

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingestion jobs",
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

		status, _ := cmd.Flags().GetString("status")
		sourceSystem, _ := cmd.Flags().GetString("source")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.JobFilter{
			Status:       model.JobStatus(status),
			SourceSystem: sourceSystem,
			Limit:        limit,
		}
		if since > 0 {
			filter.CreatedAfter = time.Now().Add(-since)
		}

		jobs, err := st.ListJobs(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

// -- jobs show --

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show full details of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}

		asReport, _ := cmd.Flags().GetBool("report")
		if asReport {
			errs, err := st.ListErrors(ctx, job.ID)
			if err != nil {
				return eris.Wrap(err, "jobs show: list errors")
			}
			fmt.Fprint(os.Stdout, pipeline.FormatJobReport(job, errs))
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

// -- jobs errors --

var jobsErrorsCmd = &cobra.Command{
	Use:   "errors <job-id>",
	Short: "List the errors recorded for a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		errs, err := st.ListErrors(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs errors")
		}

		if len(errs) == 0 {
			fmt.Fprintln(os.Stderr, "No errors recorded.")
			return nil
		}

		formatErrorsList(os.Stdout, errs)
		return nil
	},
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by job status (running, completed, partial, failed)")
	jobsListCmd.Flags().String("source", "", "filter by source system")
	jobsListCmd.Flags().Duration("since", 0, "time window (e.g. 24h, 168h); 0 = all")
	jobsListCmd.Flags().Int("limit", 50, "max number of jobs to display")

	jobsShowCmd.Flags().Bool("report", false, "print a formatted report instead of JSON")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsErrorsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// formatJobsList writes a tabular list of jobs to w.
func formatJobsList(out io.Writer, jobs []model.IngestionJob) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tTYPE\tSTATUS\tSTORED\tFAILED\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t----\t------\t------\t------\t-------\t--------")

	for _, j := range jobs {
		dur := ""
		if j.DurationSeconds != nil {
			dur = (time.Duration(*j.DurationSeconds) * time.Second).String()
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(j.ID),
			j.SourceSystem,
			j.JobType,
			j.Status,
			j.CasesStored,
			j.CasesFailed,
			j.StartedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatErrorsList writes a tabular list of ingestion errors to w.
func formatErrorsList(out io.Writer, errs []model.IngestionError) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tTYPE\tSEVERITY\tRETRYABLE\tMESSAGE")
	_, _ = fmt.Fprintln(w, "-----\t----\t--------\t---------\t-------")

	for _, e := range errs {
		msg := e.Message
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			e.Stage, e.ErrorType, e.Severity, e.IsRetryable, msg)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
