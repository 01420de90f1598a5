package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

// FormatJobReport generates a human-readable summary of a finished job.
func FormatJobReport(job *model.IngestionJob, errs []model.IngestionError) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Ingestion Report: %s\n", job.SourceSystem)
	fmt.Fprintf(&b, "Job: %s (%s)\n", job.ID, job.JobType)
	fmt.Fprintf(&b, "Status: %s\n", job.Status)
	if job.DurationSeconds != nil {
		fmt.Fprintf(&b, "Duration: %ds\n", *job.DurationSeconds)
	}
	b.WriteString("\n")

	b.WriteString("## Progress\n")
	fmt.Fprintf(&b, "- Discovered: %d\n", job.CasesDiscovered)
	fmt.Fprintf(&b, "- Fetched: %d\n", job.CasesFetched)
	fmt.Fprintf(&b, "- Classified: %d\n", job.CasesClassified)
	fmt.Fprintf(&b, "- Stored: %d\n", job.CasesStored)
	fmt.Fprintf(&b, "- Failed: %d\n", job.CasesFailed)
	b.WriteString("\n")

	b.WriteString("## Confidence\n")
	if job.AvgConfidenceScore != nil {
		fmt.Fprintf(&b, "- Average: %.2f\n", *job.AvgConfidenceScore)
	}
	fmt.Fprintf(&b, "- High (>= %.1f): %d\n", HighConfidenceThreshold, job.HighConfidenceCount)
	fmt.Fprintf(&b, "- Medium (>= %.1f): %d\n", MediumConfidenceThreshold, job.MediumConfidenceCount)
	fmt.Fprintf(&b, "- Low: %d\n", job.LowConfidenceCount)
	b.WriteString("\n")

	if job.ErrorMessage != "" {
		b.WriteString("## Result\n")
		fmt.Fprintf(&b, "%s\n\n", job.ErrorMessage)
	}

	if len(errs) > 0 {
		b.WriteString("## Errors\n")
		for _, e := range errs {
			fmt.Fprintf(&b, "- [%s/%s] %s: %s", e.Severity, e.Stage, e.ErrorType, e.Message)
			if e.SourceURL != "" {
				fmt.Fprintf(&b, " (%s)", e.SourceURL)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatStats generates a human-readable corpus rollup.
func FormatStats(stats *Stats) string {
	var b strings.Builder

	b.WriteString("# Corpus Statistics\n")
	fmt.Fprintf(&b, "- Total cases: %d\n", stats.TotalCases)
	fmt.Fprintf(&b, "- Average confidence: %.2f\n", stats.AvgConfidence)
	fmt.Fprintf(&b, "- High confidence: %d\n", stats.HighCount)
	fmt.Fprintf(&b, "- Medium confidence: %d\n", stats.MediumCount)
	fmt.Fprintf(&b, "- Low confidence: %d\n", stats.LowCount)
	b.WriteString("\n")

	if len(stats.ByCategory) > 0 {
		b.WriteString("## By Category\n")
		categories := make([]string, 0, len(stats.ByCategory))
		for c := range stats.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(&b, "- %s: %d\n", c, stats.ByCategory[c])
		}
		b.WriteString("\n")
	}

	return b.String()
}
