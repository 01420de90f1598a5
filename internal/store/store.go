package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

// JobFilter specifies criteria for listing ingestion jobs.
type JobFilter struct {
	Status       model.JobStatus `json:"status,omitempty"`
	SourceSystem string          `json:"source_system,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, sourceSystem string, jobType model.JobType, sourceConfig json.RawMessage) (*model.IngestionJob, error)
	GetJob(ctx context.Context, jobID string) (*model.IngestionJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.IngestionJob, error)
	UpdateJobMetrics(ctx context.Context, jobID string, metrics model.JobMetrics) error
	UpdateJobCheckpoint(ctx context.Context, jobID, lastURL string, checkpoint json.RawMessage) error
	// IncrementBucketCount atomically bumps one quality counter. This is a
	// hard dependency of the persister: there is no non-atomic fallback.
	IncrementBucketCount(ctx context.Context, jobID string, bucket model.ConfidenceBucket) error
	// CompleteJob finalizes a job. Valid only while the job is running; a
	// second call fails rather than overwriting finalization fields.
	CompleteJob(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error

	// Cases
	// InsertCase writes a case row, relying on the source_url uniqueness
	// constraint for duplicate detection. On conflict it returns the existing
	// row's id with inserted=false and mutates nothing.
	InsertCase(ctx context.Context, c *model.TribunalCase) (id string, inserted bool, err error)
	GetCase(ctx context.Context, id string) (*model.TribunalCase, error)
	GetCaseBySourceURL(ctx context.Context, sourceURL string) (*model.TribunalCase, error)
	// ListReviewQueue returns pending cases flagged for review, lowest
	// confidence first.
	ListReviewQueue(ctx context.Context, limit int) ([]model.TribunalCase, error)
	ListCaseSummaries(ctx context.Context) ([]model.CaseSummary, error)
	// ProcessedURLs returns the source URLs already stored for a source
	// system within the lookback window, for resume support.
	ProcessedURLs(ctx context.Context, sourceSystem string, since time.Time) (map[string]bool, error)

	// Errors
	LogError(ctx context.Context, e *model.IngestionError) error
	ListErrors(ctx context.Context, jobID string) ([]model.IngestionError, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// BulkCaseWriter is implemented by backends that support a fast backfill
// path. Duplicate source URLs are skipped, not errors; the returned count is
// rows actually written.
type BulkCaseWriter interface {
	BulkInsertCases(ctx context.Context, cases []model.TribunalCase) (int64, error)
}
