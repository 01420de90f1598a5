package model

import (
	"encoding/json"
	"time"
)

// JobType describes how an ingestion job was initiated.
type JobType string

const (
	JobTypeManual    JobType = "manual"
	JobTypeScheduled JobType = "scheduled"
	JobTypeRetry     JobType = "retry"
	JobTypeBackfill  JobType = "backfill"
)

// JobStatus represents the lifecycle state of an ingestion job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusPartial   JobStatus = "partial"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is a final state. Only pending and
// running jobs may still be mutated.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusPartial, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// ValidFinal reports whether the status is an acceptable finalization value.
// A job finishes as completed, partial, or failed; cancellation is set by an
// external operator, never by the pipeline itself.
func (s JobStatus) ValidFinal() bool {
	return s == JobStatusCompleted || s == JobStatusPartial || s == JobStatusFailed
}

// IngestionJob is one record per pipeline run.
type IngestionJob struct {
	ID string `json:"id"`

	// Configuration.
	JobType      JobType         `json:"job_type"`
	SourceSystem string          `json:"source_system"`
	SourceConfig json.RawMessage `json:"source_config,omitempty"`

	// Lifecycle.
	Status          JobStatus  `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`

	// Progress counters. Monotonically non-decreasing while running.
	CasesDiscovered int `json:"cases_discovered"`
	CasesFetched    int `json:"cases_fetched"`
	CasesClassified int `json:"cases_classified"`
	CasesStored     int `json:"cases_stored"`
	CasesFailed     int `json:"cases_failed"`

	// Quality counters.
	AvgConfidenceScore    *float64 `json:"avg_confidence_score,omitempty"`
	HighConfidenceCount   int      `json:"high_confidence_count"`
	MediumConfidenceCount int      `json:"medium_confidence_count"`
	LowConfidenceCount    int      `json:"low_confidence_count"`

	// Resume state.
	LastProcessedURL string          `json:"last_processed_url,omitempty"`
	CheckpointData   json.RawMessage `json:"checkpoint_data,omitempty"`

	// Error summary.
	ErrorMessage string          `json:"error_message,omitempty"`
	ErrorDetails json.RawMessage `json:"error_details,omitempty"`

	// Execution context.
	TriggeredBy     string `json:"triggered_by,omitempty"`
	PipelineVersion string `json:"pipeline_version,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobMetrics carries a partial metrics update. Nil fields are left untouched;
// set fields are written as new absolute values.
type JobMetrics struct {
	CasesDiscovered       *int     `json:"cases_discovered,omitempty"`
	CasesFetched          *int     `json:"cases_fetched,omitempty"`
	CasesClassified       *int     `json:"cases_classified,omitempty"`
	CasesStored           *int     `json:"cases_stored,omitempty"`
	CasesFailed           *int     `json:"cases_failed,omitempty"`
	HighConfidenceCount   *int     `json:"high_confidence_count,omitempty"`
	MediumConfidenceCount *int     `json:"medium_confidence_count,omitempty"`
	LowConfidenceCount    *int     `json:"low_confidence_count,omitempty"`
	AvgConfidenceScore    *float64 `json:"avg_confidence_score,omitempty"`
	LastProcessedURL      *string  `json:"last_processed_url,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (m JobMetrics) Empty() bool {
	return m.CasesDiscovered == nil && m.CasesFetched == nil &&
		m.CasesClassified == nil && m.CasesStored == nil && m.CasesFailed == nil &&
		m.HighConfidenceCount == nil && m.MediumConfidenceCount == nil &&
		m.LowConfidenceCount == nil && m.AvgConfidenceScore == nil &&
		m.LastProcessedURL == nil
}

// Int returns a pointer to v, for building JobMetrics literals.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for building JobMetrics literals.
func Float(v float64) *float64 { return &v }

// Str returns a pointer to v, for building JobMetrics literals.
func Str(v string) *string { return &v }
