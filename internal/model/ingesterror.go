package model

import "time"

// ErrorStage is the pipeline phase at which a failure originated.
type ErrorStage string

const (
	StageDiscovery      ErrorStage = "discovery"
	StageFetch          ErrorStage = "fetch"
	StageExtraction     ErrorStage = "extraction"
	StageClassification ErrorStage = "classification"
	StageStorage        ErrorStage = "storage"
)

// ErrorSeverity grades an ingestion error.
type ErrorSeverity string

const (
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// IngestionError is one append-only audit row per observed failure. The
// pipeline never overwrites these; resolution and retry are owned by an
// external operator workflow.
type IngestionError struct {
	ID        string `json:"id"`
	JobID     string `json:"ingestion_job_id"`
	RawCaseID string `json:"raw_case_id,omitempty"`

	Stage     ErrorStage `json:"error_stage"`
	ErrorType string     `json:"error_type"`
	Message   string     `json:"error_message"`
	SourceURL string     `json:"source_url,omitempty"`

	Severity    ErrorSeverity `json:"severity"`
	IsRetryable bool          `json:"is_retryable"`
	RetryCount  int           `json:"retry_count"`
	Resolved    bool          `json:"resolved"`

	CreatedAt time.Time `json:"created_at"`
}
