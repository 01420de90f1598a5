package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/store"
)

// AuditLogger writes append-only failure records. Recording an error must
// never take down the pipeline itself: a failed write is logged and dropped.
type AuditLogger struct {
	store store.Store
}

// NewAuditLogger creates an AuditLogger backed by the given store.
func NewAuditLogger(st store.Store) *AuditLogger {
	return &AuditLogger{store: st}
}

// ErrorRecord is one failure observation. Zero-value fields are defaulted:
// Type to "unknown_error", Severity to "error", Retryable to true.
type ErrorRecord struct {
	JobID     string
	RawCaseID string
	Stage     model.ErrorStage
	Type      string
	Message   string
	SourceURL string
	Severity  model.ErrorSeverity
	Retryable *bool
}

// Record persists one failure observation with defaults applied.
func (a *AuditLogger) Record(ctx context.Context, r ErrorRecord) {
	errType := r.Type
	if errType == "" {
		errType = "unknown_error"
	}
	severity := r.Severity
	if severity == "" {
		severity = model.SeverityError
	}
	retryable := true
	if r.Retryable != nil {
		retryable = *r.Retryable
	}

	e := &model.IngestionError{
		JobID:       r.JobID,
		RawCaseID:   r.RawCaseID,
		Stage:       r.Stage,
		ErrorType:   errType,
		Message:     r.Message,
		SourceURL:   r.SourceURL,
		Severity:    severity,
		IsRetryable: retryable,
	}

	if err := a.store.LogError(ctx, e); err != nil {
		zap.L().Error("auditlog: failed to record ingestion error",
			zap.String("job_id", r.JobID),
			zap.String("stage", string(r.Stage)),
			zap.String("original_message", r.Message),
			zap.Error(err),
		)
	}
}

// Bool returns a pointer to v, for setting ErrorRecord.Retryable.
func Bool(v bool) *bool { return &v }
