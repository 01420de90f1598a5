package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/mock"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

func TestAuditLogger_AppliesDefaults(t *testing.T) {
	st := &mockStore{}
	a := NewAuditLogger(st)

	st.On("LogError", mock.Anything, mock.MatchedBy(func(e *model.IngestionError) bool {
		return e.ErrorType == "unknown_error" &&
			e.Severity == model.SeverityError &&
			e.IsRetryable &&
			!e.Resolved &&
			e.RetryCount == 0
	})).Return(nil)

	a.Record(context.Background(), ErrorRecord{
		JobID:   "job-1",
		Stage:   model.StageFetch,
		Message: "something broke",
	})
	st.AssertExpectations(t)
}

func TestAuditLogger_ExplicitFieldsPreserved(t *testing.T) {
	st := &mockStore{}
	a := NewAuditLogger(st)

	st.On("LogError", mock.Anything, mock.MatchedBy(func(e *model.IngestionError) bool {
		return e.ErrorType == "rate_limited" &&
			e.Severity == model.SeverityWarning &&
			!e.IsRetryable &&
			e.SourceURL == "https://example.org/9"
	})).Return(nil)

	a.Record(context.Background(), ErrorRecord{
		JobID:     "job-1",
		Stage:     model.StageFetch,
		Type:      "rate_limited",
		Message:   "429 from source",
		SourceURL: "https://example.org/9",
		Severity:  model.SeverityWarning,
		Retryable: Bool(false),
	})
	st.AssertExpectations(t)
}

func TestAuditLogger_WriteFailureIsSwallowed(t *testing.T) {
	st := &mockStore{}
	a := NewAuditLogger(st)

	st.On("LogError", mock.Anything, mock.Anything).Return(eris.New("disk full"))

	// Recording must never propagate a failure.
	a.Record(context.Background(), ErrorRecord{
		JobID:   "job-1",
		Stage:   model.StageStorage,
		Message: "original failure",
	})
	st.AssertExpectations(t)
}
