package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/store"
)

// Tracker manages ingestion job lifecycle records. It holds no job state of
// its own: every method takes the job id explicitly, so concurrent jobs can
// share one Tracker.
type Tracker struct {
	store store.Store
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st}
}

// Start creates a new job record in the running state and returns it.
func (t *Tracker) Start(ctx context.Context, sourceSystem string, jobType model.JobType, sourceConfig json.RawMessage) (*model.IngestionJob, error) {
	job, err := t.store.CreateJob(ctx, sourceSystem, jobType, sourceConfig)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: start job")
	}
	zap.L().Info("tracker: job started",
		zap.String("job_id", job.ID),
		zap.String("source_system", sourceSystem),
		zap.String("job_type", string(jobType)),
	)
	return job, nil
}

// RecordMetrics applies a partial metrics update. A failed update is logged
// and swallowed: losing one progress sample must not abort the run.
func (t *Tracker) RecordMetrics(ctx context.Context, jobID string, metrics model.JobMetrics) {
	if metrics.Empty() {
		return
	}
	if err := t.store.UpdateJobMetrics(ctx, jobID, metrics); err != nil {
		zap.L().Warn("tracker: failed to update job metrics",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}

// Checkpoint records resume state. Like metrics, checkpoint failures are
// logged and swallowed.
func (t *Tracker) Checkpoint(ctx context.Context, jobID, lastURL string, data json.RawMessage) {
	if err := t.store.UpdateJobCheckpoint(ctx, jobID, lastURL, data); err != nil {
		zap.L().Warn("tracker: failed to update job checkpoint",
			zap.String("job_id", jobID),
			zap.String("last_url", lastURL),
			zap.Error(err),
		)
	}
}

// Finish finalizes the job. Unlike metrics updates this error is returned:
// a job left dangling in the running state is an operational problem the
// caller needs to know about.
func (t *Tracker) Finish(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error {
	if err := t.store.CompleteJob(ctx, jobID, status, errorMessage); err != nil {
		return eris.Wrapf(err, "tracker: finish job %s", jobID)
	}
	zap.L().Info("tracker: job finished",
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
	)
	return nil
}
