package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/store"
)

// Persister writes classified cases and keeps the owning job's quality
// counters in step with what was actually stored.
type Persister struct {
	store store.Store
	audit *AuditLogger
}

// NewPersister creates a Persister backed by the given store.
func NewPersister(st store.Store) *Persister {
	return &Persister{store: st, audit: NewAuditLogger(st)}
}

// StoreResult reports the outcome of persisting one case.
type StoreResult struct {
	ID        string
	Inserted  bool
	Duplicate bool
	Bucket    model.ConfidenceBucket
}

// StoreCase persists one case for the given job. A duplicate source URL
// resolves to the existing row's id without mutating it or touching any
// counter. For a fresh insert the job's bucket counter update is a hard
// dependency: if it fails the error propagates, since silently drifting
// counters are worse than a failed case.
func (p *Persister) StoreCase(ctx context.Context, jobID string, c *model.TribunalCase) (*StoreResult, error) {
	c.JobID = jobID
	decision := Route(c.CombinedConfidence)
	c.CombinedConfidence = decision.Confidence

	id, inserted, err := p.store.InsertCase(ctx, c)
	if err != nil {
		return nil, eris.Wrapf(err, "persist: store case %s", c.SourceURL)
	}

	res := &StoreResult{ID: id, Inserted: inserted, Duplicate: !inserted, Bucket: decision.Bucket}
	if !inserted {
		zap.L().Debug("persist: duplicate source url, kept existing case",
			zap.String("source_url", c.SourceURL),
			zap.String("case_id", id),
		)
		return res, nil
	}

	if err := p.store.IncrementBucketCount(ctx, jobID, decision.Bucket); err != nil {
		return res, eris.Wrapf(err, "persist: increment %s bucket for job %s", decision.Bucket, jobID)
	}
	return res, nil
}

// BatchResult summarizes a batch store operation.
type BatchResult struct {
	Stored     int
	Duplicates int
	Failed     int
}

// StoreBatch persists a batch of cases with a partial-failure contract: one
// bad case is audited and skipped, the rest of the batch proceeds. The
// returned ids cover every case that resolved to a row, duplicates included;
// failed cases are absent.
func (p *Persister) StoreBatch(ctx context.Context, jobID string, cases []*model.TribunalCase) ([]string, BatchResult) {
	var res BatchResult
	ids := make([]string, 0, len(cases))
	for _, c := range cases {
		sr, err := p.StoreCase(ctx, jobID, c)
		if err != nil {
			res.Failed++
			caseID := ""
			if sr != nil {
				caseID = sr.ID
			}
			p.audit.Record(ctx, ErrorRecord{
				JobID:     jobID,
				RawCaseID: caseID,
				Stage:     model.StageStorage,
				Type:      "storage_error",
				Message:   err.Error(),
				SourceURL: c.SourceURL,
			})
			continue
		}
		ids = append(ids, sr.ID)
		if sr.Duplicate {
			res.Duplicates++
		} else {
			res.Stored++
		}
	}
	return ids, res
}
