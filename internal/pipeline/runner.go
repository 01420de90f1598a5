package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/store"
)

// Discoverer lists the decision URLs available from a tribunal source.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// Fetcher retrieves one decision document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*model.Document, error)
}

// Classifier scores a fetched document. FinalConfidence on the returned
// classification is treated as opaque; the runner never recombines scores.
type Classifier interface {
	Classify(ctx context.Context, doc *model.Document) (*model.Classification, error)
}

// Options configures one ingestion run.
type Options struct {
	SourceSystem string
	JobType      model.JobType
	SourceConfig json.RawMessage

	// Limit caps how many cases are processed after resume filtering.
	// Zero means no cap.
	Limit int

	// DryRun classifies but never writes cases or counters.
	DryRun bool

	// Resume skips URLs already stored within ResumeWindow.
	Resume       bool
	ResumeWindow time.Duration

	Concurrency     int
	RatePerSecond   float64
	CheckpointEvery int
}

func (o *Options) applyDefaults() {
	if o.JobType == "" {
		o.JobType = model.JobTypeManual
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 2
	}
	if o.CheckpointEvery <= 0 {
		o.CheckpointEvery = 10
	}
	if o.ResumeWindow <= 0 {
		o.ResumeWindow = 30 * 24 * time.Hour
	}
}

// Runner executes a full ingestion pass: discover, fetch, classify, persist.
type Runner struct {
	store      store.Store
	tracker    *Tracker
	persister  *Persister
	audit      *AuditLogger
	discoverer Discoverer
	fetcher    Fetcher
	classifier Classifier
}

// NewRunner wires a Runner from its stages.
func NewRunner(st store.Store, d Discoverer, f Fetcher, c Classifier) *Runner {
	return &Runner{
		store:      st,
		tracker:    NewTracker(st),
		persister:  NewPersister(st),
		audit:      NewAuditLogger(st),
		discoverer: d,
		fetcher:    f,
		classifier: c,
	}
}

// runProgress tracks counters shared across workers.
type runProgress struct {
	mu         sync.Mutex
	fetched    int
	classified int
	stored     int
	duplicates int
	failed     int
	processed  int
	lastURL    string
	sumConf    float64
}

// Run executes one ingestion job end to end and returns the finalized job
// record. A per-case failure is audited and skipped; only discovery failure
// or a totally failed batch marks the job failed.
func (r *Runner) Run(ctx context.Context, opts Options) (*model.IngestionJob, error) {
	opts.applyDefaults()
	log := zap.L().With(zap.String("source_system", opts.SourceSystem))

	job, err := r.tracker.Start(ctx, opts.SourceSystem, opts.JobType, opts.SourceConfig)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("job_id", job.ID))

	urls, err := r.discoverer.Discover(ctx)
	if err != nil {
		r.audit.Record(ctx, ErrorRecord{
			JobID:    job.ID,
			Stage:    model.StageDiscovery,
			Type:     "discovery_error",
			Message:  err.Error(),
			Severity: model.SeverityCritical,
		})
		if finErr := r.tracker.Finish(ctx, job.ID, model.JobStatusFailed, err.Error()); finErr != nil {
			log.Error("runner: failed to finalize job after discovery failure", zap.Error(finErr))
		}
		return nil, eris.Wrap(err, "runner: discovery")
	}

	discovered := len(urls)
	urls = r.filterResumed(ctx, job.ID, opts, urls)
	if opts.Limit > 0 && len(urls) > opts.Limit {
		urls = urls[:opts.Limit]
	}
	r.tracker.RecordMetrics(ctx, job.ID, model.JobMetrics{CasesDiscovered: model.Int(discovered)})
	log.Info("runner: discovery complete",
		zap.Int("discovered", discovered),
		zap.Int("to_process", len(urls)),
	)

	progress := &runProgress{}
	limiter := rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, url := range urls {
		g.Go(func() error {
			if err := limiter.Wait(gCtx); err != nil {
				return err
			}
			r.processURL(gCtx, job.ID, opts, url, progress)
			r.maybeCheckpoint(gCtx, job.ID, opts, progress)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Context cancellation: finalize as partial so resume can pick up.
		r.flushMetrics(ctx, job.ID, progress)
		if finErr := r.tracker.Finish(ctx, job.ID, model.JobStatusPartial, err.Error()); finErr != nil {
			log.Error("runner: failed to finalize interrupted job", zap.Error(finErr))
		}
		return nil, eris.Wrap(err, "runner: interrupted")
	}

	r.flushMetrics(ctx, job.ID, progress)

	status, errMsg := finalStatus(len(urls), progress)
	if err := r.tracker.Finish(ctx, job.ID, status, errMsg); err != nil {
		return nil, err
	}

	final, err := r.store.GetJob(ctx, job.ID)
	if err != nil {
		return nil, eris.Wrap(err, "runner: reload job")
	}
	return final, nil
}

// filterResumed drops URLs already stored within the resume window.
func (r *Runner) filterResumed(ctx context.Context, jobID string, opts Options, urls []string) []string {
	if !opts.Resume {
		return urls
	}
	seen, err := r.store.ProcessedURLs(ctx, opts.SourceSystem, time.Now().UTC().Add(-opts.ResumeWindow))
	if err != nil {
		// Resume is best effort; without the set every URL is reprocessed and
		// the dedupe constraint still prevents double storage.
		zap.L().Warn("runner: failed to load processed urls, resuming without filter",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return urls
	}
	filtered := urls[:0]
	for _, u := range urls {
		if !seen[u] {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

// processURL runs fetch, classify, and store for one URL, recording failures
// in the audit log instead of returning them.
func (r *Runner) processURL(ctx context.Context, jobID string, opts Options, url string, p *runProgress) {
	fail := func(stage model.ErrorStage, errType string, err error) {
		p.mu.Lock()
		p.failed++
		p.processed++
		p.mu.Unlock()
		r.audit.Record(ctx, ErrorRecord{
			JobID:     jobID,
			Stage:     stage,
			Type:      errType,
			Message:   err.Error(),
			SourceURL: url,
		})
	}

	doc, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		fail(model.StageFetch, "fetch_error", err)
		return
	}
	p.mu.Lock()
	p.fetched++
	p.mu.Unlock()

	cls, err := r.classifier.Classify(ctx, doc)
	if err != nil {
		fail(model.StageClassification, "classification_error", err)
		return
	}

	c, decision := BuildCase(jobID, opts.SourceSystem, url, doc, cls)

	p.mu.Lock()
	p.classified++
	p.sumConf += decision.Confidence
	p.mu.Unlock()

	if opts.DryRun {
		p.mu.Lock()
		p.processed++
		p.lastURL = url
		p.mu.Unlock()
		zap.L().Info("runner: dry run, case not stored",
			zap.String("source_url", url),
			zap.Float64("confidence", decision.Confidence),
			zap.String("bucket", string(decision.Bucket)),
		)
		return
	}

	res, err := r.persister.StoreCase(ctx, jobID, c)
	if err != nil {
		fail(model.StageStorage, "storage_error", err)
		return
	}

	p.mu.Lock()
	if res.Duplicate {
		p.duplicates++
	} else {
		p.stored++
	}
	p.processed++
	p.lastURL = url
	p.mu.Unlock()
}

// maybeCheckpoint flushes metrics and resume state every CheckpointEvery
// processed cases.
func (r *Runner) maybeCheckpoint(ctx context.Context, jobID string, opts Options, p *runProgress) {
	p.mu.Lock()
	due := p.processed > 0 && p.processed%opts.CheckpointEvery == 0
	lastURL := p.lastURL
	p.mu.Unlock()
	if !due {
		return
	}
	r.flushMetrics(ctx, jobID, p)
	if lastURL != "" && !opts.DryRun {
		r.tracker.Checkpoint(ctx, jobID, lastURL, nil)
	}
}

// flushMetrics writes the current counters as absolute values.
func (r *Runner) flushMetrics(ctx context.Context, jobID string, p *runProgress) {
	p.mu.Lock()
	m := model.JobMetrics{
		CasesFetched:    model.Int(p.fetched),
		CasesClassified: model.Int(p.classified),
		CasesStored:     model.Int(p.stored),
		CasesFailed:     model.Int(p.failed),
	}
	if p.classified > 0 {
		m.AvgConfidenceScore = model.Float(p.sumConf / float64(p.classified))
	}
	if p.lastURL != "" {
		m.LastProcessedURL = model.Str(p.lastURL)
	}
	p.mu.Unlock()
	r.tracker.RecordMetrics(ctx, jobID, m)
}

// finalStatus decides the job's terminal state from its counters.
func finalStatus(attempted int, p *runProgress) (model.JobStatus, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case attempted == 0:
		return model.JobStatusCompleted, ""
	case p.failed == attempted:
		return model.JobStatusFailed, fmt.Sprintf("all %d cases failed", attempted)
	case p.failed > 0:
		return model.JobStatusPartial, fmt.Sprintf("%d of %d cases failed", p.failed, attempted)
	default:
		return model.JobStatusCompleted, ""
	}
}
