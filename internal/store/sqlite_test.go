package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func startJob(t *testing.T, st *SQLiteStore, sourceSystem string) *model.IngestionJob {
	t.Helper()
	job, err := st.CreateJob(context.Background(), sourceSystem, model.JobTypeManual, nil)
	require.NoError(t, err)
	return job
}

// --- Jobs ---

func TestSQLite_CreateAndGetJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "hrto", model.JobTypeScheduled, json.RawMessage(`{"max_cases":50}`))
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusRunning, job.Status)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.JobTypeScheduled, got.JobType)
	assert.Equal(t, "hrto", got.SourceSystem)
	assert.Equal(t, model.JobStatusRunning, got.Status)
	assert.JSONEq(t, `{"max_cases":50}`, string(got.SourceConfig))
	assert.False(t, got.StartedAt.IsZero())
	assert.Nil(t, got.CompletedAt)
}

func TestSQLite_UpdateJobMetrics(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	err := st.UpdateJobMetrics(ctx, job.ID, model.JobMetrics{
		CasesDiscovered:    model.Int(40),
		CasesStored:        model.Int(35),
		AvgConfidenceScore: model.Float(0.81),
	})
	require.NoError(t, err)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.CasesDiscovered)
	assert.Equal(t, 35, got.CasesStored)
	require.NotNil(t, got.AvgConfidenceScore)
	assert.InDelta(t, 0.81, *got.AvgConfidenceScore, 1e-9)
	// Untouched counters keep their values.
	assert.Equal(t, 0, got.CasesFailed)
}

func TestSQLite_UpdateJobMetrics_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	job := startJob(t, st, "hrto")

	err := st.UpdateJobMetrics(context.Background(), job.ID, model.JobMetrics{})
	require.NoError(t, err)
}

func TestSQLite_UpdateJobMetrics_MissingJob(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateJobMetrics(context.Background(), "ghost", model.JobMetrics{CasesStored: model.Int(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_IncrementBucketCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	require.NoError(t, st.IncrementBucketCount(ctx, job.ID, model.BucketHigh))
	require.NoError(t, st.IncrementBucketCount(ctx, job.ID, model.BucketHigh))
	require.NoError(t, st.IncrementBucketCount(ctx, job.ID, model.BucketLow))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.HighConfidenceCount)
	assert.Equal(t, 0, got.MediumConfidenceCount)
	assert.Equal(t, 1, got.LowConfidenceCount)
}

func TestSQLite_UpdateJobCheckpoint(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	err := st.UpdateJobCheckpoint(ctx, job.ID, "https://example.org/decisions/17", json.RawMessage(`{"page":3}`))
	require.NoError(t, err)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/decisions/17", got.LastProcessedURL)
	assert.JSONEq(t, `{"page":3}`, string(got.CheckpointData))
}

func TestSQLite_CompleteJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	err := st.CompleteJob(ctx, job.ID, model.JobStatusCompleted, "")
	require.NoError(t, err)

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.DurationSeconds)
	assert.GreaterOrEqual(t, *got.DurationSeconds, 0)
	assert.Empty(t, got.ErrorMessage)
}

func TestSQLite_CompleteJob_ComputesDuration(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	// Backdate the start so the computed duration is deterministic.
	started := time.Now().UTC().Add(-90 * time.Second)
	_, err := st.db.ExecContext(ctx, `UPDATE ingestion_jobs SET started_at = ? WHERE id = ?`, started, job.ID)
	require.NoError(t, err)

	require.NoError(t, st.CompleteJob(ctx, job.ID, model.JobStatusCompleted, ""))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, 90, *got.DurationSeconds)
}

func TestSQLite_CompleteJob_Twice(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	require.NoError(t, st.CompleteJob(ctx, job.ID, model.JobStatusPartial, "3 of 40 cases failed"))

	err := st.CompleteJob(ctx, job.ID, model.JobStatusCompleted, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")

	// The first finalization is untouched.
	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPartial, got.Status)
	assert.Equal(t, "3 of 40 cases failed", got.ErrorMessage)
}

func TestSQLite_CompleteJob_InvalidStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	job := startJob(t, st, "hrto")

	err := st.CompleteJob(context.Background(), job.ID, model.JobStatusCancelled, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid final job status")
}

func TestSQLite_ListJobs_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	j1 := startJob(t, st, "hrto")
	startJob(t, st, "chrt")
	require.NoError(t, st.CompleteJob(ctx, j1.ID, model.JobStatusCompleted, ""))

	running, err := st.ListJobs(ctx, JobFilter{Status: model.JobStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "chrt", running[0].SourceSystem)

	hrto, err := st.ListJobs(ctx, JobFilter{SourceSystem: "hrto"})
	require.NoError(t, err)
	require.Len(t, hrto, 1)
	assert.Equal(t, j1.ID, hrto[0].ID)

	all, err := st.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// --- Cases ---

func sqliteTestCase(job *model.IngestionJob, sourceURL string, confidence float64) *model.TribunalCase {
	c := testCase(sourceURL)
	if job != nil {
		c.JobID = job.ID
	}
	c.RuleBased.Confidence = confidence
	c.CombinedConfidence = confidence
	return c
}

func TestSQLite_InsertCase_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	c := sqliteTestCase(job, "https://example.org/decisions/1", 0.72)
	c.DiscriminationGrounds = []string{"disability", "sex"}
	c.Remedies = []string{"monetary", "training"}
	c.AI = &model.AIResult{Category: "employment", Confidence: 0.8}
	decision := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	c.DecisionDate = &decision

	id, inserted, err := st.InsertCase(ctx, c)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, id)

	got, err := st.GetCase(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/decisions/1", got.SourceURL)
	assert.Equal(t, job.ID, got.JobID)
	assert.Equal(t, "Doe v. Acme Widgets", got.Title)
	assert.Equal(t, []string{"disability", "sex"}, got.DiscriminationGrounds)
	assert.Equal(t, []string{"monetary", "training"}, got.Remedies)
	require.NotNil(t, got.AI)
	assert.Equal(t, "employment", got.AI.Category)
	require.NotNil(t, got.DecisionDate)
	assert.True(t, decision.Equal(*got.DecisionDate))
	assert.True(t, got.NeedsReview)
	assert.Equal(t, model.PromotionPending, got.PromotionStatus)
}

func TestSQLite_InsertCase_DuplicateURL(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	first := sqliteTestCase(job, "https://example.org/decisions/1", 0.72)
	id1, inserted, err := st.InsertCase(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	// Same URL with different content: existing row wins, nothing is mutated.
	second := sqliteTestCase(job, "https://example.org/decisions/1", 0.95)
	second.Title = "Different Title"
	id2, inserted, err := st.InsertCase(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, id1, id2)

	got, err := st.GetCase(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "Doe v. Acme Widgets", got.Title)
	assert.InDelta(t, 0.72, got.CombinedConfidence, 1e-9)
}

func TestSQLite_GetCaseBySourceURL(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	_, _, err := st.InsertCase(ctx, sqliteTestCase(job, "https://example.org/decisions/1", 0.72))
	require.NoError(t, err)

	got, err := st.GetCaseBySourceURL(ctx, "https://example.org/decisions/1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hrto", got.SourceSystem)

	missing, err := st.GetCaseBySourceURL(ctx, "https://example.org/decisions/999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_ListReviewQueue_OrderedByConfidence(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	for i, conf := range []float64{0.65, 0.3, 0.55} {
		c := sqliteTestCase(job, "https://example.org/decisions/"+string(rune('a'+i)), conf)
		c.NeedsReview = true
		_, _, err := st.InsertCase(ctx, c)
		require.NoError(t, err)
	}
	// A confident case never enters the queue.
	confident := sqliteTestCase(job, "https://example.org/decisions/z", 0.9)
	confident.NeedsReview = false
	_, _, err := st.InsertCase(ctx, confident)
	require.NoError(t, err)

	queue, err := st.ListReviewQueue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.InDelta(t, 0.3, queue[0].CombinedConfidence, 1e-9)
	assert.InDelta(t, 0.55, queue[1].CombinedConfidence, 1e-9)
	assert.InDelta(t, 0.65, queue[2].CombinedConfidence, 1e-9)
}

func TestSQLite_ListCaseSummaries(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	withAI := sqliteTestCase(job, "https://example.org/decisions/1", 0.85)
	withAI.AI = &model.AIResult{Category: "housing", Confidence: 0.9}
	_, _, err := st.InsertCase(ctx, withAI)
	require.NoError(t, err)

	withoutAI := sqliteTestCase(job, "https://example.org/decisions/2", 0.4)
	_, _, err = st.InsertCase(ctx, withoutAI)
	require.NoError(t, err)

	summaries, err := st.ListCaseSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	categories := map[string]bool{}
	for _, s := range summaries {
		categories[s.AICategory] = true
	}
	assert.True(t, categories["housing"])
	assert.True(t, categories[""])
}

func TestSQLite_ProcessedURLs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	_, _, err := st.InsertCase(ctx, sqliteTestCase(job, "https://example.org/decisions/1", 0.7))
	require.NoError(t, err)
	other := sqliteTestCase(job, "https://example.org/decisions/2", 0.7)
	other.SourceSystem = "chrt"
	_, _, err = st.InsertCase(ctx, other)
	require.NoError(t, err)

	since := time.Now().UTC().Add(-time.Hour)
	urls, err := st.ProcessedURLs(ctx, "hrto", since)
	require.NoError(t, err)
	assert.Len(t, urls, 1)
	assert.True(t, urls["https://example.org/decisions/1"])

	// Lookback window excludes everything when it starts in the future.
	none, err := st.ProcessedURLs(ctx, "hrto", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

// --- Errors ---

func TestSQLite_LogAndListErrors(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	job := startJob(t, st, "hrto")

	err := st.LogError(ctx, &model.IngestionError{
		JobID:       job.ID,
		Stage:       model.StageFetch,
		ErrorType:   "http_timeout",
		Message:     "context deadline exceeded",
		SourceURL:   "https://example.org/decisions/9",
		Severity:    model.SeverityError,
		IsRetryable: true,
	})
	require.NoError(t, err)

	err = st.LogError(ctx, &model.IngestionError{
		JobID:     job.ID,
		Stage:     model.StageStorage,
		ErrorType: "constraint_violation",
		Message:   "NOT NULL constraint failed",
		Severity:  model.SeverityCritical,
	})
	require.NoError(t, err)

	errs, err := st.ListErrors(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, model.StageFetch, errs[0].Stage)
	assert.Equal(t, "http_timeout", errs[0].ErrorType)
	assert.True(t, errs[0].IsRetryable)
	assert.False(t, errs[0].Resolved)
	assert.Equal(t, model.SeverityCritical, errs[1].Severity)

	none, err := st.ListErrors(ctx, "other-job")
	require.NoError(t, err)
	assert.Empty(t, none)
}
