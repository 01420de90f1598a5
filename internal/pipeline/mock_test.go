package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) CreateJob(ctx context.Context, sourceSystem string, jobType model.JobType, sourceConfig json.RawMessage) (*model.IngestionJob, error) {
	args := m.Called(ctx, sourceSystem, jobType, sourceConfig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IngestionJob), args.Error(1)
}

func (m *mockStore) GetJob(ctx context.Context, jobID string) (*model.IngestionJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IngestionJob), args.Error(1)
}

func (m *mockStore) ListJobs(ctx context.Context, filter store.JobFilter) ([]model.IngestionJob, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IngestionJob), args.Error(1)
}

func (m *mockStore) UpdateJobMetrics(ctx context.Context, jobID string, metrics model.JobMetrics) error {
	args := m.Called(ctx, jobID, metrics)
	return args.Error(0)
}

func (m *mockStore) UpdateJobCheckpoint(ctx context.Context, jobID, lastURL string, checkpoint json.RawMessage) error {
	args := m.Called(ctx, jobID, lastURL, checkpoint)
	return args.Error(0)
}

func (m *mockStore) IncrementBucketCount(ctx context.Context, jobID string, bucket model.ConfidenceBucket) error {
	args := m.Called(ctx, jobID, bucket)
	return args.Error(0)
}

func (m *mockStore) CompleteJob(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error {
	args := m.Called(ctx, jobID, status, errorMessage)
	return args.Error(0)
}

func (m *mockStore) InsertCase(ctx context.Context, c *model.TribunalCase) (string, bool, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) GetCase(ctx context.Context, id string) (*model.TribunalCase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TribunalCase), args.Error(1)
}

func (m *mockStore) GetCaseBySourceURL(ctx context.Context, sourceURL string) (*model.TribunalCase, error) {
	args := m.Called(ctx, sourceURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TribunalCase), args.Error(1)
}

func (m *mockStore) ListReviewQueue(ctx context.Context, limit int) ([]model.TribunalCase, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TribunalCase), args.Error(1)
}

func (m *mockStore) ListCaseSummaries(ctx context.Context) ([]model.CaseSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CaseSummary), args.Error(1)
}

func (m *mockStore) ProcessedURLs(ctx context.Context, sourceSystem string, since time.Time) (map[string]bool, error) {
	args := m.Called(ctx, sourceSystem, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *mockStore) LogError(ctx context.Context, e *model.IngestionError) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockStore) ListErrors(ctx context.Context, jobID string) ([]model.IngestionError, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IngestionError), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Stage Mocks ---

type mockDiscoverer struct {
	mock.Mock
}

var _ Discoverer = (*mockDiscoverer)(nil)

func (m *mockDiscoverer) Discover(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockFetcher struct {
	mock.Mock
}

var _ Fetcher = (*mockFetcher)(nil)

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*model.Document, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

type mockClassifier struct {
	mock.Mock
}

var _ Classifier = (*mockClassifier)(nil)

func (m *mockClassifier) Classify(ctx context.Context, doc *model.Document) (*model.Classification, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Classification), args.Error(1)
}
