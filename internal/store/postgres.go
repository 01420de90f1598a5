package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tribunalwatch/ingest-cli/internal/db"
	"github.com/tribunalwatch/ingest-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_job":           `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE id = $1`,
	"insert_error":      `INSERT INTO ingestion_errors (id, ingestion_job_id, raw_case_id, error_stage, error_type, error_message, source_url, severity, is_retryable, retry_count, resolved, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"case_id_by_url":    `SELECT id FROM tribunal_cases_raw WHERE source_url = $1`,
	"update_checkpoint": `UPDATE ingestion_jobs SET last_processed_url = $1, checkpoint_data = $2, updated_at = $3 WHERE id = $4`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk backfill).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ingestion_jobs (
	id                      TEXT PRIMARY KEY,
	job_type                TEXT NOT NULL DEFAULT 'manual',
	source_system           TEXT NOT NULL,
	source_config           JSONB NOT NULL DEFAULT '{}',
	status                  TEXT NOT NULL DEFAULT 'pending',
	started_at              TIMESTAMPTZ,
	completed_at            TIMESTAMPTZ,
	duration_seconds        INTEGER,
	cases_discovered        INTEGER NOT NULL DEFAULT 0,
	cases_fetched           INTEGER NOT NULL DEFAULT 0,
	cases_classified        INTEGER NOT NULL DEFAULT 0,
	cases_stored            INTEGER NOT NULL DEFAULT 0,
	cases_failed            INTEGER NOT NULL DEFAULT 0,
	avg_confidence_score    DOUBLE PRECISION,
	high_confidence_count   INTEGER NOT NULL DEFAULT 0,
	medium_confidence_count INTEGER NOT NULL DEFAULT 0,
	low_confidence_count    INTEGER NOT NULL DEFAULT 0,
	error_message           TEXT,
	error_details           JSONB NOT NULL DEFAULT '{}',
	triggered_by            TEXT,
	pipeline_version        TEXT,
	last_processed_url      TEXT,
	checkpoint_data         JSONB NOT NULL DEFAULT '{}',
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_status ON ingestion_jobs(status);
CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_source ON ingestion_jobs(source_system);
CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_created ON ingestion_jobs(created_at DESC);

CREATE TABLE IF NOT EXISTS tribunal_cases_raw (
	id                        TEXT PRIMARY KEY,
	source_url                TEXT NOT NULL UNIQUE,
	source_system             TEXT NOT NULL,
	source_id                 TEXT,
	ingestion_job_id          TEXT REFERENCES ingestion_jobs(id),
	case_title                TEXT NOT NULL,
	case_number               TEXT,
	citation                  TEXT,
	tribunal_name             TEXT NOT NULL,
	tribunal_province         TEXT,
	decision_date             TIMESTAMPTZ,
	filing_date               TIMESTAMPTZ,
	applicant                 TEXT,
	respondent                TEXT,
	full_text                 TEXT NOT NULL,
	text_length               INTEGER NOT NULL,
	document_type             TEXT,
	language                  TEXT NOT NULL DEFAULT 'en',
	pdf_url                   TEXT,
	rule_based_classification JSONB NOT NULL,
	ai_classification         JSONB,
	combined_confidence       DOUBLE PRECISION NOT NULL,
	discrimination_grounds    JSONB NOT NULL DEFAULT '[]',
	key_issues                JSONB NOT NULL DEFAULT '[]',
	remedies                  JSONB NOT NULL DEFAULT '[]',
	extraction_quality        TEXT NOT NULL,
	extraction_errors         JSONB NOT NULL DEFAULT '[]',
	needs_review              BOOLEAN NOT NULL DEFAULT false,
	review_notes              TEXT,
	promotion_status          TEXT NOT NULL DEFAULT 'pending',
	promoted_case_id          TEXT,
	promoted_at               TIMESTAMPTZ,
	promoted_by               TEXT,
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cases_source_system ON tribunal_cases_raw(source_system);
CREATE INDEX IF NOT EXISTS idx_cases_job ON tribunal_cases_raw(ingestion_job_id);
CREATE INDEX IF NOT EXISTS idx_cases_review ON tribunal_cases_raw(needs_review, promotion_status, combined_confidence);
CREATE INDEX IF NOT EXISTS idx_cases_created ON tribunal_cases_raw(created_at DESC);

CREATE TABLE IF NOT EXISTS ingestion_errors (
	id               TEXT PRIMARY KEY,
	ingestion_job_id TEXT NOT NULL REFERENCES ingestion_jobs(id),
	raw_case_id      TEXT,
	error_stage      TEXT NOT NULL,
	error_type       TEXT NOT NULL,
	error_message    TEXT NOT NULL,
	source_url       TEXT,
	severity         TEXT NOT NULL DEFAULT 'error',
	is_retryable     BOOLEAN NOT NULL DEFAULT true,
	retry_count      INTEGER NOT NULL DEFAULT 0,
	resolved         BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ingestion_errors_job ON ingestion_errors(ingestion_job_id);
CREATE INDEX IF NOT EXISTS idx_ingestion_errors_stage ON ingestion_errors(error_stage);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Jobs ---

const jobColumns = `id, job_type, source_system, source_config, status, started_at, completed_at,
	duration_seconds, cases_discovered, cases_fetched, cases_classified, cases_stored, cases_failed,
	avg_confidence_score, high_confidence_count, medium_confidence_count, low_confidence_count,
	error_message, error_details, triggered_by, pipeline_version,
	last_processed_url, checkpoint_data, created_at, updated_at`

func (s *PostgresStore) CreateJob(ctx context.Context, sourceSystem string, jobType model.JobType, sourceConfig json.RawMessage) (*model.IngestionJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	if len(sourceConfig) == 0 {
		sourceConfig = json.RawMessage(`{}`)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingestion_jobs (id, job_type, source_system, source_config, status, started_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, string(jobType), sourceSystem, []byte(sourceConfig), string(model.JobStatusRunning), now, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.IngestionJob{
		ID:           id,
		JobType:      jobType,
		SourceSystem: sourceSystem,
		SourceConfig: sourceConfig,
		Status:       model.JobStatusRunning,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.IngestionJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM ingestion_jobs WHERE id = $1`,
		jobID,
	)
	j, err := scanJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.IngestionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.SourceSystem != "" {
		query += fmt.Sprintf(` AND source_system = $%d`, argIdx)
		args = append(args, filter.SourceSystem)
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.IngestionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

// metricColumns maps JobMetrics fields to their columns in declaration order,
// so the generated SET clause is stable.
func metricColumns(m model.JobMetrics) ([]string, []any) {
	var cols []string
	var vals []any
	add := func(col string, v any) {
		cols = append(cols, col)
		vals = append(vals, v)
	}
	if m.CasesDiscovered != nil {
		add("cases_discovered", *m.CasesDiscovered)
	}
	if m.CasesFetched != nil {
		add("cases_fetched", *m.CasesFetched)
	}
	if m.CasesClassified != nil {
		add("cases_classified", *m.CasesClassified)
	}
	if m.CasesStored != nil {
		add("cases_stored", *m.CasesStored)
	}
	if m.CasesFailed != nil {
		add("cases_failed", *m.CasesFailed)
	}
	if m.HighConfidenceCount != nil {
		add("high_confidence_count", *m.HighConfidenceCount)
	}
	if m.MediumConfidenceCount != nil {
		add("medium_confidence_count", *m.MediumConfidenceCount)
	}
	if m.LowConfidenceCount != nil {
		add("low_confidence_count", *m.LowConfidenceCount)
	}
	if m.AvgConfidenceScore != nil {
		add("avg_confidence_score", *m.AvgConfidenceScore)
	}
	if m.LastProcessedURL != nil {
		add("last_processed_url", *m.LastProcessedURL)
	}
	return cols, vals
}

func (s *PostgresStore) UpdateJobMetrics(ctx context.Context, jobID string, metrics model.JobMetrics) error {
	cols, vals := metricColumns(metrics)
	if len(cols) == 0 {
		return nil
	}

	setClauses := make([]string, len(cols))
	for i, c := range cols {
		setClauses[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	vals = append(vals, time.Now().UTC(), jobID)

	query := fmt.Sprintf(
		`UPDATE ingestion_jobs SET %s, updated_at = $%d WHERE id = $%d`,
		strings.Join(setClauses, ", "), len(cols)+1, len(cols)+2,
	)

	tag, err := s.pool.Exec(ctx, query, vals...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job metrics %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) UpdateJobCheckpoint(ctx context.Context, jobID, lastURL string, checkpoint json.RawMessage) error {
	if len(checkpoint) == 0 {
		checkpoint = json.RawMessage(`{}`)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingestion_jobs SET last_processed_url = $1, checkpoint_data = $2, updated_at = $3 WHERE id = $4`,
		lastURL, []byte(checkpoint), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job checkpoint %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

// bucketColumn maps a confidence bucket to its quality counter column.
func bucketColumn(bucket model.ConfidenceBucket) (string, error) {
	switch bucket {
	case model.BucketHigh:
		return "high_confidence_count", nil
	case model.BucketMedium:
		return "medium_confidence_count", nil
	case model.BucketLow:
		return "low_confidence_count", nil
	}
	return "", eris.Errorf("unknown confidence bucket: %s", bucket)
}

func (s *PostgresStore) IncrementBucketCount(ctx context.Context, jobID string, bucket model.ConfidenceBucket) error {
	col, err := bucketColumn(bucket)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE ingestion_jobs SET %s = %s + 1, updated_at = $1 WHERE id = $2`, col, col),
		time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: increment %s for job %s", col, jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error {
	if !status.ValidFinal() {
		return eris.Errorf("invalid final job status: %s", status)
	}

	now := time.Now().UTC()

	var startedAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM ingestion_jobs WHERE id = $1`,
		jobID,
	).Scan(&startedAt)
	if err != nil {
		return eris.Wrapf(err, "postgres: read job start time %s", jobID)
	}

	var duration any
	if startedAt != nil {
		duration = int(now.Sub(*startedAt).Seconds())
	}

	var errMsg any
	if errorMessage != "" {
		errMsg = errorMessage
	}

	// Guard: finalization is only valid from running, so a second call fails
	// instead of silently overwriting finalization fields.
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingestion_jobs
		 SET status = $1, completed_at = $2, duration_seconds = $3, error_message = COALESCE($4, error_message), updated_at = $5
		 WHERE id = $6 AND status = $7`,
		string(status), now, duration, errMsg, now, jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job %s is not running; refusing to finalize", jobID)
	}
	return nil
}

// --- Cases ---

const caseColumns = `id, source_url, source_system, source_id, ingestion_job_id,
	case_title, case_number, citation, tribunal_name, tribunal_province,
	decision_date, filing_date, applicant, respondent,
	full_text, text_length, document_type, language, pdf_url,
	rule_based_classification, ai_classification, combined_confidence,
	discrimination_grounds, key_issues, remedies,
	extraction_quality, extraction_errors, needs_review, review_notes,
	promotion_status, promoted_case_id, promoted_at, promoted_by,
	created_at, updated_at`

func (s *PostgresStore) InsertCase(ctx context.Context, c *model.TribunalCase) (string, bool, error) {
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	ruleJSON, err := json.Marshal(c.RuleBased)
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: marshal rule-based classification")
	}
	var aiJSON []byte
	if c.AI != nil {
		aiJSON, err = json.Marshal(c.AI)
		if err != nil {
			return "", false, eris.Wrap(err, "postgres: marshal ai classification")
		}
	}
	grounds, err := marshalList(c.DiscriminationGrounds)
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: marshal grounds")
	}
	issues, err := marshalList(c.KeyIssues)
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: marshal issues")
	}
	remedies, err := marshalList(c.Remedies)
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: marshal remedies")
	}
	extErrs, err := marshalList(c.ExtractionErrors)
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: marshal extraction errors")
	}

	// Insert-then-handle-conflict: the UNIQUE constraint on source_url is the
	// duplicate-detection signal, so two concurrent calls for the same URL
	// cannot both insert.
	var insertedID string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO tribunal_cases_raw (`+caseColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
		         $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35)
		 ON CONFLICT (source_url) DO NOTHING
		 RETURNING id`,
		id, c.SourceURL, c.SourceSystem, c.SourceID, nullIfEmpty(c.JobID),
		c.Title, c.CaseNumber, c.Citation, c.TribunalName, c.TribunalProvince,
		c.DecisionDate, c.FilingDate, c.Applicant, c.Respondent,
		c.FullText, c.TextLength, c.DocumentType, string(c.Language), c.PDFURL,
		ruleJSON, aiJSON, c.CombinedConfidence,
		grounds, issues, remedies,
		string(c.ExtractionQuality), extErrs, c.NeedsReview, c.ReviewNotes,
		string(c.PromotionStatus), nullIfEmpty(c.PromotedCaseID), c.PromotedAt, c.PromotedBy,
		now, now,
	).Scan(&insertedID)
	if err == nil {
		return insertedID, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, eris.Wrapf(err, "postgres: insert case %s", c.SourceURL)
	}

	// Conflict path: resolve to the existing row's id.
	var existingID string
	err = s.pool.QueryRow(ctx,
		`SELECT id FROM tribunal_cases_raw WHERE source_url = $1`,
		c.SourceURL,
	).Scan(&existingID)
	if err != nil {
		return "", false, eris.Wrapf(err, "postgres: resolve duplicate case %s", c.SourceURL)
	}
	return existingID, false, nil
}

func (s *PostgresStore) GetCase(ctx context.Context, id string) (*model.TribunalCase, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM tribunal_cases_raw WHERE id = $1`,
		id,
	)
	c, err := scanCase(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get case %s", id)
	}
	return c, nil
}

func (s *PostgresStore) GetCaseBySourceURL(ctx context.Context, sourceURL string) (*model.TribunalCase, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM tribunal_cases_raw WHERE source_url = $1`,
		sourceURL,
	)
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get case by url %s", sourceURL)
	}
	return c, nil
}

func (s *PostgresStore) ListReviewQueue(ctx context.Context, limit int) ([]model.TribunalCase, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+caseColumns+` FROM tribunal_cases_raw
		 WHERE needs_review = true AND promotion_status = $1
		 ORDER BY combined_confidence ASC
		 LIMIT $2`,
		string(model.PromotionPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list review queue")
	}
	defer rows.Close()

	var cases []model.TribunalCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan review case")
		}
		cases = append(cases, *c)
	}
	return cases, eris.Wrap(rows.Err(), "postgres: list review queue iterate")
}

func (s *PostgresStore) ListCaseSummaries(ctx context.Context) ([]model.CaseSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, COALESCE(ai_classification->>'category', ''), combined_confidence FROM tribunal_cases_raw`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list case summaries")
	}
	defer rows.Close()

	var summaries []model.CaseSummary
	for rows.Next() {
		var cs model.CaseSummary
		if err := rows.Scan(&cs.ID, &cs.AICategory, &cs.CombinedConfidence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan case summary")
		}
		summaries = append(summaries, cs)
	}
	return summaries, eris.Wrap(rows.Err(), "postgres: list case summaries iterate")
}

func (s *PostgresStore) ProcessedURLs(ctx context.Context, sourceSystem string, since time.Time) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source_url FROM tribunal_cases_raw WHERE source_system = $1 AND created_at >= $2`,
		sourceSystem, since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: processed urls")
	}
	defer rows.Close()

	urls := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "postgres: scan processed url")
		}
		urls[u] = true
	}
	return urls, eris.Wrap(rows.Err(), "postgres: processed urls iterate")
}

// bulkCaseColumns is the column order used by BulkInsertCases.
var bulkCaseColumns = []string{
	"id", "source_url", "source_system", "source_id", "ingestion_job_id",
	"case_title", "case_number", "citation", "tribunal_name", "tribunal_province",
	"decision_date", "filing_date", "applicant", "respondent",
	"full_text", "text_length", "document_type", "language", "pdf_url",
	"rule_based_classification", "ai_classification", "combined_confidence",
	"discrimination_grounds", "key_issues", "remedies",
	"extraction_quality", "extraction_errors", "needs_review", "review_notes",
	"promotion_status", "created_at", "updated_at",
}

// BulkInsertCases bulk-loads pre-classified cases, skipping duplicate source
// URLs. Used by the backfill fast path; per-case id resolution is not needed
// there, which is what makes COPY viable.
func (s *PostgresStore) BulkInsertCases(ctx context.Context, cases []model.TribunalCase) (int64, error) {
	if len(cases) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(cases))
	for i := range cases {
		c := &cases[i]
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		ruleJSON, err := json.Marshal(c.RuleBased)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal rule-based classification %s", c.SourceURL)
		}
		var aiJSON []byte
		if c.AI != nil {
			aiJSON, err = json.Marshal(c.AI)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: marshal ai classification %s", c.SourceURL)
			}
		}
		grounds, err := marshalList(c.DiscriminationGrounds)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal grounds")
		}
		issues, err := marshalList(c.KeyIssues)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal issues")
		}
		remedies, err := marshalList(c.Remedies)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal remedies")
		}
		extErrs, err := marshalList(c.ExtractionErrors)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal extraction errors")
		}

		rows = append(rows, []any{
			id, c.SourceURL, c.SourceSystem, c.SourceID, nullIfEmpty(c.JobID),
			c.Title, c.CaseNumber, c.Citation, c.TribunalName, c.TribunalProvince,
			c.DecisionDate, c.FilingDate, c.Applicant, c.Respondent,
			c.FullText, c.TextLength, c.DocumentType, string(c.Language), c.PDFURL,
			ruleJSON, aiJSON, c.CombinedConfidence,
			grounds, issues, remedies,
			string(c.ExtractionQuality), extErrs, c.NeedsReview, c.ReviewNotes,
			string(c.PromotionStatus), now, now,
		})
	}

	return db.InsertSkipConflicts(ctx, s.pool, "tribunal_cases_raw", bulkCaseColumns, []string{"source_url"}, rows)
}

// --- Errors ---

func (s *PostgresStore) LogError(ctx context.Context, e *model.IngestionError) error {
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingestion_errors (id, ingestion_job_id, raw_case_id, error_stage, error_type, error_message, source_url, severity, is_retryable, retry_count, resolved, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, e.JobID, e.RawCaseID, string(e.Stage), e.ErrorType, e.Message, e.SourceURL,
		string(e.Severity), e.IsRetryable, e.RetryCount, e.Resolved, now,
	)
	return eris.Wrap(err, "postgres: insert ingestion error")
}

func (s *PostgresStore) ListErrors(ctx context.Context, jobID string) ([]model.IngestionError, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, ingestion_job_id, raw_case_id, error_stage, error_type, error_message, source_url, severity, is_retryable, retry_count, resolved, created_at
		 FROM ingestion_errors WHERE ingestion_job_id = $1 ORDER BY created_at ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingestion errors")
	}
	defer rows.Close()

	var errs []model.IngestionError
	for rows.Next() {
		var e model.IngestionError
		var stage, severity string
		if err := rows.Scan(&e.ID, &e.JobID, &e.RawCaseID, &stage, &e.ErrorType, &e.Message,
			&e.SourceURL, &severity, &e.IsRetryable, &e.RetryCount, &e.Resolved, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingestion error")
		}
		e.Stage = model.ErrorStage(stage)
		e.Severity = model.ErrorSeverity(severity)
		errs = append(errs, e)
	}
	return errs, eris.Wrap(rows.Err(), "postgres: list ingestion errors iterate")
}

// --- scan helpers ---

// scanJob reads one ingestion_jobs row in jobColumns order.
func scanJob(row pgx.Row) (*model.IngestionJob, error) {
	var j model.IngestionJob
	var jobType, status string
	var startedAt *time.Time
	var sourceConfig, errorDetails, checkpoint []byte
	var errMsg, triggeredBy, pipelineVersion, lastURL *string

	err := row.Scan(&j.ID, &jobType, &j.SourceSystem, &sourceConfig, &status, &startedAt, &j.CompletedAt,
		&j.DurationSeconds, &j.CasesDiscovered, &j.CasesFetched, &j.CasesClassified, &j.CasesStored, &j.CasesFailed,
		&j.AvgConfidenceScore, &j.HighConfidenceCount, &j.MediumConfidenceCount, &j.LowConfidenceCount,
		&errMsg, &errorDetails, &triggeredBy, &pipelineVersion,
		&lastURL, &checkpoint, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}

	j.JobType = model.JobType(jobType)
	j.Status = model.JobStatus(status)
	if startedAt != nil {
		j.StartedAt = *startedAt
	}
	j.SourceConfig = sourceConfig
	j.ErrorDetails = errorDetails
	j.CheckpointData = checkpoint
	if errMsg != nil {
		j.ErrorMessage = *errMsg
	}
	if triggeredBy != nil {
		j.TriggeredBy = *triggeredBy
	}
	if pipelineVersion != nil {
		j.PipelineVersion = *pipelineVersion
	}
	if lastURL != nil {
		j.LastProcessedURL = *lastURL
	}
	return &j, nil
}

// scanCase reads one tribunal_cases_raw row in caseColumns order.
func scanCase(row pgx.Row) (*model.TribunalCase, error) {
	var c model.TribunalCase
	var language, quality, promotion string
	var jobID, promotedCaseID *string
	var ruleJSON, aiJSON, grounds, issues, remedies, extErrs []byte

	err := row.Scan(&c.ID, &c.SourceURL, &c.SourceSystem, &c.SourceID, &jobID,
		&c.Title, &c.CaseNumber, &c.Citation, &c.TribunalName, &c.TribunalProvince,
		&c.DecisionDate, &c.FilingDate, &c.Applicant, &c.Respondent,
		&c.FullText, &c.TextLength, &c.DocumentType, &language, &c.PDFURL,
		&ruleJSON, &aiJSON, &c.CombinedConfidence,
		&grounds, &issues, &remedies,
		&quality, &extErrs, &c.NeedsReview, &c.ReviewNotes,
		&promotion, &promotedCaseID, &c.PromotedAt, &c.PromotedBy,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Language = model.Language(language)
	c.ExtractionQuality = model.ExtractionQuality(quality)
	c.PromotionStatus = model.PromotionStatus(promotion)
	if jobID != nil {
		c.JobID = *jobID
	}
	if promotedCaseID != nil {
		c.PromotedCaseID = *promotedCaseID
	}

	if err := json.Unmarshal(ruleJSON, &c.RuleBased); err != nil {
		return nil, eris.Wrap(err, "unmarshal rule-based classification")
	}
	if len(aiJSON) > 0 {
		c.AI = &model.AIResult{}
		if err := json.Unmarshal(aiJSON, c.AI); err != nil {
			return nil, eris.Wrap(err, "unmarshal ai classification")
		}
	}
	if err := unmarshalList(grounds, &c.DiscriminationGrounds); err != nil {
		return nil, eris.Wrap(err, "unmarshal grounds")
	}
	if err := unmarshalList(issues, &c.KeyIssues); err != nil {
		return nil, eris.Wrap(err, "unmarshal issues")
	}
	if err := unmarshalList(remedies, &c.Remedies); err != nil {
		return nil, eris.Wrap(err, "unmarshal remedies")
	}
	if err := unmarshalList(extErrs, &c.ExtractionErrors); err != nil {
		return nil, eris.Wrap(err, "unmarshal extraction errors")
	}
	return &c, nil
}

// marshalList encodes a string list as JSON, mapping nil to an empty array so
// the JSONB column never stores SQL NULL.
func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func unmarshalList(data []byte, out *[]string) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// nullIfEmpty maps an empty string to SQL NULL, for nullable FK columns.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
