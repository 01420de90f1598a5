package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ingestion_jobs (
	id                      TEXT PRIMARY KEY,
	job_type                TEXT NOT NULL DEFAULT 'manual',
	source_system           TEXT NOT NULL,
	source_config           TEXT NOT NULL DEFAULT '{}',
	status                  TEXT NOT NULL DEFAULT 'pending',
	started_at              DATETIME,
	completed_at            DATETIME,
	duration_seconds        INTEGER,
	cases_discovered        INTEGER NOT NULL DEFAULT 0,
	cases_fetched           INTEGER NOT NULL DEFAULT 0,
	cases_classified        INTEGER NOT NULL DEFAULT 0,
	cases_stored            INTEGER NOT NULL DEFAULT 0,
	cases_failed            INTEGER NOT NULL DEFAULT 0,
	avg_confidence_score    REAL,
	high_confidence_count   INTEGER NOT NULL DEFAULT 0,
	medium_confidence_count INTEGER NOT NULL DEFAULT 0,
	low_confidence_count    INTEGER NOT NULL DEFAULT 0,
	error_message           TEXT,
	error_details           TEXT NOT NULL DEFAULT '{}',
	triggered_by            TEXT,
	pipeline_version        TEXT,
	last_processed_url      TEXT,
	checkpoint_data         TEXT NOT NULL DEFAULT '{}',
	created_at              DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at              DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_status ON ingestion_jobs(status);
CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_source ON ingestion_jobs(source_system);

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
	decision_date             DATETIME,
	filing_date               DATETIME,
	applicant                 TEXT,
	respondent                TEXT,
	full_text                 TEXT NOT NULL,
	text_length               INTEGER NOT NULL,
	document_type             TEXT,
	language                  TEXT NOT NULL DEFAULT 'en',
	pdf_url                   TEXT,
	rule_based_classification TEXT NOT NULL,
	ai_classification         TEXT,
	combined_confidence       REAL NOT NULL,
	discrimination_grounds    TEXT NOT NULL DEFAULT '[]',
	key_issues                TEXT NOT NULL DEFAULT '[]',
	remedies                  TEXT NOT NULL DEFAULT '[]',
	extraction_quality        TEXT NOT NULL,
	extraction_errors         TEXT NOT NULL DEFAULT '[]',
	needs_review              INTEGER NOT NULL DEFAULT 0,
	review_notes              TEXT,
	promotion_status          TEXT NOT NULL DEFAULT 'pending',
	promoted_case_id          TEXT,
	promoted_at               DATETIME,
	promoted_by               TEXT,
	created_at                DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at                DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cases_source_system ON tribunal_cases_raw(source_system);
CREATE INDEX IF NOT EXISTS idx_cases_job ON tribunal_cases_raw(ingestion_job_id);
CREATE INDEX IF NOT EXISTS idx_cases_review ON tribunal_cases_raw(needs_review, promotion_status, combined_confidence);

CREATE TABLE IF NOT EXISTS ingestion_errors (
	id               TEXT PRIMARY KEY,
	ingestion_job_id TEXT NOT NULL REFERENCES ingestion_jobs(id),
	raw_case_id      TEXT,
	error_stage      TEXT NOT NULL,
	error_type       TEXT NOT NULL,
	error_message    TEXT NOT NULL,
	source_url       TEXT,
	severity         TEXT NOT NULL DEFAULT 'error',
	is_retryable     INTEGER NOT NULL DEFAULT 1,
	retry_count      INTEGER NOT NULL DEFAULT 0,
	resolved         INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ingestion_errors_job ON ingestion_errors(ingestion_job_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// --- Jobs ---

func (s *SQLiteStore) CreateJob(ctx context.Context, sourceSystem string, jobType model.JobType, sourceConfig json.RawMessage) (*model.IngestionJob, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	if len(sourceConfig) == 0 {
		sourceConfig = json.RawMessage(`{}`)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_jobs (id, job_type, source_system, source_config, status, started_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(jobType), sourceSystem, string(sourceConfig), string(model.JobStatusRunning), now, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
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

const sqliteJobColumns = `id, job_type, source_system, source_config, status, started_at, completed_at,
	duration_seconds, cases_discovered, cases_fetched, cases_classified, cases_stored, cases_failed,
	avg_confidence_score, high_confidence_count, medium_confidence_count, low_confidence_count,
	error_message, error_details, triggered_by, pipeline_version,
	last_processed_url, checkpoint_data, created_at, updated_at`

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.IngestionJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteJobColumns+` FROM ingestion_jobs WHERE id = ?`,
		jobID,
	)
	j, err := scanSQLiteJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return j, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.IngestionJob, error) {
	query := `SELECT ` + sqliteJobColumns + ` FROM ingestion_jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.SourceSystem != "" {
		query += ` AND source_system = ?`
		args = append(args, filter.SourceSystem)
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.IngestionJob
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) UpdateJobMetrics(ctx context.Context, jobID string, metrics model.JobMetrics) error {
	cols, vals := metricColumns(metrics)
	if len(cols) == 0 {
		return nil
	}

	setClauses := make([]string, len(cols))
	for i, c := range cols {
		setClauses[i] = c + " = ?"
	}
	vals = append(vals, time.Now().UTC(), jobID)

	query := fmt.Sprintf(
		`UPDATE ingestion_jobs SET %s, updated_at = ? WHERE id = ?`,
		strings.Join(setClauses, ", "),
	)

	res, err := s.db.ExecContext(ctx, query, vals...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job metrics %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) UpdateJobCheckpoint(ctx context.Context, jobID, lastURL string, checkpoint json.RawMessage) error {
	if len(checkpoint) == 0 {
		checkpoint = json.RawMessage(`{}`)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_jobs SET last_processed_url = ?, checkpoint_data = ?, updated_at = ? WHERE id = ?`,
		lastURL, string(checkpoint), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job checkpoint %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) IncrementBucketCount(ctx context.Context, jobID string, bucket model.ConfidenceBucket) error {
	col, err := bucketColumn(bucket)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE ingestion_jobs SET %s = %s + 1, updated_at = ? WHERE id = ?`, col, col),
		time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment %s for job %s", col, jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, status model.JobStatus, errorMessage string) error {
	if !status.ValidFinal() {
		return eris.Errorf("invalid final job status: %s", status)
	}

	now := time.Now().UTC()

	var startedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at FROM ingestion_jobs WHERE id = ?`,
		jobID,
	).Scan(&startedAt)
	if err != nil {
		return eris.Wrapf(err, "sqlite: read job start time %s", jobID)
	}

	var duration any
	if startedAt.Valid {
		duration = int(now.Sub(startedAt.Time).Seconds())
	}

	var errMsg any
	if errorMessage != "" {
		errMsg = errorMessage
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_jobs
		 SET status = ?, completed_at = ?, duration_seconds = ?, error_message = COALESCE(?, error_message), updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), now, duration, errMsg, now, jobID, string(model.JobStatusRunning),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("job %s is not running; refusing to finalize", jobID)
	}
	return nil
}

// --- Cases ---

const sqliteCaseColumns = `id, source_url, source_system, source_id, ingestion_job_id,
	case_title, case_number, citation, tribunal_name, tribunal_province,
	decision_date, filing_date, applicant, respondent,
	full_text, text_length, document_type, language, pdf_url,
	rule_based_classification, ai_classification, combined_confidence,
	discrimination_grounds, key_issues, remedies,
	extraction_quality, extraction_errors, needs_review, review_notes,
	promotion_status, promoted_case_id, promoted_at, promoted_by,
	created_at, updated_at`

func (s *SQLiteStore) InsertCase(ctx context.Context, c *model.TribunalCase) (string, bool, error) {
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	ruleJSON, err := json.Marshal(c.RuleBased)
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: marshal rule-based classification")
	}
	var aiJSON any
	if c.AI != nil {
		b, err := json.Marshal(c.AI)
		if err != nil {
			return "", false, eris.Wrap(err, "sqlite: marshal ai classification")
		}
		aiJSON = string(b)
	}
	grounds, err := marshalList(c.DiscriminationGrounds)
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: marshal grounds")
	}
	issues, err := marshalList(c.KeyIssues)
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: marshal issues")
	}
	remedies, err := marshalList(c.Remedies)
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: marshal remedies")
	}
	extErrs, err := marshalList(c.ExtractionErrors)
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: marshal extraction errors")
	}

	// INSERT OR IGNORE leans on the source_url UNIQUE constraint the same way
	// the Postgres backend does with ON CONFLICT DO NOTHING.
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tribunal_cases_raw (`+sqliteCaseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.SourceURL, c.SourceSystem, c.SourceID, nullIfEmpty(c.JobID),
		c.Title, c.CaseNumber, c.Citation, c.TribunalName, c.TribunalProvince,
		c.DecisionDate, c.FilingDate, c.Applicant, c.Respondent,
		c.FullText, c.TextLength, c.DocumentType, string(c.Language), c.PDFURL,
		string(ruleJSON), aiJSON, c.CombinedConfidence,
		string(grounds), string(issues), string(remedies),
		string(c.ExtractionQuality), string(extErrs), c.NeedsReview, c.ReviewNotes,
		string(c.PromotionStatus), nullIfEmpty(c.PromotedCaseID), c.PromotedAt, c.PromotedBy,
		now, now,
	)
	if err != nil {
		return "", false, eris.Wrapf(err, "sqlite: insert case %s", c.SourceURL)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return id, true, nil
	}

	var existingID string
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM tribunal_cases_raw WHERE source_url = ?`,
		c.SourceURL,
	).Scan(&existingID)
	if err != nil {
		return "", false, eris.Wrapf(err, "sqlite: resolve duplicate case %s", c.SourceURL)
	}
	return existingID, false, nil
}

func (s *SQLiteStore) GetCase(ctx context.Context, id string) (*model.TribunalCase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCaseColumns+` FROM tribunal_cases_raw WHERE id = ?`,
		id,
	)
	c, err := scanSQLiteCase(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get case %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) GetCaseBySourceURL(ctx context.Context, sourceURL string) (*model.TribunalCase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteCaseColumns+` FROM tribunal_cases_raw WHERE source_url = ?`,
		sourceURL,
	)
	c, err := scanSQLiteCase(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get case by url %s", sourceURL)
	}
	return c, nil
}

func (s *SQLiteStore) ListReviewQueue(ctx context.Context, limit int) ([]model.TribunalCase, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteCaseColumns+` FROM tribunal_cases_raw
		 WHERE needs_review = 1 AND promotion_status = ?
		 ORDER BY combined_confidence ASC
		 LIMIT ?`,
		string(model.PromotionPending), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list review queue")
	}
	defer rows.Close()

	var cases []model.TribunalCase
	for rows.Next() {
		c, err := scanSQLiteCase(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review case")
		}
		cases = append(cases, *c)
	}
	return cases, eris.Wrap(rows.Err(), "sqlite: list review queue iterate")
}

func (s *SQLiteStore) ListCaseSummaries(ctx context.Context) ([]model.CaseSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(json_extract(ai_classification, '$.category'), ''), combined_confidence
		 FROM tribunal_cases_raw`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list case summaries")
	}
	defer rows.Close()

	var summaries []model.CaseSummary
	for rows.Next() {
		var cs model.CaseSummary
		if err := rows.Scan(&cs.ID, &cs.AICategory, &cs.CombinedConfidence); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan case summary")
		}
		summaries = append(summaries, cs)
	}
	return summaries, eris.Wrap(rows.Err(), "sqlite: list case summaries iterate")
}

func (s *SQLiteStore) ProcessedURLs(ctx context.Context, sourceSystem string, since time.Time) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_url FROM tribunal_cases_raw WHERE source_system = ? AND created_at >= ?`,
		sourceSystem, since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: processed urls")
	}
	defer rows.Close()

	urls := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan processed url")
		}
		urls[u] = true
	}
	return urls, eris.Wrap(rows.Err(), "sqlite: processed urls iterate")
}

// --- Errors ---

func (s *SQLiteStore) LogError(ctx context.Context, e *model.IngestionError) error {
	id := e.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_errors (id, ingestion_job_id, raw_case_id, error_stage, error_type, error_message, source_url, severity, is_retryable, retry_count, resolved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.JobID, e.RawCaseID, string(e.Stage), e.ErrorType, e.Message, e.SourceURL,
		string(e.Severity), e.IsRetryable, e.RetryCount, e.Resolved, now,
	)
	return eris.Wrap(err, "sqlite: insert ingestion error")
}

func (s *SQLiteStore) ListErrors(ctx context.Context, jobID string) ([]model.IngestionError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ingestion_job_id, raw_case_id, error_stage, error_type, error_message, source_url, severity, is_retryable, retry_count, resolved, created_at
		 FROM ingestion_errors WHERE ingestion_job_id = ? ORDER BY created_at ASC`,
		jobID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingestion errors")
	}
	defer rows.Close()

	var errs []model.IngestionError
	for rows.Next() {
		var e model.IngestionError
		var stage, severity string
		var rawCaseID, sourceURL sql.NullString
		if err := rows.Scan(&e.ID, &e.JobID, &rawCaseID, &stage, &e.ErrorType, &e.Message,
			&sourceURL, &severity, &e.IsRetryable, &e.RetryCount, &e.Resolved, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ingestion error")
		}
		e.Stage = model.ErrorStage(stage)
		e.Severity = model.ErrorSeverity(severity)
		e.RawCaseID = rawCaseID.String
		e.SourceURL = sourceURL.String
		errs = append(errs, e)
	}
	return errs, eris.Wrap(rows.Err(), "sqlite: list ingestion errors iterate")
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*model.IngestionJob, error) {
	var j model.IngestionJob
	var jobType, status, sourceConfig, errorDetails, checkpoint string
	var startedAt, completedAt sql.NullTime
	var duration sql.NullInt64
	var avgScore sql.NullFloat64
	var errMsg, triggeredBy, pipelineVersion, lastURL sql.NullString

	err := row.Scan(&j.ID, &jobType, &j.SourceSystem, &sourceConfig, &status, &startedAt, &completedAt,
		&duration, &j.CasesDiscovered, &j.CasesFetched, &j.CasesClassified, &j.CasesStored, &j.CasesFailed,
		&avgScore, &j.HighConfidenceCount, &j.MediumConfidenceCount, &j.LowConfidenceCount,
		&errMsg, &errorDetails, &triggeredBy, &pipelineVersion,
		&lastURL, &checkpoint, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}

	j.JobType = model.JobType(jobType)
	j.Status = model.JobStatus(status)
	if startedAt.Valid {
		j.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	if duration.Valid {
		d := int(duration.Int64)
		j.DurationSeconds = &d
	}
	if avgScore.Valid {
		j.AvgConfidenceScore = &avgScore.Float64
	}
	j.SourceConfig = json.RawMessage(sourceConfig)
	j.ErrorDetails = json.RawMessage(errorDetails)
	j.CheckpointData = json.RawMessage(checkpoint)
	j.ErrorMessage = errMsg.String
	j.TriggeredBy = triggeredBy.String
	j.PipelineVersion = pipelineVersion.String
	j.LastProcessedURL = lastURL.String
	return &j, nil
}

func scanSQLiteCase(row rowScanner) (*model.TribunalCase, error) {
	var c model.TribunalCase
	var language, quality, promotion, ruleJSON string
	var grounds, issues, remedies, extErrs string
	var sourceID, jobID, caseNumber, citation, province *string
	var documentType, pdfURL, applicant, respondent, reviewNotes *string
	var promotedCaseID, promotedBy *string
	var aiJSON sql.NullString
	var decisionDate, filingDate, promotedAt sql.NullTime

	err := row.Scan(&c.ID, &c.SourceURL, &c.SourceSystem, &sourceID, &jobID,
		&c.Title, &caseNumber, &citation, &c.TribunalName, &province,
		&decisionDate, &filingDate, &applicant, &respondent,
		&c.FullText, &c.TextLength, &documentType, &language, &pdfURL,
		&ruleJSON, &aiJSON, &c.CombinedConfidence,
		&grounds, &issues, &remedies,
		&quality, &extErrs, &c.NeedsReview, &reviewNotes,
		&promotion, &promotedCaseID, &promotedAt, &promotedBy,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	c.SourceID = deref(sourceID)
	c.JobID = deref(jobID)
	c.CaseNumber = deref(caseNumber)
	c.Citation = deref(citation)
	c.TribunalProvince = deref(province)
	c.DocumentType = deref(documentType)
	c.PDFURL = deref(pdfURL)
	c.Applicant = deref(applicant)
	c.Respondent = deref(respondent)
	c.ReviewNotes = deref(reviewNotes)
	c.PromotedCaseID = deref(promotedCaseID)
	c.PromotedBy = deref(promotedBy)

	c.Language = model.Language(language)
	c.ExtractionQuality = model.ExtractionQuality(quality)
	c.PromotionStatus = model.PromotionStatus(promotion)
	if decisionDate.Valid {
		c.DecisionDate = &decisionDate.Time
	}
	if filingDate.Valid {
		c.FilingDate = &filingDate.Time
	}
	if promotedAt.Valid {
		c.PromotedAt = &promotedAt.Time
	}

	if err := json.Unmarshal([]byte(ruleJSON), &c.RuleBased); err != nil {
		return nil, eris.Wrap(err, "unmarshal rule-based classification")
	}
	if aiJSON.Valid && aiJSON.String != "" {
		c.AI = &model.AIResult{}
		if err := json.Unmarshal([]byte(aiJSON.String), c.AI); err != nil {
			return nil, eris.Wrap(err, "unmarshal ai classification")
		}
	}
	if err := unmarshalList([]byte(grounds), &c.DiscriminationGrounds); err != nil {
		return nil, eris.Wrap(err, "unmarshal grounds")
	}
	if err := unmarshalList([]byte(issues), &c.KeyIssues); err != nil {
		return nil, eris.Wrap(err, "unmarshal issues")
	}
	if err := unmarshalList([]byte(remedies), &c.Remedies); err != nil {
		return nil, eris.Wrap(err, "unmarshal remedies")
	}
	if err := unmarshalList([]byte(extErrs), &c.ExtractionErrors); err != nil {
		return nil, eris.Wrap(err, "unmarshal extraction errors")
	}
	return &c, nil
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}
