package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jobswipe/jobintel/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS job_sources (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	kind                 TEXT NOT NULL,
	endpoint             TEXT NOT NULL,
	poll_interval_secs   INTEGER NOT NULL DEFAULT 3600,
	last_poll_at         DATETIME,
	next_poll_at         DATETIME,
	status               TEXT NOT NULL DEFAULT 'active',
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	last_success_at      DATETIME,
	last_failure_at      DATETIME,
	last_error           TEXT NOT NULL DEFAULT '',
	total_ingested       INTEGER NOT NULL DEFAULT 0,
	total_active         INTEGER NOT NULL DEFAULT 0,
	reliability_score    REAL NOT NULL DEFAULT 1.0,
	priority             INTEGER NOT NULL DEFAULT 0,
	tags                 TEXT NOT NULL DEFAULT '[]',
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id                  TEXT PRIMARY KEY,
	dedup_key           TEXT NOT NULL UNIQUE,
	title               TEXT NOT NULL,
	company             TEXT NOT NULL,
	location            TEXT NOT NULL DEFAULT '',
	work_type           TEXT NOT NULL DEFAULT '',
	salary_min          INTEGER NOT NULL DEFAULT 0,
	salary_max          INTEGER NOT NULL DEFAULT 0,
	description         TEXT NOT NULL DEFAULT '',
	requirements        TEXT NOT NULL DEFAULT '[]',
	apply_url           TEXT NOT NULL DEFAULT '',
	logo_url            TEXT NOT NULL DEFAULT '',
	logo_domain         TEXT NOT NULL DEFAULT '',
	logo_method         TEXT NOT NULL DEFAULT '',
	logo_verified_at    DATETIME,
	source_id           TEXT NOT NULL,
	source_native_id    TEXT NOT NULL DEFAULT '',
	first_seen_at       DATETIME NOT NULL,
	posted_at           DATETIME,
	updated_at          DATETIME NOT NULL,
	verification_status TEXT NOT NULL DEFAULT 'unverified',
	verified_at         DATETIME,
	failed_checks       INTEGER NOT NULL DEFAULT 0,
	enrichment          TEXT,
	freshness_rank      REAL NOT NULL DEFAULT 0,
	rank_score          REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id                 TEXT PRIMARY KEY,
	started_at         DATETIME NOT NULL,
	completed_at       DATETIME,
	duration_ms        INTEGER NOT NULL DEFAULT 0,
	sources_processed  INTEGER NOT NULL DEFAULT 0,
	total_fetched      INTEGER NOT NULL DEFAULT 0,
	total_new          INTEGER NOT NULL DEFAULT 0,
	total_updated      INTEGER NOT NULL DEFAULT 0,
	total_deduplicated INTEGER NOT NULL DEFAULT 0,
	total_errors       INTEGER NOT NULL DEFAULT 0,
	success            INTEGER NOT NULL DEFAULT 0,
	error              TEXT NOT NULL DEFAULT '',
	sources            TEXT NOT NULL DEFAULT '[]',
	sample_job_ids     TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS company_logo_cache (
	domain     TEXT PRIMARY KEY,
	logo_url   TEXT NOT NULL,
	method     TEXT NOT NULL,
	checked_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sources_status_next_poll ON job_sources(status, next_poll_at);
CREATE INDEX IF NOT EXISTS idx_jobs_verification ON jobs(verification_status, verified_at);
CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source_id);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON ingestion_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- sources ---

const sourceColumns = `id, name, kind, endpoint, poll_interval_secs, last_poll_at, next_poll_at,
	status, consecutive_failures, last_success_at, last_failure_at, last_error,
	total_ingested, total_active, reliability_score, priority, tags, created_at, updated_at`

func (s *SQLiteStore) CreateSource(ctx context.Context, src *model.JobSource) error {
	if src.ID == "" {
		src.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now
	}
	src.UpdatedAt = now
	if src.Status == "" {
		src.Status = model.SourceStatusActive
	}
	if !src.Kind.Valid() {
		return eris.Errorf("sqlite: invalid source kind %q", src.Kind)
	}

	tags, err := json.Marshal(src.Tags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO job_sources (`+sourceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, string(src.Kind), src.Endpoint, int64(src.PollInterval.Seconds()),
		nullTime(src.LastPollAt), nullTime(src.NextPollAt),
		string(src.Status), src.ConsecutiveFailures,
		nullTime(src.LastSuccessAt), nullTime(src.LastFailureAt), src.LastError,
		src.TotalIngested, src.TotalActive, src.ReliabilityScore,
		boolToInt(src.Priority), string(tags), src.CreatedAt, src.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert source %s", src.ID)
}

func (s *SQLiteStore) GetSource(ctx context.Context, id string) (*model.JobSource, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM job_sources WHERE id = ?`, id)
	src, err := scanSource(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get source %s", id)
	}
	return src, nil
}

func (s *SQLiteStore) ListSources(ctx context.Context, filter SourceFilter) ([]model.JobSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM job_sources WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sources")
	}
	defer rows.Close()
	return collectSources(rows)
}

func (s *SQLiteStore) ListDueSources(ctx context.Context, now time.Time, limit int) ([]model.JobSource, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM job_sources
		 WHERE status = ? AND (next_poll_at IS NULL OR next_poll_at <= ?)
		 ORDER BY priority DESC, next_poll_at ASC NULLS FIRST
		 LIMIT ?`,
		string(model.SourceStatusActive), now.UTC(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list due sources")
	}
	defer rows.Close()
	return collectSources(rows)
}

func (s *SQLiteStore) SaveSourceState(ctx context.Context, src *model.JobSource) error {
	src.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_sources SET
			last_poll_at = ?, next_poll_at = ?, status = ?, consecutive_failures = ?,
			last_success_at = ?, last_failure_at = ?, last_error = ?,
			total_ingested = ?, total_active = ?, reliability_score = ?, updated_at = ?
		 WHERE id = ?`,
		nullTime(src.LastPollAt), nullTime(src.NextPollAt), string(src.Status),
		src.ConsecutiveFailures, nullTime(src.LastSuccessAt), nullTime(src.LastFailureAt),
		src.LastError, src.TotalIngested, src.TotalActive, src.ReliabilityScore,
		src.UpdatedAt, src.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save source state %s", src.ID)
	}
	return checkRowsAffected(res, "source", src.ID)
}

func (s *SQLiteStore) SetSourceStatus(ctx context.Context, id string, status model.SourceStatus) error {
	if !status.Valid() {
		return eris.Errorf("sqlite: invalid source status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_sources SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set source status %s", id)
	}
	return checkRowsAffected(res, "source", id)
}

// --- jobs ---

const jobColumns = `id, dedup_key, title, company, location, work_type, salary_min, salary_max,
	description, requirements, apply_url, logo_url, logo_domain, logo_method, logo_verified_at,
	source_id, source_native_id, first_seen_at, posted_at, updated_at,
	verification_status, verified_at, failed_checks, enrichment, freshness_rank, rank_score`

// UpsertJob inserts a posting or folds it into the existing row with the
// same dedup key. The insert relies on the unique constraint to decide
// new-vs-existing, and the change comparison lives inside the UPDATE's
// WHERE clause, so two concurrent calls for the same key cannot double
// insert or interleave a stale read.
func (s *SQLiteStore) UpsertJob(ctx context.Context, job *model.Job) (UpsertResult, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.DedupKey == "" {
		return UpsertResult{}, eris.New("sqlite: upsert job: empty dedup key")
	}
	now := time.Now().UTC()
	if job.FirstSeenAt.IsZero() {
		job.FirstSeenAt = now
	}
	job.UpdatedAt = now
	if job.VerificationStatus == "" {
		job.VerificationStatus = model.VerificationUnverified
	}

	reqs, err := json.Marshal(job.Requirements)
	if err != nil {
		return UpsertResult{}, eris.Wrap(err, "sqlite: marshal requirements")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, dedup_key, title, company, location, work_type, salary_min, salary_max,
			description, requirements, apply_url, source_id, source_native_id,
			first_seen_at, posted_at, updated_at, verification_status, failed_checks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		 ON CONFLICT(dedup_key) DO NOTHING`,
		job.ID, job.DedupKey, job.Title, job.Company, job.Location, job.WorkType,
		job.SalaryMin, job.SalaryMax, job.Description, string(reqs), job.ApplyURL,
		job.SourceID, job.SourceNativeID, job.FirstSeenAt, nullTime(job.PostedAt),
		job.UpdatedAt, string(job.VerificationStatus),
	)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "sqlite: insert job %s", job.DedupKey)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return UpsertResult{Outcome: OutcomeNew, JobID: job.ID}, nil
	}

	// Row exists. Refresh mutable fields only when something changed; the
	// comparison runs in SQL so updated_at is bumped exactly when content
	// moved.
	res, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET
			description = ?, salary_min = ?, salary_max = ?, requirements = ?,
			work_type = ?, apply_url = ?, updated_at = ?
		 WHERE dedup_key = ?
		   AND (description <> ? OR salary_min <> ? OR salary_max <> ? OR requirements <> ?
		        OR work_type <> ? OR apply_url <> ?)`,
		job.Description, job.SalaryMin, job.SalaryMax, string(reqs),
		job.WorkType, job.ApplyURL, now,
		job.DedupKey,
		job.Description, job.SalaryMin, job.SalaryMax, string(reqs),
		job.WorkType, job.ApplyURL,
	)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "sqlite: update job %s", job.DedupKey)
	}

	var existingID string
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE dedup_key = ?`, job.DedupKey).Scan(&existingID); err != nil {
		return UpsertResult{}, eris.Wrapf(err, "sqlite: resolve job id %s", job.DedupKey)
	}

	if n, _ := res.RowsAffected(); n == 1 {
		return UpsertResult{Outcome: OutcomeUpdated, JobID: existingID}, nil
	}
	return UpsertResult{Outcome: OutcomeUnchanged, JobID: existingID}, nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return job, nil
}

func (s *SQLiteStore) GetJobByDedupKey(ctx context.Context, key string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE dedup_key = ?`, key)
	job, err := scanJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job by key %s", key)
	}
	return job, nil
}

func (s *SQLiteStore) ListJobsDueVerification(ctx context.Context, cutoff time.Time, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE verification_status <> ?
		   AND (verified_at IS NULL OR verified_at < ?)
		   AND updated_at < ?
		 ORDER BY verified_at ASC NULLS FIRST
		 LIMIT ?`,
		string(model.VerificationExpired), cutoff.UTC(), cutoff.UTC(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs due verification")
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (s *SQLiteStore) ListJobsMissingEnrichment(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE enrichment IS NULL AND verification_status <> ?
		 ORDER BY first_seen_at DESC
		 LIMIT ?`,
		string(model.VerificationExpired), limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs missing enrichment")
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (s *SQLiteStore) ListJobsMissingLogo(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs
		 WHERE logo_url = '' AND verification_status <> ?
		 ORDER BY first_seen_at DESC
		 LIMIT ?`,
		string(model.VerificationExpired), limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs missing logo")
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (s *SQLiteStore) SetJobVerification(ctx context.Context, id string, status model.VerificationStatus, failedChecks int, at time.Time) error {
	if !status.Valid() {
		return eris.Errorf("sqlite: invalid verification status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET verification_status = ?, failed_checks = ?, verified_at = ? WHERE id = ?`,
		string(status), failedChecks, at.UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set job verification %s", id)
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) SetJobEnrichment(ctx context.Context, id string, e *model.Enrichment) error {
	data, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET enrichment = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set job enrichment %s", id)
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) SetJobLogo(ctx context.Context, id, logoURL, domain string, method model.LogoMethod, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET logo_url = ?, logo_domain = ?, logo_method = ?, logo_verified_at = ? WHERE id = ?`,
		logoURL, domain, string(method), at.UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set job logo %s", id)
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) CountJobsByVerification(ctx context.Context) (map[model.VerificationStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT verification_status, COUNT(*) FROM jobs GROUP BY verification_status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count jobs by verification")
	}
	defer rows.Close()

	counts := make(map[model.VerificationStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count")
		}
		counts[model.VerificationStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count rows")
}

func (s *SQLiteStore) ListActivePostedTimes(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(posted_at, first_seen_at) FROM jobs WHERE verification_status <> ?`,
		string(model.VerificationExpired))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active posted times")
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan posted time")
		}
		times = append(times, t)
	}
	return times, eris.Wrap(rows.Err(), "sqlite: posted time rows")
}

// --- runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.IngestionRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run sources")
	}
	samples, err := json.Marshal(run.SampleJobIDs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run samples")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingestion_runs (id, started_at, completed_at, duration_ms,
			sources_processed, total_fetched, total_new, total_updated, total_deduplicated,
			total_errors, success, error, sources, sample_job_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), nullTime(run.CompletedAt), run.DurationMs,
		run.SourcesProcessed, run.TotalFetched, run.TotalNew, run.TotalUpdated,
		run.TotalDeduplicated, run.TotalErrors, boolToInt(run.Success), run.Error,
		string(sources), string(samples),
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, completed_at, duration_ms, sources_processed, total_fetched,
			total_new, total_updated, total_deduplicated, total_errors, success, error,
			sources, sample_job_ids
		 FROM ingestion_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		var (
			run       model.IngestionRun
			completed sql.NullTime
			success   int
			sources   string
			samples   string
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &completed, &run.DurationMs,
			&run.SourcesProcessed, &run.TotalFetched, &run.TotalNew, &run.TotalUpdated,
			&run.TotalDeduplicated, &run.TotalErrors, &success, &run.Error,
			&sources, &samples); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		run.Success = success != 0
		if completed.Valid {
			t := completed.Time
			run.CompletedAt = &t
		}
		if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run sources")
		}
		if err := json.Unmarshal([]byte(samples), &run.SampleJobIDs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run samples")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: run rows")
}

// --- logo cache ---

func (s *SQLiteStore) GetLogoCache(ctx context.Context, domain string) (*model.LogoCacheEntry, error) {
	var (
		entry  model.LogoCacheEntry
		method string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT domain, logo_url, method, checked_at FROM company_logo_cache WHERE domain = ?`,
		domain).Scan(&entry.Domain, &entry.LogoURL, &method, &entry.CheckedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get logo cache %s", domain)
	}
	entry.Method = model.LogoMethod(method)
	return &entry, nil
}

func (s *SQLiteStore) SetLogoCache(ctx context.Context, entry *model.LogoCacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company_logo_cache (domain, logo_url, method, checked_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET
			logo_url = excluded.logo_url, method = excluded.method, checked_at = excluded.checked_at`,
		entry.Domain, entry.LogoURL, string(entry.Method), entry.CheckedAt.UTC())
	return eris.Wrapf(err, "sqlite: set logo cache %s", entry.Domain)
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*model.JobSource, error) {
	var (
		src                                              model.JobSource
		kind, status, tags                               string
		pollSecs                                         int64
		lastPoll, nextPoll, lastSuccess, lastFailure     sql.NullTime
		priority                                         int
	)
	err := row.Scan(&src.ID, &src.Name, &kind, &src.Endpoint, &pollSecs,
		&lastPoll, &nextPoll, &status, &src.ConsecutiveFailures,
		&lastSuccess, &lastFailure, &src.LastError,
		&src.TotalIngested, &src.TotalActive, &src.ReliabilityScore,
		&priority, &tags, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	src.Kind = model.SourceKind(kind)
	src.Status = model.SourceStatus(status)
	src.PollInterval = time.Duration(pollSecs) * time.Second
	src.Priority = priority != 0
	src.LastPollAt = timePtr(lastPoll)
	src.NextPollAt = timePtr(nextPoll)
	src.LastSuccessAt = timePtr(lastSuccess)
	src.LastFailureAt = timePtr(lastFailure)
	if err := json.Unmarshal([]byte(tags), &src.Tags); err != nil {
		return nil, eris.Wrap(err, "unmarshal tags")
	}
	return &src, nil
}

func collectSources(rows *sql.Rows) ([]model.JobSource, error) {
	var sources []model.JobSource
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source")
		}
		sources = append(sources, *src)
	}
	return sources, eris.Wrap(rows.Err(), "sqlite: source rows")
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job                            model.Job
		reqs, logoMethod, status       string
		logoVerified, posted, verified sql.NullTime
		enrichment                     sql.NullString
	)
	err := row.Scan(&job.ID, &job.DedupKey, &job.Title, &job.Company, &job.Location,
		&job.WorkType, &job.SalaryMin, &job.SalaryMax, &job.Description, &reqs,
		&job.ApplyURL, &job.LogoURL, &job.LogoDomain, &logoMethod, &logoVerified,
		&job.SourceID, &job.SourceNativeID, &job.FirstSeenAt, &posted, &job.UpdatedAt,
		&status, &verified, &job.FailedChecks, &enrichment,
		&job.FreshnessRank, &job.RankScore)
	if err != nil {
		return nil, err
	}
	job.LogoMethod = model.LogoMethod(logoMethod)
	job.VerificationStatus = model.VerificationStatus(status)
	job.LogoLastVerifiedAt = timePtr(logoVerified)
	job.PostedAt = timePtr(posted)
	job.VerifiedAt = timePtr(verified)
	if err := json.Unmarshal([]byte(reqs), &job.Requirements); err != nil {
		return nil, eris.Wrap(err, "unmarshal requirements")
	}
	if enrichment.Valid && enrichment.String != "" {
		var e model.Enrichment
		if err := json.Unmarshal([]byte(enrichment.String), &e); err != nil {
			return nil, eris.Wrap(err, "unmarshal enrichment")
		}
		job.Enrichment = &e
	}
	return &job, nil
}

func collectJobs(rows *sql.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: job rows")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", kind, id)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
