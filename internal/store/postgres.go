package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jobswipe/jobintel/internal/db"
	"github.com/jobswipe/jobintel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS job_sources (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	kind                 TEXT NOT NULL,
	endpoint             TEXT NOT NULL,
	poll_interval_secs   BIGINT NOT NULL DEFAULT 3600,
	last_poll_at         TIMESTAMPTZ,
	next_poll_at         TIMESTAMPTZ,
	status               TEXT NOT NULL DEFAULT 'active',
	consecutive_failures INT NOT NULL DEFAULT 0,
	last_success_at      TIMESTAMPTZ,
	last_failure_at      TIMESTAMPTZ,
	last_error           TEXT NOT NULL DEFAULT '',
	total_ingested       INT NOT NULL DEFAULT 0,
	total_active         INT NOT NULL DEFAULT 0,
	reliability_score    DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	priority             BOOLEAN NOT NULL DEFAULT FALSE,
	tags                 JSONB NOT NULL DEFAULT '[]',
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id                  TEXT PRIMARY KEY,
	dedup_key           TEXT NOT NULL UNIQUE,
	title               TEXT NOT NULL,
	company             TEXT NOT NULL,
	location            TEXT NOT NULL DEFAULT '',
	work_type           TEXT NOT NULL DEFAULT '',
	salary_min          INT NOT NULL DEFAULT 0,
	salary_max          INT NOT NULL DEFAULT 0,
	description         TEXT NOT NULL DEFAULT '',
	requirements        JSONB NOT NULL DEFAULT '[]',
	apply_url           TEXT NOT NULL DEFAULT '',
	logo_url            TEXT NOT NULL DEFAULT '',
	logo_domain         TEXT NOT NULL DEFAULT '',
	logo_method         TEXT NOT NULL DEFAULT '',
	logo_verified_at    TIMESTAMPTZ,
	source_id           TEXT NOT NULL,
	source_native_id    TEXT NOT NULL DEFAULT '',
	first_seen_at       TIMESTAMPTZ NOT NULL,
	posted_at           TIMESTAMPTZ,
	updated_at          TIMESTAMPTZ NOT NULL,
	verification_status TEXT NOT NULL DEFAULT 'unverified',
	verified_at         TIMESTAMPTZ,
	failed_checks       INT NOT NULL DEFAULT 0,
	enrichment          JSONB,
	freshness_rank      DOUBLE PRECISION NOT NULL DEFAULT 0,
	rank_score          DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	id                 TEXT PRIMARY KEY,
	started_at         TIMESTAMPTZ NOT NULL,
	completed_at       TIMESTAMPTZ,
	duration_ms        BIGINT NOT NULL DEFAULT 0,
	sources_processed  INT NOT NULL DEFAULT 0,
	total_fetched      INT NOT NULL DEFAULT 0,
	total_new          INT NOT NULL DEFAULT 0,
	total_updated      INT NOT NULL DEFAULT 0,
	total_deduplicated INT NOT NULL DEFAULT 0,
	total_errors       INT NOT NULL DEFAULT 0,
	success            BOOLEAN NOT NULL DEFAULT FALSE,
	error              TEXT NOT NULL DEFAULT '',
	sources            JSONB NOT NULL DEFAULT '[]',
	sample_job_ids     JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS company_logo_cache (
	domain     TEXT PRIMARY KEY,
	logo_url   TEXT NOT NULL,
	method     TEXT NOT NULL,
	checked_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sources_status_next_poll ON job_sources(status, next_poll_at);
CREATE INDEX IF NOT EXISTS idx_jobs_verification ON jobs(verification_status, verified_at);
CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source_id);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON ingestion_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- sources ---

func (s *PostgresStore) CreateSource(ctx context.Context, src *model.JobSource) error {
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
		return eris.Errorf("postgres: invalid source kind %q", src.Kind)
	}

	tags, err := json.Marshal(src.Tags)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal tags")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO job_sources (id, name, kind, endpoint, poll_interval_secs, last_poll_at, next_poll_at,
			status, consecutive_failures, last_success_at, last_failure_at, last_error,
			total_ingested, total_active, reliability_score, priority, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		src.ID, src.Name, string(src.Kind), src.Endpoint, int64(src.PollInterval.Seconds()),
		nullTime(src.LastPollAt), nullTime(src.NextPollAt),
		string(src.Status), src.ConsecutiveFailures,
		nullTime(src.LastSuccessAt), nullTime(src.LastFailureAt), src.LastError,
		src.TotalIngested, src.TotalActive, src.ReliabilityScore,
		src.Priority, string(tags), src.CreatedAt, src.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert source %s", src.ID)
}

const pgSourceColumns = `id, name, kind, endpoint, poll_interval_secs, last_poll_at, next_poll_at,
	status, consecutive_failures, last_success_at, last_failure_at, last_error,
	total_ingested, total_active, reliability_score, priority, tags, created_at, updated_at`

func (s *PostgresStore) GetSource(ctx context.Context, id string) (*model.JobSource, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgSourceColumns+` FROM job_sources WHERE id = $1`, id)
	src, err := scanPgSource(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get source %s", id)
	}
	return src, nil
}

func (s *PostgresStore) ListSources(ctx context.Context, filter SourceFilter) ([]model.JobSource, error) {
	query := `SELECT ` + pgSourceColumns + ` FROM job_sources WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		if len(args) == 1 {
			query += ` AND kind = $1`
		} else {
			query += ` AND kind = $2`
		}
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sources")
	}
	defer rows.Close()
	return collectPgSources(rows)
}

func (s *PostgresStore) ListDueSources(ctx context.Context, now time.Time, limit int) ([]model.JobSource, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgSourceColumns+` FROM job_sources
		 WHERE status = $1 AND (next_poll_at IS NULL OR next_poll_at <= $2)
		 ORDER BY priority DESC, next_poll_at ASC NULLS FIRST
		 LIMIT $3`,
		string(model.SourceStatusActive), now.UTC(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list due sources")
	}
	defer rows.Close()
	return collectPgSources(rows)
}

func (s *PostgresStore) SaveSourceState(ctx context.Context, src *model.JobSource) error {
	src.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_sources SET
			last_poll_at = $1, next_poll_at = $2, status = $3, consecutive_failures = $4,
			last_success_at = $5, last_failure_at = $6, last_error = $7,
			total_ingested = $8, total_active = $9, reliability_score = $10, updated_at = $11
		 WHERE id = $12`,
		nullTime(src.LastPollAt), nullTime(src.NextPollAt), string(src.Status),
		src.ConsecutiveFailures, nullTime(src.LastSuccessAt), nullTime(src.LastFailureAt),
		src.LastError, src.TotalIngested, src.TotalActive, src.ReliabilityScore,
		src.UpdatedAt, src.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save source state %s", src.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("source not found: %s", src.ID)
	}
	return nil
}

func (s *PostgresStore) SetSourceStatus(ctx context.Context, id string, status model.SourceStatus) error {
	if !status.Valid() {
		return eris.Errorf("postgres: invalid source status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_sources SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set source status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("source not found: %s", id)
	}
	return nil
}

// --- jobs ---

const pgJobColumns = `id, dedup_key, title, company, location, work_type, salary_min, salary_max,
	description, requirements, apply_url, logo_url, logo_domain, logo_method, logo_verified_at,
	source_id, source_native_id, first_seen_at, posted_at, updated_at,
	verification_status, verified_at, failed_checks, enrichment, freshness_rank, rank_score`

// UpsertJob mirrors the sqlite implementation: insert races on the unique
// dedup_key constraint, change detection runs inside the UPDATE statement.
func (s *PostgresStore) UpsertJob(ctx context.Context, job *model.Job) (UpsertResult, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.DedupKey == "" {
		return UpsertResult{}, eris.New("postgres: upsert job: empty dedup key")
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
		return UpsertResult{}, eris.Wrap(err, "postgres: marshal requirements")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, dedup_key, title, company, location, work_type, salary_min, salary_max,
			description, requirements, apply_url, source_id, source_native_id,
			first_seen_at, posted_at, updated_at, verification_status, failed_checks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 0)
		 ON CONFLICT (dedup_key) DO NOTHING`,
		job.ID, job.DedupKey, job.Title, job.Company, job.Location, job.WorkType,
		job.SalaryMin, job.SalaryMax, job.Description, string(reqs), job.ApplyURL,
		job.SourceID, job.SourceNativeID, job.FirstSeenAt, nullTime(job.PostedAt),
		job.UpdatedAt, string(job.VerificationStatus),
	)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "postgres: insert job %s", job.DedupKey)
	}
	if tag.RowsAffected() == 1 {
		return UpsertResult{Outcome: OutcomeNew, JobID: job.ID}, nil
	}

	tag, err = s.pool.Exec(ctx,
		`UPDATE jobs SET
			description = $1, salary_min = $2, salary_max = $3, requirements = $4,
			work_type = $5, apply_url = $6, updated_at = $7
		 WHERE dedup_key = $8
		   AND (description IS DISTINCT FROM $1 OR salary_min IS DISTINCT FROM $2
		        OR salary_max IS DISTINCT FROM $3 OR requirements IS DISTINCT FROM $4::jsonb
		        OR work_type IS DISTINCT FROM $5 OR apply_url IS DISTINCT FROM $6)`,
		job.Description, job.SalaryMin, job.SalaryMax, string(reqs),
		job.WorkType, job.ApplyURL, now, job.DedupKey,
	)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "postgres: update job %s", job.DedupKey)
	}

	var existingID string
	if err := s.pool.QueryRow(ctx,
		`SELECT id FROM jobs WHERE dedup_key = $1`, job.DedupKey).Scan(&existingID); err != nil {
		return UpsertResult{}, eris.Wrapf(err, "postgres: resolve job id %s", job.DedupKey)
	}

	if tag.RowsAffected() == 1 {
		return UpsertResult{Outcome: OutcomeUpdated, JobID: existingID}, nil
	}
	return UpsertResult{Outcome: OutcomeUnchanged, JobID: existingID}, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgJobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanPgJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	return job, nil
}

func (s *PostgresStore) GetJobByDedupKey(ctx context.Context, key string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgJobColumns+` FROM jobs WHERE dedup_key = $1`, key)
	job, err := scanPgJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job by key %s", key)
	}
	return job, nil
}

func (s *PostgresStore) ListJobsDueVerification(ctx context.Context, cutoff time.Time, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgJobColumns+` FROM jobs
		 WHERE verification_status <> $1
		   AND (verified_at IS NULL OR verified_at < $2)
		   AND updated_at < $2
		 ORDER BY verified_at ASC NULLS FIRST
		 LIMIT $3`,
		string(model.VerificationExpired), cutoff.UTC(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs due verification")
	}
	defer rows.Close()
	return collectPgJobs(rows)
}

func (s *PostgresStore) ListJobsMissingEnrichment(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgJobColumns+` FROM jobs
		 WHERE enrichment IS NULL AND verification_status <> $1
		 ORDER BY first_seen_at DESC
		 LIMIT $2`,
		string(model.VerificationExpired), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs missing enrichment")
	}
	defer rows.Close()
	return collectPgJobs(rows)
}

func (s *PostgresStore) ListJobsMissingLogo(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgJobColumns+` FROM jobs
		 WHERE logo_url = '' AND verification_status <> $1
		 ORDER BY first_seen_at DESC
		 LIMIT $2`,
		string(model.VerificationExpired), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs missing logo")
	}
	defer rows.Close()
	return collectPgJobs(rows)
}

func (s *PostgresStore) SetJobVerification(ctx context.Context, id string, status model.VerificationStatus, failedChecks int, at time.Time) error {
	if !status.Valid() {
		return eris.Errorf("postgres: invalid verification status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET verification_status = $1, failed_checks = $2, verified_at = $3 WHERE id = $4`,
		string(status), failedChecks, at.UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set job verification %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetJobEnrichment(ctx context.Context, id string, e *model.Enrichment) error {
	data, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET enrichment = $1 WHERE id = $2`, string(data), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set job enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetJobLogo(ctx context.Context, id, logoURL, domain string, method model.LogoMethod, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET logo_url = $1, logo_domain = $2, logo_method = $3, logo_verified_at = $4 WHERE id = $5`,
		logoURL, domain, string(method), at.UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set job logo %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) CountJobsByVerification(ctx context.Context) (map[model.VerificationStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT verification_status, COUNT(*) FROM jobs GROUP BY verification_status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count jobs by verification")
	}
	defer rows.Close()

	counts := make(map[model.VerificationStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan count")
		}
		counts[model.VerificationStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count rows")
}

func (s *PostgresStore) ListActivePostedTimes(ctx context.Context) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT COALESCE(posted_at, first_seen_at) FROM jobs WHERE verification_status <> $1`,
		string(model.VerificationExpired))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active posted times")
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, eris.Wrap(err, "postgres: scan posted time")
		}
		times = append(times, t)
	}
	return times, eris.Wrap(rows.Err(), "postgres: posted time rows")
}

// --- runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.IngestionRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run sources")
	}
	samples, err := json.Marshal(run.SampleJobIDs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run samples")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO ingestion_runs (id, started_at, completed_at, duration_ms,
			sources_processed, total_fetched, total_new, total_updated, total_deduplicated,
			total_errors, success, error, sources, sample_job_ids)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		run.ID, run.StartedAt.UTC(), nullTime(run.CompletedAt), run.DurationMs,
		run.SourcesProcessed, run.TotalFetched, run.TotalNew, run.TotalUpdated,
		run.TotalDeduplicated, run.TotalErrors, run.Success, run.Error,
		string(sources), string(samples),
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.IngestionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, started_at, completed_at, duration_ms, sources_processed, total_fetched,
			total_new, total_updated, total_deduplicated, total_errors, success, error,
			sources, sample_job_ids
		 FROM ingestion_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		var (
			run       model.IngestionRun
			completed sql.NullTime
			sources   []byte
			samples   []byte
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &completed, &run.DurationMs,
			&run.SourcesProcessed, &run.TotalFetched, &run.TotalNew, &run.TotalUpdated,
			&run.TotalDeduplicated, &run.TotalErrors, &run.Success, &run.Error,
			&sources, &samples); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if completed.Valid {
			t := completed.Time
			run.CompletedAt = &t
		}
		if err := json.Unmarshal(sources, &run.Sources); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run sources")
		}
		if err := json.Unmarshal(samples, &run.SampleJobIDs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run samples")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: run rows")
}

// --- logo cache ---

func (s *PostgresStore) GetLogoCache(ctx context.Context, domain string) (*model.LogoCacheEntry, error) {
	var (
		entry  model.LogoCacheEntry
		method string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT domain, logo_url, method, checked_at FROM company_logo_cache WHERE domain = $1`,
		domain).Scan(&entry.Domain, &entry.LogoURL, &method, &entry.CheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get logo cache %s", domain)
	}
	entry.Method = model.LogoMethod(method)
	return &entry, nil
}

func (s *PostgresStore) SetLogoCache(ctx context.Context, entry *model.LogoCacheEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company_logo_cache (domain, logo_url, method, checked_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (domain) DO UPDATE SET
			logo_url = EXCLUDED.logo_url, method = EXCLUDED.method, checked_at = EXCLUDED.checked_at`,
		entry.Domain, entry.LogoURL, string(entry.Method), entry.CheckedAt.UTC())
	return eris.Wrapf(err, "postgres: set logo cache %s", entry.Domain)
}

// --- scan helpers ---

func scanPgSource(row pgx.Row) (*model.JobSource, error) {
	var (
		src                                          model.JobSource
		kind, status                                 string
		tags                                         []byte
		pollSecs                                     int64
		lastPoll, nextPoll, lastSuccess, lastFailure sql.NullTime
	)
	err := row.Scan(&src.ID, &src.Name, &kind, &src.Endpoint, &pollSecs,
		&lastPoll, &nextPoll, &status, &src.ConsecutiveFailures,
		&lastSuccess, &lastFailure, &src.LastError,
		&src.TotalIngested, &src.TotalActive, &src.ReliabilityScore,
		&src.Priority, &tags, &src.CreatedAt, &src.UpdatedAt)
	if err != nil {
		return nil, err
	}
	src.Kind = model.SourceKind(kind)
	src.Status = model.SourceStatus(status)
	src.PollInterval = time.Duration(pollSecs) * time.Second
	src.LastPollAt = timePtr(lastPoll)
	src.NextPollAt = timePtr(nextPoll)
	src.LastSuccessAt = timePtr(lastSuccess)
	src.LastFailureAt = timePtr(lastFailure)
	if err := json.Unmarshal(tags, &src.Tags); err != nil {
		return nil, eris.Wrap(err, "unmarshal tags")
	}
	return &src, nil
}

func collectPgSources(rows pgx.Rows) ([]model.JobSource, error) {
	var sources []model.JobSource
	for rows.Next() {
		src, err := scanPgSource(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		sources = append(sources, *src)
	}
	return sources, eris.Wrap(rows.Err(), "postgres: source rows")
}

func scanPgJob(row pgx.Row) (*model.Job, error) {
	var (
		job                            model.Job
		logoMethod, status             string
		reqs, enrichment               []byte
		logoVerified, posted, verified sql.NullTime
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
	if err := json.Unmarshal(reqs, &job.Requirements); err != nil {
		return nil, eris.Wrap(err, "unmarshal requirements")
	}
	if len(enrichment) > 0 {
		var e model.Enrichment
		if err := json.Unmarshal(enrichment, &e); err != nil {
			return nil, eris.Wrap(err, "unmarshal enrichment")
		}
		job.Enrichment = &e
	}
	return &job, nil
}

func collectPgJobs(rows pgx.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		job, err := scanPgJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: job rows")
}
