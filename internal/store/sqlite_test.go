package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobswipe/jobintel/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testSource(id string) *model.JobSource {
	return &model.JobSource{
		ID:               id,
		Name:             "Test Source " + id,
		Kind:             model.SourceKindAPI,
		Endpoint:         "acme",
		PollInterval:     time.Hour,
		Status:           model.SourceStatusActive,
		ReliabilityScore: 1.0,
	}
}

func testJob(key string) *model.Job {
	return &model.Job{
		DedupKey:    key,
		Title:       "Backend Engineer",
		Company:     "Acme",
		Location:    "Remote",
		Description: "Build things",
		SourceID:    "src-1",
		ApplyURL:    "https://acme.com/jobs/1",
	}
}

func TestSourceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := testSource("src-1")
	src.Priority = true
	src.Tags = []string{"ats", "priority"}
	require.NoError(t, s.CreateSource(ctx, src))

	got, err := s.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, src.Name, got.Name)
	assert.Equal(t, model.SourceKindAPI, got.Kind)
	assert.Equal(t, time.Hour, got.PollInterval)
	assert.Equal(t, model.SourceStatusActive, got.Status)
	assert.True(t, got.Priority)
	assert.Equal(t, []string{"ats", "priority"}, got.Tags)
}

func TestCreateSourceRejectsInvalidKind(t *testing.T) {
	s := newTestStore(t)
	src := testSource("src-1")
	src.Kind = "rss"
	assert.Error(t, s.CreateSource(context.Background(), src))
}

func TestListDueSourcesOrderingAndFiltering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	older := now.Add(-2 * time.Hour)
	future := now.Add(time.Hour)

	never := testSource("never-polled")
	require.NoError(t, s.CreateSource(ctx, never))

	due := testSource("due")
	due.NextPollAt = &past
	require.NoError(t, s.CreateSource(ctx, due))

	priority := testSource("priority-due")
	priority.NextPollAt = &older
	priority.Priority = true
	require.NoError(t, s.CreateSource(ctx, priority))

	notDue := testSource("not-due")
	notDue.NextPollAt = &future
	require.NoError(t, s.CreateSource(ctx, notDue))

	paused := testSource("paused")
	paused.NextPollAt = &past
	paused.Status = model.SourceStatusPaused
	require.NoError(t, s.CreateSource(ctx, paused))

	got, err := s.ListDueSources(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "priority-due", got[0].ID, "priority sources come first")
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	assert.Contains(t, ids, "never-polled")
	assert.Contains(t, ids, "due")
	assert.NotContains(t, ids, "not-due")
	assert.NotContains(t, ids, "paused")
}

func TestSaveSourceState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateSource(ctx, testSource("src-1")))

	src, err := s.GetSource(ctx, "src-1")
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	next := now.Add(time.Hour)
	src.LastPollAt = &now
	src.NextPollAt = &next
	src.ConsecutiveFailures = 2
	src.Status = model.SourceStatusFailing
	src.LastError = "boom"
	src.ReliabilityScore = 0.4
	require.NoError(t, s.SaveSourceState(ctx, src))

	got, err := s.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ConsecutiveFailures)
	assert.Equal(t, model.SourceStatusFailing, got.Status)
	assert.Equal(t, "boom", got.LastError)
	assert.InDelta(t, 0.4, got.ReliabilityScore, 1e-9)
	require.NotNil(t, got.NextPollAt)
	require.NotNil(t, got.LastPollAt)
	assert.False(t, got.NextPollAt.Before(*got.LastPollAt), "next_poll_at >= last_poll_at")
}

func TestSaveSourceStateNotFound(t *testing.T) {
	s := newTestStore(t)
	src := testSource("ghost")
	err := s.SaveSourceState(context.Background(), src)
	assert.Error(t, err)
}

func TestSetSourceStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateSource(ctx, testSource("src-1")))

	require.NoError(t, s.SetSourceStatus(ctx, "src-1", model.SourceStatusDisabled))
	got, err := s.GetSource(ctx, "src-1")
	require.NoError(t, err)
	assert.Equal(t, model.SourceStatusDisabled, got.Status)

	assert.Error(t, s.SetSourceStatus(ctx, "src-1", "bogus"))
}

func TestUpsertJobNewThenUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := testJob("src:src-1:42")
	res, err := s.UpsertJob(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNew, res.Outcome)
	assert.NotEmpty(t, res.JobID)

	// Same content again: exactly one row, counted as unchanged.
	again := testJob("src:src-1:42")
	res2, err := s.UpsertJob(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res2.Outcome)
	assert.Equal(t, res.JobID, res2.JobID)

	got, err := s.GetJobByDedupKey(ctx, "src:src-1:42")
	require.NoError(t, err)
	assert.Equal(t, res.JobID, got.ID)
}

func TestUpsertJobUpdatedOnChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job := testJob("src:src-1:42")
	res, err := s.UpsertJob(ctx, job)
	require.NoError(t, err)
	require.Equal(t, OutcomeNew, res.Outcome)

	first, err := s.GetJob(ctx, res.JobID)
	require.NoError(t, err)

	changed := testJob("src:src-1:42")
	changed.Description = "Build better things"
	changed.SalaryMin = 120000
	res2, err := s.UpsertJob(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res2.Outcome)

	got, err := s.GetJob(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, "Build better things", got.Description)
	assert.Equal(t, 120000, got.SalaryMin)
	assert.False(t, got.UpdatedAt.Before(first.UpdatedAt))
}

func TestUpsertJobRequiresDedupKey(t *testing.T) {
	s := newTestStore(t)
	job := testJob("")
	_, err := s.UpsertJob(context.Background(), job)
	assert.Error(t, err)
}

func TestSetJobVerification(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.UpsertJob(ctx, testJob("k1"))
	require.NoError(t, err)

	at := time.Now().UTC()
	require.NoError(t, s.SetJobVerification(ctx, res.JobID, model.VerificationStale, 1, at))

	got, err := s.GetJob(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationStale, got.VerificationStatus)
	assert.Equal(t, 1, got.FailedChecks)
	require.NotNil(t, got.VerifiedAt)
}

func TestSetJobEnrichment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.UpsertJob(ctx, testJob("k1"))
	require.NoError(t, err)

	e := &model.Enrichment{
		Summary:    "Builds backend systems",
		TechStack:  []string{"Go", "Postgres"},
		EnrichedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SetJobEnrichment(ctx, res.JobID, e))

	got, err := s.GetJob(ctx, res.JobID)
	require.NoError(t, err)
	require.NotNil(t, got.Enrichment)
	assert.Equal(t, "Builds backend systems", got.Enrichment.Summary)
	assert.Equal(t, []string{"Go", "Postgres"}, got.Enrichment.TechStack)
}

func TestListJobsMissingEnrichment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.UpsertJob(ctx, testJob("k1"))
	require.NoError(t, err)
	b, err := s.UpsertJob(ctx, testJob("k2"))
	require.NoError(t, err)

	require.NoError(t, s.SetJobEnrichment(ctx, a.JobID, &model.Enrichment{Summary: "done"}))

	got, err := s.ListJobsMissingEnrichment(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.JobID, got[0].ID)
}

func TestListJobsDueVerification(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fresh, err := s.UpsertJob(ctx, testJob("fresh"))
	require.NoError(t, err)
	stale, err := s.UpsertJob(ctx, testJob("stale"))
	require.NoError(t, err)
	expired, err := s.UpsertJob(ctx, testJob("expired"))
	require.NoError(t, err)

	now := time.Now().UTC()
	// fresh was verified just now; stale long ago; expired is terminal.
	require.NoError(t, s.SetJobVerification(ctx, fresh.JobID, model.VerificationActive, 0, now))
	require.NoError(t, s.SetJobVerification(ctx, stale.JobID, model.VerificationActive, 0, now.Add(-3*time.Hour)))
	require.NoError(t, s.SetJobVerification(ctx, expired.JobID, model.VerificationExpired, 3, now.Add(-3*time.Hour)))

	// Backdate updated_at: a job touched by a recent ingestion pass does
	// not need a liveness re-check.
	_, err = s.db.ExecContext(ctx, `UPDATE jobs SET updated_at = ?`, now.Add(-4*time.Hour))
	require.NoError(t, err)

	cutoff := now.Add(-2 * time.Hour)
	got, err := s.ListJobsDueVerification(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stale.JobID, got[0].ID)
}

func TestListJobsMissingLogo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.UpsertJob(ctx, testJob("k1"))
	require.NoError(t, err)
	b, err := s.UpsertJob(ctx, testJob("k2"))
	require.NoError(t, err)

	require.NoError(t, s.SetJobLogo(ctx, a.JobID, "https://logo.clearbit.com/acme.com", "acme.com", model.LogoMethodClearbit, time.Now()))

	got, err := s.ListJobsMissingLogo(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.JobID, got[0].ID)
}

func TestCountJobsByVerification(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.UpsertJob(ctx, testJob("k1"))
	require.NoError(t, err)
	_, err = s.UpsertJob(ctx, testJob("k2"))
	require.NoError(t, err)

	require.NoError(t, s.SetJobVerification(ctx, a.JobID, model.VerificationExpired, 3, time.Now()))

	counts, err := s.CountJobsByVerification(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.VerificationExpired])
	assert.Equal(t, 1, counts[model.VerificationUnverified])
}

func TestRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Add(-time.Minute)
	completed := time.Now().UTC()
	run := &model.IngestionRun{
		StartedAt:         started,
		CompletedAt:       &completed,
		DurationMs:        60000,
		SourcesProcessed:  2,
		TotalFetched:      10,
		TotalNew:          7,
		TotalDeduplicated: 3,
		Success:           true,
		Sources: []model.SourceRunStats{
			{SourceID: "src-1", Fetched: 10, New: 7, Deduplicated: 3, Success: true},
		},
		SampleJobIDs: []string{"j1", "j2"},
	}
	require.NoError(t, s.CreateRun(ctx, run))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, 7, got.TotalNew)
	assert.True(t, got.Success)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "src-1", got.Sources[0].SourceID)
	assert.Equal(t, []string{"j1", "j2"}, got.SampleJobIDs)
	require.NotNil(t, got.CompletedAt)
}

func TestLogoCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	miss, err := s.GetLogoCache(ctx, "acme.com")
	require.NoError(t, err)
	assert.Nil(t, miss, "miss returns nil, nil")

	entry := &model.LogoCacheEntry{
		Domain:    "acme.com",
		LogoURL:   "https://logo.clearbit.com/acme.com",
		Method:    model.LogoMethodClearbit,
		CheckedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SetLogoCache(ctx, entry))

	got, err := s.GetLogoCache(ctx, "acme.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.LogoURL, got.LogoURL)
	assert.Equal(t, model.LogoMethodClearbit, got.Method)

	// Overwrite is an upsert, not a duplicate.
	entry.LogoURL = "https://icons.duckduckgo.com/ip3/acme.com.ico"
	entry.Method = model.LogoMethodDuckDuckGo
	require.NoError(t, s.SetLogoCache(ctx, entry))

	got, err = s.GetLogoCache(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, model.LogoMethodDuckDuckGo, got.Method)
}

func TestListActivePostedTimes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	posted := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	withPosted := testJob("k1")
	withPosted.PostedAt = &posted
	_, err := s.UpsertJob(ctx, withPosted)
	require.NoError(t, err)

	noPosted, err := s.UpsertJob(ctx, testJob("k2"))
	require.NoError(t, err)

	gone, err := s.UpsertJob(ctx, testJob("k3"))
	require.NoError(t, err)
	require.NoError(t, s.SetJobVerification(ctx, gone.JobID, model.VerificationExpired, 3, time.Now()))
	_ = noPosted

	times, err := s.ListActivePostedTimes(ctx)
	require.NoError(t, err)
	assert.Len(t, times, 2, "expired jobs excluded")
}
