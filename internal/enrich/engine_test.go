package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
	"github.com/jobswipe/jobintel/pkg/aiclient"
)

const validModelJSON = `{
  "summary": "Backend role on the payments platform.",
  "responsibilities": ["Design APIs", "Own services end to end"],
  "qualifications": ["5y Go", "Distributed systems"],
  "tech_stack": ["Go", "Postgres", "Kafka"],
  "benefits": ["Equity"],
  "visa_info": null
}`

// scriptedClient answers by call index; failOn (1-based) returns an error.
type scriptedClient struct {
	failOn   int
	response string
	calls    int
	prompts  []string
}

func (c *scriptedClient) CreateMessage(_ context.Context, req aiclient.MessageRequest) (*aiclient.MessageResponse, error) {
	c.calls++
	c.prompts = append(c.prompts, req.Messages[0].Content)
	if c.calls == c.failOn {
		return nil, errors.New("model overloaded")
	}
	resp := c.response
	if resp == "" {
		resp = validModelJSON
	}
	return &aiclient.MessageResponse{
		Content: []aiclient.ContentBlock{{Type: "text", Text: resp}},
	}, nil
}

func newTestEngine(t *testing.T, client aiclient.Client) (*Engine, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	e := NewEngine(st, client, Config{InterCallDelay: time.Millisecond})
	return e, st
}

func seedJobs(t *testing.T, st store.Store, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		job := &model.Job{
			DedupKey:           model.DedupKey("src-1", fmt.Sprintf("n-%d", i), "", "", ""),
			Title:              fmt.Sprintf("Engineer %d", i),
			Company:            "Acme",
			Description:        "We need a Go engineer for payments.",
			SourceID:           "src-1",
			SourceNativeID:     fmt.Sprintf("n-%d", i),
			FirstSeenAt:        time.Now().UTC(),
			UpdatedAt:          time.Now().UTC(),
			VerificationStatus: model.VerificationUnverified,
		}
		res, err := st.UpsertJob(context.Background(), job)
		require.NoError(t, err)
		ids[i] = res.JobID
	}
	return ids
}

func TestRunEnrichesPendingJobs(t *testing.T) {
	client := &scriptedClient{}
	e, st := newTestEngine(t, client)
	ids := seedJobs(t, st, 2)
	ctx := context.Background()

	result, err := e.Run(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Zero(t, result.ErrorCount)

	job, err := st.GetJob(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, job.Enrichment)
	assert.Equal(t, "Backend role on the payments platform.", job.Enrichment.Summary)
	assert.Equal(t, []string{"Go", "Postgres", "Kafka"}, job.Enrichment.TechStack)
	assert.False(t, job.Enrichment.EnrichedAt.IsZero())

	// Enriched jobs drop out of the pending set.
	pending, err := st.ListJobsMissingEnrichment(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunIsolatesFailures(t *testing.T) {
	client := &scriptedClient{failOn: 3}
	e, st := newTestEngine(t, client)
	seedJobs(t, st, 5)

	result, err := e.Run(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 4, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "model overloaded")
}

func TestRunSamplesErrorsToFive(t *testing.T) {
	client := &scriptedClient{response: "not json at all"}
	e, st := newTestEngine(t, client)
	seedJobs(t, st, 8)

	result, err := e.Run(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 8, result.ErrorCount)
	assert.Len(t, result.Errors, 5, "errors are sampled, count is exact")
}

func TestRunTruncatesLongDescriptions(t *testing.T) {
	client := &scriptedClient{}
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	e := NewEngine(st, client, Config{InterCallDelay: time.Millisecond, MaxDescriptionChars: 100})

	job := &model.Job{
		DedupKey:           model.DedupKey("src-1", "big", "", "", ""),
		Title:              "Engineer",
		Company:            "Acme",
		Description:        strings.Repeat("x", 500),
		SourceID:           "src-1",
		SourceNativeID:     "big",
		FirstSeenAt:        time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
		VerificationStatus: model.VerificationUnverified,
	}
	_, err = st.UpsertJob(context.Background(), job)
	require.NoError(t, err)

	_, err = e.Run(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, client.prompts, 1)
	assert.Less(t, len(client.prompts[0]), 300)
}

func TestParseEnrichmentFencedOutput(t *testing.T) {
	raw := "Here is the extraction:\n```json\n" + validModelJSON + "\n```\nLet me know if you need more."
	enrichment, err := parseEnrichment(raw)
	require.NoError(t, err)
	assert.Equal(t, "Backend role on the payments platform.", enrichment.Summary)
	assert.Empty(t, enrichment.VisaInfo)
}

func TestParseEnrichmentBareObject(t *testing.T) {
	enrichment, err := parseEnrichment(validModelJSON)
	require.NoError(t, err)
	assert.Len(t, enrichment.Responsibilities, 2)
}

func TestParseEnrichmentRejectsGarbage(t *testing.T) {
	_, err := parseEnrichment("I could not process this posting.")
	assert.Error(t, err)

	_, err = parseEnrichment(`{"summary": ""}`)
	assert.Error(t, err, "empty summary is a failed extraction")
}
