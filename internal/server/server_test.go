package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobswipe/jobintel/internal/enrich"
	"github.com/jobswipe/jobintel/internal/freshness"
	"github.com/jobswipe/jobintel/internal/ingest"
	"github.com/jobswipe/jobintel/internal/logo"
	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
	"github.com/jobswipe/jobintel/internal/verify"
)

type stubDeps struct {
	ingestFilter ingest.Filter
	ingestErr    error
	verifyFilter verify.Filter
	enrichFilter enrich.Filter
	logoReq      *logo.Request
	batchCfg     *logo.BatchConfig
	statusID     string
	statusValue  model.SourceStatus
	statusErr    error
}

func (d *stubDeps) Run(ctx context.Context, f ingest.Filter) (*ingest.Result, error) {
	d.ingestFilter = f
	if d.ingestErr != nil {
		return nil, d.ingestErr
	}
	return &ingest.Result{TotalNew: 3}, nil
}

type stubVerify struct{ d *stubDeps }

func (s stubVerify) Run(_ context.Context, f verify.Filter) (*verify.Result, error) {
	s.d.verifyFilter = f
	return &verify.Result{Checked: 2, Verified: 2}, nil
}

type stubEnrich struct{ d *stubDeps }

func (s stubEnrich) Run(_ context.Context, f enrich.Filter) (*enrich.Result, error) {
	s.d.enrichFilter = f
	return &enrich.Result{Processed: 1, SuccessCount: 1}, nil
}

type stubLogos struct{ d *stubDeps }

func (s stubLogos) Resolve(_ context.Context, req logo.Request) logo.Resolution {
	s.d.logoReq = &req
	return logo.Resolution{LogoURL: "https://logo.clearbit.com/acme.com", Domain: "acme.com", Method: model.LogoMethodClearbit}
}

func (s stubLogos) ResolveBatch(_ context.Context, cfg logo.BatchConfig) (*logo.BatchResult, error) {
	s.d.batchCfg = &cfg
	return &logo.BatchResult{Processed: 4, Resolved: 4}, nil
}

type stubFreshness struct{}

func (stubFreshness) Collect(context.Context) (*freshness.Snapshot, error) {
	return &freshness.Snapshot{SourcesTotal: 2, SourcesRefreshed: 2, RefreshedRatio: 1, Healthy: true}, nil
}

type stubSources struct{ d *stubDeps }

func (s stubSources) List(context.Context, store.SourceFilter) ([]model.JobSource, error) {
	return []model.JobSource{{ID: "src-1", Name: "acme"}}, nil
}

func (s stubSources) SetStatus(_ context.Context, id string, status model.SourceStatus) error {
	s.d.statusID = id
	s.d.statusValue = status
	return s.d.statusErr
}

const testSecret = "cron-secret"

func newTestServer(t *testing.T) (*httptest.Server, *stubDeps) {
	t.Helper()
	d := &stubDeps{}
	srv := New(Config{CronSecret: testSecret}, Deps{
		Ingest:    d,
		Verify:    stubVerify{d},
		Enrich:    stubEnrich{d},
		Logos:     stubLogos{d},
		Freshness: stubFreshness{},
		Sources:   stubSources{d},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, d
}

func doRequest(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestHealthNoAuth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeMap(t, resp)["status"])
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, token := range []string{"", "wrong", testSecret + "x"} {
		resp := doRequest(t, http.MethodPost, ts.URL+"/api/verify", token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, map[string]any{"error": "Unauthorized"}, decodeMap(t, resp))
	}
}

func TestIngestTrigger(t *testing.T) {
	ts, d := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/ingest", testSecret,
		map[string]any{"source_id": "src-9", "limit": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "src-9", d.ingestFilter.SourceID)
	assert.Equal(t, 5, d.ingestFilter.Limit)
}

func TestIngestBusinessErrorIsHTTP200(t *testing.T) {
	ts, d := newTestServer(t)
	d.ingestErr = errors.New("no provider for kind feed")

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/ingest", testSecret, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "no provider")
}

func TestVerifyAndClassifyFilters(t *testing.T) {
	ts, d := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/verify", testSecret,
		map[string]any{"job_id": "job-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "job-1", d.verifyFilter.JobID)

	resp = doRequest(t, http.MethodPost, ts.URL+"/api/classify", testSecret,
		map[string]any{"limit": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 7, d.enrichFilter.Limit)
}

func TestLogoSingleLookup(t *testing.T) {
	ts, d := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/logo", testSecret,
		map[string]any{"company": "Acme", "apply_url": "https://acme.com/jobs/1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	assert.Equal(t, "https://logo.clearbit.com/acme.com", body["logo_url"])
	assert.Equal(t, "clearbit", body["method"])
	require.NotNil(t, d.logoReq)
	assert.Equal(t, "Acme", d.logoReq.Company)
	assert.Nil(t, d.batchCfg)
}

func TestLogoBatchWithoutCompany(t *testing.T) {
	ts, d := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/logo", testSecret,
		map[string]any{"limit": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, d.batchCfg)
	assert.Equal(t, 20, d.batchCfg.Limit)
	assert.Nil(t, d.logoReq)
}

func TestFreshnessEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/freshness", testSecret, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeMap(t, resp)
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["healthy"])
	assert.Equal(t, float64(2), result["sources_total"])
}

func TestSourceStatusUpdate(t *testing.T) {
	ts, d := newTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/sources/src-1/status", testSecret,
		map[string]any{"status": "paused"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "src-1", d.statusID)
	assert.Equal(t, model.SourceStatusPaused, d.statusValue)
}

func TestBadJSONIs400(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/verify",
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
