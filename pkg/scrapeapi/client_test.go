package scrapeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "markdown", r.Header.Get("X-Return-Format"))
		_, _ = w.Write([]byte(`{"code":200,"data":{"title":"Senior Engineer - Acme","url":"https://jobs.acme.com/1","content":"# Senior Engineer"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Read(context.Background(), "https://jobs.acme.com/1")
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer - Acme", resp.Data.Title)
	assert.Equal(t, http.StatusOK, resp.Data.Status)
}

func TestReadTargetGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Read(context.Background(), "https://jobs.acme.com/pulled")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Data.Status)
}

func TestReadRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"data":{"title":"ok","content":"body"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Read(context.Background(), "https://jobs.acme.com/1")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data.Title)
	assert.EqualValues(t, 2, calls.Load())
}

func TestSearchResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "golang%20jobs%20remote")
		_, _ = w.Write([]byte(`{"code":200,"data":[{"title":"Go Engineer","url":"https://jobs.example.com/go","description":"remote role"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithSearchBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), "golang jobs remote")
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Go Engineer", resp.Data[0].Title)
}

func TestSearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithSearchBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), "no such query")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestSearchSiteFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "boards.example.com", r.URL.Query().Get("site"))
		_, _ = w.Write([]byte(`{"code":200,"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithSearchBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "query", WithSiteFilter("boards.example.com"))
	require.NoError(t, err)
}
