package logoapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLBuilders(t *testing.T) {
	assert.Equal(t, "https://logo.clearbit.com/acme.com", ClearbitURL("acme.com"))
	assert.Equal(t, "https://www.google.com/s2/favicons?domain=acme.com&sz=128", GoogleFaviconURL("acme.com", 0))
	assert.Equal(t, "https://www.google.com/s2/favicons?domain=acme.com&sz=64", GoogleFaviconURL("acme.com", 64))
	assert.Equal(t, "https://icons.duckduckgo.com/ip3/acme.com.ico", DuckDuckGoIconURL("acme.com"))
}

func TestVerifyImageResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "image/png")
	}))
	defer srv.Close()

	ok, err := NewVerifier().Verify(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ok, err := NewVerifier().Verify(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyHTMLNotAnImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer srv.Close()

	ok, err := NewVerifier().Verify(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, ok, "an HTML error page is not a logo")
}

func TestVerifyFallsBackToGet(t *testing.T) {
	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.Header().Set("Content-Type", "image/svg+xml")
	}))
	defer srv.Close()

	ok, err := NewVerifier().Verify(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, sawGet)
}

func TestVerifyNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := NewVerifier().Verify(context.Background(), srv.URL)
	assert.Error(t, err)
}
