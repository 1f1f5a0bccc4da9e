// Package logoapi builds candidate company-logo URLs from third-party
// icon services and verifies that a candidate actually serves an image.
package logoapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ClearbitURL returns the branded-logo API URL for a domain.
func ClearbitURL(domain string) string {
	return fmt.Sprintf("https://logo.clearbit.com/%s", domain)
}

// GoogleFaviconURL returns the Google s2 favicon endpoint for a domain.
func GoogleFaviconURL(domain string, size int) string {
	if size <= 0 {
		size = 128
	}
	return fmt.Sprintf("https://www.google.com/s2/favicons?domain=%s&sz=%d", url.QueryEscape(domain), size)
}

// DuckDuckGoIconURL returns the DuckDuckGo icon endpoint for a domain.
// The service responds with a placeholder for unknown domains, so this
// URL always renders something.
func DuckDuckGoIconURL(domain string) string {
	return fmt.Sprintf("https://icons.duckduckgo.com/ip3/%s.ico", domain)
}

// Verifier checks whether a candidate logo URL serves a real image.
type Verifier interface {
	// Verify returns true when the URL answers 2xx with an image-ish
	// content type. Network errors are returned so callers can tell an
	// unreachable service from a missing logo.
	Verify(ctx context.Context, logoURL string) (bool, error)
}

// Option configures the verifier.
type Option func(*httpVerifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(v *httpVerifier) {
		v.http = hc
	}
}

type httpVerifier struct {
	http *http.Client
}

// NewVerifier creates a Verifier that probes candidates with HEAD,
// falling back to GET for hosts that reject HEAD.
func NewVerifier(opts ...Option) Verifier {
	v := &httpVerifier{
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *httpVerifier) Verify(ctx context.Context, logoURL string) (bool, error) {
	ok, retryWithGet, err := v.probe(ctx, http.MethodHead, logoURL)
	if err != nil {
		return false, err
	}
	if ok || !retryWithGet {
		return ok, nil
	}
	ok, _, err = v.probe(ctx, http.MethodGet, logoURL)
	return ok, err
}

func (v *httpVerifier) probe(ctx context.Context, method, logoURL string) (ok bool, retryWithGet bool, err error) {
	req, err := http.NewRequestWithContext(ctx, method, logoURL, nil)
	if err != nil {
		return false, false, eris.Wrap(err, "logoapi: create request")
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return false, false, eris.Wrap(err, "logoapi: probe")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusMethodNotAllowed {
		return false, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, false, nil
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		// HEAD responses sometimes omit the content type.
		return true, false, nil
	}
	return strings.HasPrefix(ct, "image/") || strings.Contains(ct, "octet-stream"), false, nil
}
