// Package verify re-checks that stored postings are still live at their
// apply URLs and walks dead ones through stale to expired.
package verify

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/pkg/scrapeapi"
)

// Checker probes one posting's liveness. closed reports an explicit
// gone-signal (404/410) as opposed to merely unreachable; an error means
// the probe itself failed and the posting's state must not change.
type Checker interface {
	Check(ctx context.Context, job *model.Job) (alive bool, closed bool, err error)
}

// HTTPChecker probes the apply URL directly with HEAD, falling back to
// GET for hosts that reject HEAD.
type HTTPChecker struct {
	http *http.Client
}

// NewHTTPChecker creates an HTTPChecker.
func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPChecker{http: &http.Client{Timeout: timeout}}
}

func (c *HTTPChecker) Check(ctx context.Context, job *model.Job) (bool, bool, error) {
	if job.ApplyURL == "" {
		return false, false, eris.Errorf("verify: job %s has no apply url", job.ID)
	}

	status, err := c.probe(ctx, http.MethodHead, job.ApplyURL)
	if err != nil {
		return false, false, err
	}
	if status == http.StatusMethodNotAllowed {
		status, err = c.probe(ctx, http.MethodGet, job.ApplyURL)
		if err != nil {
			return false, false, err
		}
	}

	switch {
	case status >= 200 && status < 400:
		return true, false, nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return false, true, nil
	default:
		// Bot walls and server errors say nothing about the posting.
		return false, false, eris.Errorf("verify: inconclusive status %d for %s", status, job.ApplyURL)
	}
}

func (c *HTTPChecker) probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, eris.Wrap(err, "verify: create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "verify: probe")
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// ScrapeChecker probes through the scraping service, which gets past
// JS-rendered boards a bare HEAD cannot see.
type ScrapeChecker struct {
	client scrapeapi.Client
}

// NewScrapeChecker creates a ScrapeChecker.
func NewScrapeChecker(client scrapeapi.Client) *ScrapeChecker {
	return &ScrapeChecker{client: client}
}

func (c *ScrapeChecker) Check(ctx context.Context, job *model.Job) (bool, bool, error) {
	if job.ApplyURL == "" {
		return false, false, eris.Errorf("verify: job %s has no apply url", job.ID)
	}

	resp, err := c.client.Read(ctx, job.ApplyURL)
	if err != nil {
		return false, false, err
	}

	switch {
	case resp.Data.Status == http.StatusNotFound || resp.Data.Status == http.StatusGone:
		return false, true, nil
	case resp.Data.Status >= 200 && resp.Data.Status < 400:
		return true, false, nil
	default:
		return false, false, eris.Errorf("verify: inconclusive status %d for %s", resp.Data.Status, job.ApplyURL)
	}
}
