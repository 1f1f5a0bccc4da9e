// Package ats provides a client for Greenhouse-style applicant tracking
// system board APIs: public JSON listings keyed by a board token.
package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the board API operations.
type Client interface {
	// ListJobs fetches all published postings for a board token.
	ListJobs(ctx context.Context, boardToken string) ([]BoardJob, error)
	// GetJob fetches a single posting. Returns (nil, nil) when the posting
	// no longer exists, which is the ATS's closed signal.
	GetJob(ctx context.Context, boardToken string, jobID int64) (*BoardJob, error)
}

// BoardJob is one posting as the board API publishes it.
type BoardJob struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	AbsoluteURL string       `json:"absolute_url"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Location    Location     `json:"location"`
	Departments []Department `json:"departments"`
	CompanyName string       `json:"company_name"`
	Metadata    []Metadata   `json:"metadata"`
}

// Location is the posting's location as free text.
type Location struct {
	Name string `json:"name"`
}

// Department groups postings on the board.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Metadata is an ATS custom field. Values are free-form.
type Metadata struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

type listJobsResponse struct {
	Jobs []BoardJob `json:"jobs"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a board API client. The public board endpoints are
// unauthenticated.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://boards-api.greenhouse.io/v1",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, url string) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, 0, eris.Wrap(err, "ats: create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, eris.Wrap(lastErr, "ats: request failed")
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "ats: read response body")
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < maxAttempts {
			lastErr = eris.Errorf("ats: status %d", resp.StatusCode)
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) ListJobs(ctx context.Context, boardToken string) ([]BoardJob, error) {
	url := fmt.Sprintf("%s/boards/%s/jobs?content=true", c.baseURL, boardToken)

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, eris.Errorf("ats: board %q not found", boardToken)
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("ats: list jobs unexpected status %d: %s", status, string(body))
	}

	var parsed listJobsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "ats: unmarshal job list")
	}

	return parsed.Jobs, nil
}

func (c *httpClient) GetJob(ctx context.Context, boardToken string, jobID int64) (*BoardJob, error) {
	url := fmt.Sprintf("%s/boards/%s/jobs/%d", c.baseURL, boardToken, jobID)

	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("ats: get job unexpected status %d: %s", status, string(body))
	}

	var job BoardJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, eris.Wrap(err, "ats: unmarshal job")
	}

	return &job, nil
}
