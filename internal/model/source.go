// Package model defines the core data shapes shared across the pipeline.
package model

import "time"

// SourceKind classifies how a source is fetched.
type SourceKind string

const (
	// SourceKindAPI is an ATS board API returning structured postings.
	SourceKindAPI SourceKind = "api"
	// SourceKindFeed is a bulk feed (CSV/XML/XLSX over HTTP or FTP).
	SourceKindFeed SourceKind = "feed"
	// SourceKindScrape is a search/scrape service query.
	SourceKindScrape SourceKind = "scrape"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceKindAPI, SourceKindFeed, SourceKindScrape:
		return true
	}
	return false
}

// SourceStatus is the health state of a job source.
type SourceStatus string

const (
	SourceStatusActive   SourceStatus = "active"
	SourceStatusPaused   SourceStatus = "paused"
	SourceStatusFailing  SourceStatus = "failing"
	SourceStatusDisabled SourceStatus = "disabled"
)

// Valid reports whether s is a known source status.
func (s SourceStatus) Valid() bool {
	switch s {
	case SourceStatusActive, SourceStatusPaused, SourceStatusFailing, SourceStatusDisabled:
		return true
	}
	return false
}

// JobSource is one external provider of postings. It owns its own
// health/reliability state, mutated by every ingestion run against it.
type JobSource struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     SourceKind `json:"kind"`
	Endpoint string     `json:"endpoint"` // board token, feed URL, or search query

	PollInterval time.Duration `json:"poll_interval"`
	LastPollAt   *time.Time    `json:"last_poll_at,omitempty"`
	NextPollAt   *time.Time    `json:"next_poll_at,omitempty"`

	Status              SourceStatus `json:"status"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastSuccessAt       *time.Time   `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time   `json:"last_failure_at,omitempty"`
	LastError           string       `json:"last_error,omitempty"`

	TotalIngested    int     `json:"total_ingested"`
	TotalActive      int     `json:"total_active"`
	ReliabilityScore float64 `json:"reliability_score"`

	Priority bool     `json:"priority"`
	Tags     []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Due reports whether the source should be polled at the given time.
// Sources without a next_poll_at have never been polled and are always due.
func (s *JobSource) Due(now time.Time) bool {
	if s.Status != SourceStatusActive {
		return false
	}
	if s.NextPollAt == nil {
		return true
	}
	return !s.NextPollAt.After(now)
}
