package model

import "time"

// SourceRunStats records the outcome of one ingestion pass over one source.
type SourceRunStats struct {
	SourceID     string `json:"source_id"`
	SourceName   string `json:"source_name"`
	Fetched      int    `json:"fetched"`
	New          int    `json:"new"`
	Updated      int    `json:"updated"`
	Deduplicated int    `json:"deduplicated"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// IngestionRun is the append-only audit record of one ingestion attempt.
// Immutable once completed; exactly one record per attempt.
type IngestionRun struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMs  int64      `json:"duration_ms"`

	SourcesProcessed  int `json:"sources_processed"`
	TotalFetched      int `json:"total_fetched"`
	TotalNew          int `json:"total_new"`
	TotalUpdated      int `json:"total_updated"`
	TotalDeduplicated int `json:"total_deduplicated"`
	TotalErrors       int `json:"total_errors"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Sources      []SourceRunStats `json:"sources,omitempty"`
	SampleJobIDs []string         `json:"sample_job_ids,omitempty"` // capped at 10
}

// LogoCacheEntry memoizes a resolved logo per company domain so repeated
// postings from the same company incur no further external lookups.
type LogoCacheEntry struct {
	Domain    string     `json:"domain"`
	LogoURL   string     `json:"logo_url"`
	Method    LogoMethod `json:"method"`
	CheckedAt time.Time  `json:"checked_at"`
}
