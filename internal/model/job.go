package model

import "time"

// VerificationStatus is the lifecycle state of a posting's liveness.
type VerificationStatus string

const (
	// VerificationUnverified means the posting has never been re-checked.
	VerificationUnverified VerificationStatus = "unverified"
	// VerificationActive means the last re-check confirmed the posting live.
	VerificationActive VerificationStatus = "verified_active"
	// VerificationStale means one re-check failed. Soft signal, reversible.
	VerificationStale VerificationStatus = "stale"
	// VerificationExpired means re-checks failed past the threshold or the
	// source reported the posting closed. Excluded from default listings
	// but never deleted.
	VerificationExpired VerificationStatus = "expired"
)

// Valid reports whether v is a known verification status.
func (v VerificationStatus) Valid() bool {
	switch v {
	case VerificationUnverified, VerificationActive, VerificationStale, VerificationExpired:
		return true
	}
	return false
}

// LogoMethod identifies which step of the resolver chain produced a logo.
type LogoMethod string

const (
	LogoMethodATS        LogoMethod = "ats"
	LogoMethodClearbit   LogoMethod = "clearbit"
	LogoMethodFavicon    LogoMethod = "favicon"
	LogoMethodDuckDuckGo LogoMethod = "duckduckgo"
	LogoMethodNone       LogoMethod = "none"
)

// Enrichment holds the AI-derived structured fields for a posting.
type Enrichment struct {
	Summary          string    `json:"summary"`
	Responsibilities []string  `json:"responsibilities"`
	Qualifications   []string  `json:"qualifications"`
	TechStack        []string  `json:"tech_stack"`
	Benefits         []string  `json:"benefits"`
	VisaInfo         string    `json:"visa_info,omitempty"`
	EnrichedAt       time.Time `json:"enriched_at"`
}

// Job is one posting, the unit of truth. Uniquely identified by DedupKey;
// two fetches resolving to the same key merge into one row.
type Job struct {
	ID       string `json:"id"`
	DedupKey string `json:"dedup_key"`

	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location,omitempty"`
	WorkType     string   `json:"work_type,omitempty"`
	SalaryMin    int      `json:"salary_min,omitempty"`
	SalaryMax    int      `json:"salary_max,omitempty"`
	Description  string   `json:"description,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	ApplyURL     string   `json:"apply_url,omitempty"`

	LogoURL            string     `json:"logo_url,omitempty"`
	LogoDomain         string     `json:"logo_domain,omitempty"`
	LogoMethod         LogoMethod `json:"logo_method,omitempty"`
	LogoLastVerifiedAt *time.Time `json:"logo_last_verified_at,omitempty"`

	SourceID       string `json:"source_id"`
	SourceNativeID string `json:"source_native_id,omitempty"`

	FirstSeenAt time.Time  `json:"first_seen_at"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	VerificationStatus VerificationStatus `json:"verification_status"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	FailedChecks       int                `json:"failed_checks"`

	Enrichment *Enrichment `json:"enrichment,omitempty"`

	FreshnessRank float64 `json:"freshness_rank,omitempty"`
	RankScore     float64 `json:"rank_score,omitempty"`
}

// EffectivePostedAt returns the posting time used for age calculations,
// falling back to first_seen_at when the source gave no posted date.
func (j *Job) EffectivePostedAt() time.Time {
	if j.PostedAt != nil && !j.PostedAt.IsZero() {
		return *j.PostedAt
	}
	return j.FirstSeenAt
}

// Posting is a normalized posting as fetched from a source, before it is
// matched against existing jobs.
type Posting struct {
	NativeID     string
	Title        string
	Company      string
	Location     string
	WorkType     string
	SalaryMin    int
	SalaryMax    int
	Description  string
	Requirements []string
	ApplyURL     string
	LogoURL      string // ATS-provided, unverified
	PostedAt     *time.Time
}
