// Package logo resolves company logos through an ordered fallback chain:
// ATS-provided artwork, branded logo API, favicon service, and finally a
// placeholder icon provider that always answers. Resolution never fails;
// the worst case is a generic icon.
package logo

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/cache"
	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/pkg/logoapi"
)

// Store is the durable logo cache plus the job fields the batch backfill
// touches. Satisfied by store.Store.
type Store interface {
	GetLogoCache(ctx context.Context, domain string) (*model.LogoCacheEntry, error)
	SetLogoCache(ctx context.Context, entry *model.LogoCacheEntry) error
	ListJobsMissingLogo(ctx context.Context, limit int) ([]model.Job, error)
	SetJobLogo(ctx context.Context, id, logoURL, domain string, method model.LogoMethod, at time.Time) error
}

// Request identifies the company a logo is wanted for.
type Request struct {
	Company    string
	ApplyURL   string
	ATSLogoURL string // source-provided artwork, unverified
}

// Resolution is the chain's answer. Method records which step produced it.
type Resolution struct {
	LogoURL string
	Domain  string
	Method  model.LogoMethod
}

// Config tunes the resolver.
type Config struct {
	// FastCacheTTL is the in-process/redis memo TTL. Default: 1h.
	FastCacheTTL time.Duration
	// FaviconSize is the pixel size requested from the favicon service.
	// Default: 128.
	FaviconSize int
}

// Resolver runs the fallback chain with a two-level cache in front: the
// shared cache.Cache for hot lookups, then the durable per-domain store.
type Resolver struct {
	store      Store
	fast       cache.Cache
	verifier   logoapi.Verifier
	cfg        Config
	strategies []strategy
	nowFunc    func() time.Time
}

type strategy func(ctx context.Context, req Request, domain string) (Resolution, bool)

// New creates a Resolver. fast may be nil to skip the memo layer.
func New(st Store, fast cache.Cache, verifier logoapi.Verifier, cfg Config) *Resolver {
	if cfg.FastCacheTTL <= 0 {
		cfg.FastCacheTTL = time.Hour
	}
	if cfg.FaviconSize <= 0 {
		cfg.FaviconSize = 128
	}
	r := &Resolver{
		store:    st,
		fast:     fast,
		verifier: verifier,
		cfg:      cfg,
		nowFunc:  time.Now,
	}
	r.strategies = []strategy{
		r.atsArtwork,
		r.clearbit,
		r.favicon,
		r.duckduckgo,
	}
	return r
}

// WithNow overrides the clock, for tests.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	r.nowFunc = now
	return r
}

// Resolve walks the chain for one company. A cached domain answers without
// any external call. Never returns an error; an unresolvable request gets
// Method none.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	domain := deriveDomain(req.Company, req.ApplyURL)

	if domain != "" {
		if res, ok := r.cached(ctx, domain); ok {
			return res
		}
	}

	for _, s := range r.strategies {
		if res, ok := s(ctx, req, domain); ok {
			if res.Domain != "" {
				r.remember(ctx, res)
			}
			return res
		}
	}

	// Unreachable while the placeholder strategy is terminal, but the
	// chain contract is no-error, so keep a safe bottom.
	return Resolution{Method: model.LogoMethodNone}
}

func (r *Resolver) atsArtwork(ctx context.Context, req Request, domain string) (Resolution, bool) {
	if req.ATSLogoURL == "" {
		return Resolution{}, false
	}
	ok, err := r.verifier.Verify(ctx, req.ATSLogoURL)
	if err != nil || !ok {
		if err != nil {
			zap.L().Debug("logo: ats artwork probe failed",
				zap.String("company", req.Company),
				zap.Error(err),
			)
		}
		return Resolution{}, false
	}
	return Resolution{LogoURL: req.ATSLogoURL, Domain: domain, Method: model.LogoMethodATS}, true
}

func (r *Resolver) clearbit(ctx context.Context, req Request, domain string) (Resolution, bool) {
	if domain == "" {
		return Resolution{}, false
	}
	candidate := logoapi.ClearbitURL(domain)
	ok, err := r.verifier.Verify(ctx, candidate)
	if err != nil || !ok {
		return Resolution{}, false
	}
	return Resolution{LogoURL: candidate, Domain: domain, Method: model.LogoMethodClearbit}, true
}

func (r *Resolver) favicon(ctx context.Context, req Request, domain string) (Resolution, bool) {
	if domain == "" {
		return Resolution{}, false
	}
	candidate := logoapi.GoogleFaviconURL(domain, r.cfg.FaviconSize)
	ok, err := r.verifier.Verify(ctx, candidate)
	if err != nil || !ok {
		return Resolution{}, false
	}
	return Resolution{LogoURL: candidate, Domain: domain, Method: model.LogoMethodFavicon}, true
}

// duckduckgo is the terminal step: the icon service serves a placeholder
// for unknown domains, so it is taken on faith without a probe.
func (r *Resolver) duckduckgo(_ context.Context, req Request, domain string) (Resolution, bool) {
	if domain == "" {
		return Resolution{Method: model.LogoMethodNone}, true
	}
	return Resolution{
		LogoURL: logoapi.DuckDuckGoIconURL(domain),
		Domain:  domain,
		Method:  model.LogoMethodDuckDuckGo,
	}, true
}

func (r *Resolver) cached(ctx context.Context, domain string) (Resolution, bool) {
	if r.fast != nil {
		if raw, ok, err := r.fast.Get(ctx, fastKey(domain)); err == nil && ok {
			var entry model.LogoCacheEntry
			if json.Unmarshal(raw, &entry) == nil {
				return Resolution{LogoURL: entry.LogoURL, Domain: entry.Domain, Method: entry.Method}, true
			}
		}
	}

	entry, err := r.store.GetLogoCache(ctx, domain)
	if err != nil {
		zap.L().Warn("logo: cache lookup failed", zap.String("domain", domain), zap.Error(err))
		return Resolution{}, false
	}
	if entry == nil {
		return Resolution{}, false
	}

	r.memoize(ctx, entry)
	return Resolution{LogoURL: entry.LogoURL, Domain: entry.Domain, Method: entry.Method}, true
}

func (r *Resolver) remember(ctx context.Context, res Resolution) {
	entry := &model.LogoCacheEntry{
		Domain:    res.Domain,
		LogoURL:   res.LogoURL,
		Method:    res.Method,
		CheckedAt: r.nowFunc(),
	}
	if err := r.store.SetLogoCache(ctx, entry); err != nil {
		zap.L().Warn("logo: cache write failed", zap.String("domain", res.Domain), zap.Error(err))
	}
	r.memoize(ctx, entry)
}

func (r *Resolver) memoize(ctx context.Context, entry *model.LogoCacheEntry) {
	if r.fast == nil {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = r.fast.Set(ctx, fastKey(entry.Domain), raw, r.cfg.FastCacheTTL)
}

func fastKey(domain string) string {
	return "logo:" + domain
}

// boardDomains are ATS and aggregator hosts that must never be mistaken
// for an employer's own domain.
var boardDomains = map[string]struct{}{
	"greenhouse.io":        {},
	"boards.greenhouse.io": {},
	"lever.co":             {},
	"jobs.lever.co":        {},
	"myworkdayjobs.com":    {},
	"ashbyhq.com":          {},
	"jobs.ashbyhq.com":     {},
	"bamboohr.com":         {},
	"smartrecruiters.com":  {},
	"jobvite.com":          {},
	"workable.com":         {},
	"apply.workable.com":   {},
	"icims.com":            {},
	"taleo.net":            {},
	"indeed.com":           {},
	"linkedin.com":         {},
	"glassdoor.com":        {},
}

// curatedDomains maps normalized company names whose slug does not match
// their web domain.
var curatedDomains = map[string]string{
	"alphabet":   "abc.xyz",
	"google":     "google.com",
	"meta":       "meta.com",
	"x":          "x.com",
	"jpmorgan":   "jpmorganchase.com",
	"jp morgan":  "jpmorganchase.com",
	"mckinsey":   "mckinsey.com",
	"deloitte":   "deloitte.com",
	"accenture":  "accenture.com",
	"salesforce": "salesforce.com",
}

// deriveDomain guesses the employer's domain: the apply URL's host when it
// is not a job-board host, then the curated map, then a slugified .com.
func deriveDomain(company, applyURL string) string {
	if applyURL != "" {
		if u, err := url.Parse(applyURL); err == nil && u.Host != "" {
			host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
			if !isBoardDomain(host) {
				return host
			}
		}
	}

	normalized := normalizeCompany(company)
	if normalized == "" {
		return ""
	}
	if domain, ok := curatedDomains[normalized]; ok {
		return domain
	}

	slug := strings.ReplaceAll(normalized, " ", "")
	if slug == "" {
		return ""
	}
	return slug + ".com"
}

func isBoardDomain(host string) bool {
	if _, ok := boardDomains[host]; ok {
		return true
	}
	// Subdomains of board hosts are board hosts too.
	for board := range boardDomains {
		if strings.HasSuffix(host, "."+board) {
			return true
		}
	}
	return false
}

// legalSuffixes are stripped from company names before slugging.
var legalSuffixes = []string{"inc", "incorporated", "llc", "ltd", "limited", "corp", "corporation", "co", "gmbh", "plc"}

func normalizeCompany(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		if !isLegalSuffix(last) {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

func isLegalSuffix(word string) bool {
	for _, s := range legalSuffixes {
		if word == s {
			return true
		}
	}
	return false
}
