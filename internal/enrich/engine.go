// Package enrich derives structured fields from raw posting descriptions
// with a language model: summary, responsibilities, qualifications, tech
// stack, benefits, and visa notes.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/internal/store"
	"github.com/jobswipe/jobintel/pkg/aiclient"
)

const maxSampledErrors = 5

const systemPrompt = `You extract structured data from job postings. Respond with a single JSON object and nothing else, using exactly these keys:
{
  "summary": "one or two sentences",
  "responsibilities": ["..."],
  "qualifications": ["..."],
  "tech_stack": ["..."],
  "benefits": ["..."],
  "visa_info": "string or null"
}
Use empty arrays when the posting gives nothing for a key. Do not invent details.`

// Config tunes the enrichment pass.
type Config struct {
	// Model is the model ID used for extraction.
	Model string
	// MaxTokens bounds the response. Default: 2000.
	MaxTokens int64
	// MaxDescriptionChars truncates oversized descriptions before they hit
	// the prompt. Default: 6000.
	MaxDescriptionChars int
	// InterCallDelay paces model calls. Default: 500ms.
	InterCallDelay time.Duration
	// Limit caps how many jobs one pass enriches. Default: 50.
	Limit int
}

// Filter narrows a pass.
type Filter struct {
	JobID string
	Limit int
}

// Result summarizes an enrichment pass. Errors holds at most five
// samples; ErrorCount is the true total.
type Result struct {
	Processed    int      `json:"processed"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

// Engine runs enrichment passes.
type Engine struct {
	store   store.Store
	client  aiclient.Client
	cfg     Config
	limiter *rate.Limiter
	nowFunc func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(st store.Store, client aiclient.Client, cfg Config) *Engine {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.MaxDescriptionChars <= 0 {
		cfg.MaxDescriptionChars = 6000
	}
	if cfg.InterCallDelay <= 0 {
		cfg.InterCallDelay = 500 * time.Millisecond
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	return &Engine{
		store:   st,
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.InterCallDelay), 1),
		nowFunc: time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.nowFunc = now
	return e
}

// Run enriches jobs that have no enrichment yet. One bad job never stops
// the pass.
func (e *Engine) Run(ctx context.Context, filter Filter) (*Result, error) {
	jobs, err := e.pendingJobs(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		if err := e.limiter.Wait(ctx); err != nil {
			break
		}

		result.Processed++
		if err := e.enrichJob(ctx, &jobs[i]); err != nil {
			result.ErrorCount++
			if len(result.Errors) < maxSampledErrors {
				result.Errors = append(result.Errors, jobs[i].ID+": "+err.Error())
			}
			zap.L().Warn("enrichment failed",
				zap.String("job_id", jobs[i].ID),
				zap.String("title", jobs[i].Title),
				zap.Error(err),
			)
			continue
		}
		result.SuccessCount++
	}

	zap.L().Info("enrichment pass complete",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.ErrorCount),
	)
	return result, nil
}

func (e *Engine) pendingJobs(ctx context.Context, filter Filter) ([]model.Job, error) {
	if filter.JobID != "" {
		job, err := e.store.GetJob(ctx, filter.JobID)
		if err != nil {
			return nil, eris.Wrapf(err, "enrich: job %s", filter.JobID)
		}
		return []model.Job{*job}, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = e.cfg.Limit
	}
	jobs, err := e.store.ListJobsMissingEnrichment(ctx, limit)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list pending jobs")
	}
	return jobs, nil
}

func (e *Engine) enrichJob(ctx context.Context, job *model.Job) error {
	resp, err := e.client.CreateMessage(ctx, aiclient.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
		System:    systemPrompt,
		Messages: []aiclient.Message{
			{Role: "user", Content: e.buildPrompt(job)},
		},
	})
	if err != nil {
		return eris.Wrap(err, "enrich: model call")
	}
	resp.Usage.LogCost(e.cfg.Model, "enrich")

	enrichment, err := parseEnrichment(resp.Text())
	if err != nil {
		return err
	}
	enrichment.EnrichedAt = e.nowFunc()

	if err := e.store.SetJobEnrichment(ctx, job.ID, enrichment); err != nil {
		return eris.Wrap(err, "enrich: save")
	}
	return nil
}

func (e *Engine) buildPrompt(job *model.Job) string {
	desc := job.Description
	if len(desc) > e.cfg.MaxDescriptionChars {
		desc = desc[:e.cfg.MaxDescriptionChars]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nCompany: %s\n", job.Title, job.Company)
	if job.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", job.Location)
	}
	if job.WorkType != "" {
		fmt.Fprintf(&b, "Work type: %s\n", job.WorkType)
	}
	b.WriteString("\nDescription:\n")
	b.WriteString(desc)
	return b.String()
}

// parseEnrichment unpacks the model's JSON, tolerating fenced code blocks
// and prose around the object.
func parseEnrichment(raw string) (*model.Enrichment, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, eris.New("enrich: no JSON object in model response")
	}

	var out struct {
		Summary          string   `json:"summary"`
		Responsibilities []string `json:"responsibilities"`
		Qualifications   []string `json:"qualifications"`
		TechStack        []string `json:"tech_stack"`
		Benefits         []string `json:"benefits"`
		VisaInfo         *string  `json:"visa_info"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, eris.Wrap(err, "enrich: unmarshal model response")
	}
	if strings.TrimSpace(out.Summary) == "" {
		return nil, eris.New("enrich: model response has empty summary")
	}

	enrichment := &model.Enrichment{
		Summary:          strings.TrimSpace(out.Summary),
		Responsibilities: out.Responsibilities,
		Qualifications:   out.Qualifications,
		TechStack:        out.TechStack,
		Benefits:         out.Benefits,
	}
	if out.VisaInfo != nil {
		enrichment.VisaInfo = strings.TrimSpace(*out.VisaInfo)
	}
	return enrichment, nil
}

// extractJSON returns the JSON object embedded in raw: the inside of a
// fenced block when present, otherwise the outermost brace span.
func extractJSON(raw string) string {
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			raw = rest[:end]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
