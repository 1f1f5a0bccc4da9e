package ingest

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/pkg/scrapeapi"
)

// ScrapeProvider turns a search query into postings via the scraping
// service. The source endpoint is the query; search results carry no
// native IDs, so these postings always dedup by content hash.
type ScrapeProvider struct {
	client scrapeapi.Client
}

// NewScrapeProvider creates a ScrapeProvider.
func NewScrapeProvider(client scrapeapi.Client) *ScrapeProvider {
	return &ScrapeProvider{client: client}
}

func (p *ScrapeProvider) Kind() model.SourceKind { return model.SourceKindScrape }

func (p *ScrapeProvider) Fetch(ctx context.Context, src *model.JobSource) ([]model.Posting, error) {
	resp, err := p.client.Search(ctx, src.Endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: scrape fetch for %s", src.Name)
	}

	postings := make([]model.Posting, 0, len(resp.Data))
	for _, hit := range resp.Data {
		title, company := splitResultTitle(hit.Title)
		if title == "" {
			continue
		}
		desc := hit.Content
		if desc == "" {
			desc = hit.Description
		}
		postings = append(postings, model.Posting{
			Title:       title,
			Company:     company,
			Description: desc,
			ApplyURL:    hit.URL,
		})
	}
	return postings, nil
}

// splitResultTitle pulls a company name out of the common
// "Role - Company" and "Role at Company" result title shapes.
func splitResultTitle(raw string) (title, company string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}

	for _, sep := range []string{" at ", " - ", " | ", " – "} {
		if idx := strings.LastIndex(raw, sep); idx > 0 {
			return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+len(sep):])
		}
	}
	return raw, ""
}
