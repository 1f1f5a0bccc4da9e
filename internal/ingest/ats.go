package ingest

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/jobswipe/jobintel/internal/model"
	"github.com/jobswipe/jobintel/pkg/ats"
)

// ATSProvider fetches postings from a board API. The source endpoint is
// the board token.
type ATSProvider struct {
	client ats.Client
}

// NewATSProvider creates an ATSProvider.
func NewATSProvider(client ats.Client) *ATSProvider {
	return &ATSProvider{client: client}
}

func (p *ATSProvider) Kind() model.SourceKind { return model.SourceKindAPI }

func (p *ATSProvider) Fetch(ctx context.Context, src *model.JobSource) ([]model.Posting, error) {
	jobs, err := p.client.ListJobs(ctx, src.Endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: ats fetch for %s", src.Name)
	}

	postings := make([]model.Posting, 0, len(jobs))
	for _, j := range jobs {
		company := j.CompanyName
		if company == "" {
			company = src.Name
		}
		posting := model.Posting{
			NativeID:    strconv.FormatInt(j.ID, 10),
			Title:       j.Title,
			Company:     company,
			Location:    j.Location.Name,
			Description: j.Content,
			ApplyURL:    j.AbsoluteURL,
		}
		if !j.UpdatedAt.IsZero() {
			t := j.UpdatedAt
			posting.PostedAt = &t
		}
		postings = append(postings, posting)
	}
	return postings, nil
}
