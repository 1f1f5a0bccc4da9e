package ingest

import (
	"context"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobswipe/jobintel/internal/fetcher"
	"github.com/jobswipe/jobintel/internal/model"
)

// FeedProvider ingests bulk job feeds. The source endpoint is the feed
// URL; scheme picks the transport (http/https/ftp) and the path extension
// picks the format (.csv, .xml, .xlsx).
type FeedProvider struct {
	http fetcher.Fetcher
	ftp  fetcher.Fetcher
}

// NewFeedProvider creates a FeedProvider over the given transports.
func NewFeedProvider(httpFetcher, ftpFetcher fetcher.Fetcher) *FeedProvider {
	return &FeedProvider{http: httpFetcher, ftp: ftpFetcher}
}

func (p *FeedProvider) Kind() model.SourceKind { return model.SourceKindFeed }

func (p *FeedProvider) Fetch(ctx context.Context, src *model.JobSource) ([]model.Posting, error) {
	u, err := url.Parse(src.Endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse feed url for %s", src.Name)
	}

	f := p.http
	if u.Scheme == "ftp" {
		f = p.ftp
	}

	body, err := f.Download(ctx, src.Endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: download feed for %s", src.Name)
	}
	defer body.Close() //nolint:errcheck

	var postings []model.Posting
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".xml":
		postings, err = decodeXMLFeed(ctx, body)
	case ".xlsx":
		rows, xerr := fetcher.ReadXLSX(body, fetcher.XLSXOptions{})
		if xerr != nil {
			err = xerr
			break
		}
		postings, err = postingsFromRows(rows)
	default:
		postings, err = decodeCSVFeed(ctx, body)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: decode feed for %s", src.Name)
	}

	// Rows without a title or company cannot be deduplicated; drop them.
	kept := postings[:0]
	dropped := 0
	for _, p := range postings {
		if p.Title == "" || p.Company == "" {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	if dropped > 0 {
		zap.L().Warn("feed rows dropped",
			zap.String("source", src.Name),
			zap.Int("dropped", dropped),
		)
	}
	return kept, nil
}

func decodeCSVFeed(ctx context.Context, body io.Reader) ([]model.Posting, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, body, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.New("ingest: feed has no header row")
	}

	cols := columnIndex(header)
	postings := make([]model.Posting, 0, len(rows))
	for _, row := range rows {
		postings = append(postings, postingFromRow(cols, row))
	}
	return postings, nil
}

// postingsFromRows maps header-plus-rows tabular data (XLSX) to postings.
func postingsFromRows(rows [][]string) ([]model.Posting, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: empty feed")
	}
	cols := columnIndex(rows[0])
	postings := make([]model.Posting, 0, len(rows)-1)
	for _, row := range rows[1:] {
		postings = append(postings, postingFromRow(cols, row))
	}
	return postings, nil
}

// columnIndex maps recognized header names to column positions. Feeds use
// wildly different header vocabularies; this is the tolerant union seen in
// the real ones.
func columnIndex(header []string) map[string]int {
	aliases := map[string]string{
		"id": "id", "job_id": "id", "jobid": "id", "reference": "id",
		"title": "title", "job_title": "title", "position": "title",
		"company": "company", "company_name": "company", "employer": "company",
		"location": "location", "city": "location",
		"work_type": "work_type", "type": "work_type", "employment_type": "work_type",
		"salary_min": "salary_min", "min_salary": "salary_min",
		"salary_max": "salary_max", "max_salary": "salary_max",
		"description": "description", "job_description": "description",
		"url": "apply_url", "apply_url": "apply_url", "link": "apply_url", "job_url": "apply_url",
		"posted_at": "posted_at", "posted": "posted_at", "date": "posted_at", "date_posted": "posted_at",
		"requirements": "requirements",
	}

	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canonical, ok := aliases[key]; ok {
			if _, taken := cols[canonical]; !taken {
				cols[canonical] = i
			}
		}
	}
	return cols
}

func postingFromRow(cols map[string]int, row []string) model.Posting {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	p := model.Posting{
		NativeID:    get("id"),
		Title:       get("title"),
		Company:     get("company"),
		Location:    get("location"),
		WorkType:    get("work_type"),
		Description: get("description"),
		ApplyURL:    get("apply_url"),
		SalaryMin:   parseSalary(get("salary_min")),
		SalaryMax:   parseSalary(get("salary_max")),
	}
	if reqs := get("requirements"); reqs != "" {
		p.Requirements = splitList(reqs)
	}
	if t := parseFeedTime(get("posted_at")); t != nil {
		p.PostedAt = t
	}
	return p
}

// feedItem is the XML element vocabulary shared by the common job-feed
// dialects.
type feedItem struct {
	ID           string `xml:"id"`
	ReferenceNum string `xml:"referencenumber"`
	Title        string `xml:"title"`
	Company      string `xml:"company"`
	Location     string `xml:"location"`
	City         string `xml:"city"`
	WorkType     string `xml:"type"`
	SalaryMin    string `xml:"salary_min"`
	SalaryMax    string `xml:"salary_max"`
	Description  string `xml:"description"`
	Requirements string `xml:"requirements"`
	URL          string `xml:"url"`
	PostedAt     string `xml:"date"`
}

func decodeXMLFeed(ctx context.Context, body io.Reader) ([]model.Posting, error) {
	itemCh, errCh := fetcher.StreamXML[feedItem](ctx, body, "job")

	var postings []model.Posting
	for item := range itemCh {
		p := model.Posting{
			NativeID:    item.ID,
			Title:       strings.TrimSpace(item.Title),
			Company:     strings.TrimSpace(item.Company),
			Location:    strings.TrimSpace(item.Location),
			WorkType:    strings.TrimSpace(item.WorkType),
			Description: strings.TrimSpace(item.Description),
			ApplyURL:    strings.TrimSpace(item.URL),
			SalaryMin:   parseSalary(item.SalaryMin),
			SalaryMax:   parseSalary(item.SalaryMax),
		}
		if p.NativeID == "" {
			p.NativeID = item.ReferenceNum
		}
		if p.Location == "" {
			p.Location = strings.TrimSpace(item.City)
		}
		if item.Requirements != "" {
			p.Requirements = splitList(item.Requirements)
		}
		if t := parseFeedTime(item.PostedAt); t != nil {
			p.PostedAt = t
		}
		postings = append(postings, p)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	return postings, nil
}

func parseSalary(raw string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return 0
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

var feedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"01/02/2006",
}

func parseFeedTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

func splitList(raw string) []string {
	sep := ";"
	if !strings.Contains(raw, ";") && strings.Contains(raw, "|") {
		sep = "|"
	}
	parts := strings.Split(raw, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
