package ingest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobswipe/jobintel/internal/fetcher"
	"github.com/jobswipe/jobintel/internal/model"
)

func feedSource(endpoint string) *model.JobSource {
	return &model.JobSource{ID: "src-feed", Name: "test-feed", Kind: model.SourceKindFeed, Endpoint: endpoint}
}

func feedHTTPFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{HostRate: 100, HostBurst: 100})
}

func TestFeedProviderCSV(t *testing.T) {
	csv := `title,company,location,salary_min,salary_max,url,posted_at,id
Senior Engineer,Acme,Remote,140000,180000,https://careers.acme.com/1,2026-08-15,ref-1
Analyst,"Globex, Inc",Chicago,,,https://globex.example.com/2,,ref-2
,MissingTitle Co,Nowhere,,,,,"ref-3"
`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, csv)
	}))
	defer srv.Close()

	p := NewFeedProvider(feedHTTPFetcher(), nil)
	postings, err := p.Fetch(context.Background(), feedSource(srv.URL+"/jobs.csv"))
	require.NoError(t, err)
	require.Len(t, postings, 2, "row without a title is dropped")

	first := postings[0]
	assert.Equal(t, "ref-1", first.NativeID)
	assert.Equal(t, "Senior Engineer", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Equal(t, 140000, first.SalaryMin)
	assert.Equal(t, 180000, first.SalaryMax)
	require.NotNil(t, first.PostedAt)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), *first.PostedAt)

	assert.Equal(t, "Globex, Inc", postings[1].Company)
	assert.Nil(t, postings[1].PostedAt)
}

func TestFeedProviderXML(t *testing.T) {
	xml := `<?xml version="1.0"?>
<jobs>
  <job>
    <referencenumber>9001</referencenumber>
    <title>DevOps Engineer</title>
    <company>Initech</company>
    <city>Austin</city>
    <type>full_time</type>
    <salary_min>$120,000</salary_min>
    <url>https://jobs.initech.com/9001</url>
    <date>2026-08-01T09:00:00Z</date>
    <requirements>Kubernetes; Terraform; Go</requirements>
  </job>
</jobs>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, xml)
	}))
	defer srv.Close()

	p := NewFeedProvider(feedHTTPFetcher(), nil)
	postings, err := p.Fetch(context.Background(), feedSource(srv.URL+"/export.xml"))
	require.NoError(t, err)
	require.Len(t, postings, 1)

	got := postings[0]
	assert.Equal(t, "9001", got.NativeID)
	assert.Equal(t, "DevOps Engineer", got.Title)
	assert.Equal(t, "Austin", got.Location, "city falls back when location is absent")
	assert.Equal(t, 120000, got.SalaryMin)
	assert.Equal(t, []string{"Kubernetes", "Terraform", "Go"}, got.Requirements)
}

func TestColumnIndexAliases(t *testing.T) {
	cols := columnIndex([]string{"Job_Title", "EMPLOYER", "City", "job_url", "Date_Posted"})
	assert.Equal(t, 0, cols["title"])
	assert.Equal(t, 1, cols["company"])
	assert.Equal(t, 2, cols["location"])
	assert.Equal(t, 3, cols["apply_url"])
	assert.Equal(t, 4, cols["posted_at"])
}

func TestParseSalary(t *testing.T) {
	assert.Equal(t, 120000, parseSalary("$120,000"))
	assert.Equal(t, 95000, parseSalary("95000"))
	assert.Zero(t, parseSalary(""))
	assert.Zero(t, parseSalary("competitive"))
}

func TestParseFeedTime(t *testing.T) {
	rfc := parseFeedTime("2026-08-01T09:00:00Z")
	require.NotNil(t, rfc)
	assert.Equal(t, time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC), *rfc)

	us := parseFeedTime("08/15/2026")
	require.NotNil(t, us)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), *us)

	assert.Nil(t, parseFeedTime("yesterday"))
	assert.Nil(t, parseFeedTime(""))
}

func TestSplitResultTitle(t *testing.T) {
	cases := []struct {
		raw, title, company string
	}{
		{"Backend Engineer at Stripe", "Backend Engineer", "Stripe"},
		{"Data Scientist - Netflix", "Data Scientist", "Netflix"},
		{"SRE | Cloudflare", "SRE", "Cloudflare"},
		{"Just A Title", "Just A Title", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		title, company := splitResultTitle(tc.raw)
		assert.Equal(t, tc.title, title, tc.raw)
		assert.Equal(t, tc.company, company, tc.raw)
	}
}
