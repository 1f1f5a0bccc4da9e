package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSVBasic(t *testing.T) {
	input := "Senior Go Engineer,Acme,Remote\nData Analyst,Initech,Austin TX\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Senior Go Engineer", "Acme", "Remote"}, rows[0])
}

func TestStreamCSVHeaderRouting(t *testing.T) {
	input := "title,company,location\nBackend Engineer,Acme,Remote\n"
	headerCh := make(chan []string, 1)

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"title", "company", "location"}, <-headerCh)
	assert.Equal(t, []string{"Backend Engineer", "Acme", "Remote"}, rows[0])
}

func TestStreamCSVPipeDelimitedTrimmed(t *testing.T) {
	input := " SRE | Globex | Chicago \n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Delimiter: '|',
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"SRE", "Globex", "Chicago"}, rows[0])
}

func TestStreamCSVRaggedRows(t *testing.T) {
	input := "a,b,c\nd,e\nf,g,h,i\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestStreamCSVContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\nc,d\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	assert.Error(t, err)
}

type feedJob struct {
	Title    string `xml:"title"`
	Company  string `xml:"company"`
	Location string `xml:"location"`
	URL      string `xml:"url"`
}

func TestStreamXMLDecodesJobs(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8"?>
<feed>
  <publisher>Acme Boards</publisher>
  <job>
    <title>Platform Engineer</title>
    <company>Acme</company>
    <location>Remote</location>
    <url>https://jobs.example.com/1</url>
  </job>
  <job>
    <title>Staff SWE</title>
    <company>Globex</company>
    <location>NYC</location>
    <url>https://jobs.example.com/2</url>
  </job>
</feed>`

	outCh, errCh := StreamXML[feedJob](context.Background(), strings.NewReader(input), "job")

	var jobs []feedJob
	for j := range outCh {
		jobs = append(jobs, j)
	}
	for err := range errCh {
		require.NoError(t, err)
	}

	require.Len(t, jobs, 2)
	assert.Equal(t, "Platform Engineer", jobs[0].Title)
	assert.Equal(t, "Globex", jobs[1].Company)
	assert.Equal(t, "https://jobs.example.com/2", jobs[1].URL)
}

func TestStreamXMLMalformed(t *testing.T) {
	input := `<feed><job><title>Broken`
	outCh, errCh := StreamXML[feedJob](context.Background(), strings.NewReader(input), "job")

	for range outCh {
	}
	var got error
	for err := range errCh {
		got = err
	}
	assert.Error(t, got)
}
