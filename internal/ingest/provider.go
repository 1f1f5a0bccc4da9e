// Package ingest pulls postings from registered sources, deduplicates them
// against the job store, and records one audit run per pass.
package ingest

import (
	"context"

	"github.com/jobswipe/jobintel/internal/model"
)

// Provider fetches normalized postings for one kind of source.
type Provider interface {
	// Kind reports which source kind this provider serves.
	Kind() model.SourceKind
	// Fetch pulls the source's current postings. The engine treats any
	// error as a whole-source failure; providers do not partially succeed.
	Fetch(ctx context.Context, src *model.JobSource) ([]model.Posting, error)
}
