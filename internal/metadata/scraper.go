package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
)

type MediaKind string

const (
	KindSeries MediaKind = "series"
	KindMovie  MediaKind = "movie"
)

var (
	// ErrNotFound means the provider answered but had no acceptable match.
	ErrNotFound = errors.New("metadata: no match")
	// ErrRateLimited means the provider's request budget is exhausted (or
	// it answered 429). The resolver skips the provider for the rest of
	// the scan pass.
	ErrRateLimited = errors.New("metadata: provider rate limited")
)

// Result is a provider-agnostic metadata match.
type Result struct {
	Title          string
	Year           *int
	Overview       *string
	Rating         *float64
	PremiereDate   *time.Time
	RuntimeMinutes *int
	Episodes       *int
	PosterURL      *string
	IDs            catalog.ProviderIDs
	// Source names the provider the match came from, for logging and the
	// scan summary.
	Source string
}

// Scraper is a single metadata provider. LookupByID consults the provider's
// own identifier inside ids and returns ErrNotFound when it is absent.
type Scraper interface {
	Name() string
	Search(ctx context.Context, title string, year *int, kind MediaKind) (*Result, error)
	LookupByID(ctx context.Context, ids catalog.ProviderIDs) (*Result, error)
}

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
