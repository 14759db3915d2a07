package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"
const tmdbImageBase = "https://image.tmdb.org/t/p/original"

// TMDBScraper covers both movies and general (non-anime) series. It is
// only wired into the chains when an API key is configured.
type TMDBScraper struct {
	apiKey string
	client *http.Client
	budget *Budget
}

func NewTMDBScraper(apiKey string, budget *Budget) *TMDBScraper {
	return &TMDBScraper{
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
		budget: budget,
	}
}

func (s *TMDBScraper) Name() string { return "tmdb" }

type tmdbEntry struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Runtime      *int    `json:"runtime"`
}

func (s *TMDBScraper) Search(ctx context.Context, title string, year *int, kind MediaKind) (*Result, error) {
	res, err := s.search(ctx, title, year, kind)
	if err == ErrNotFound && year != nil {
		// Folder years are sometimes re-release years; retry unpinned.
		return s.search(ctx, title, nil, kind)
	}
	return res, err
}

func (s *TMDBScraper) search(ctx context.Context, title string, year *int, kind MediaKind) (*Result, error) {
	searchType := "movie"
	if kind == KindSeries {
		searchType = "tv"
	}

	endpoint := fmt.Sprintf("%s/search/%s?api_key=%s&query=%s",
		tmdbBaseURL, searchType, s.apiKey, url.QueryEscape(title))
	if year != nil && *year > 0 {
		if searchType == "tv" {
			endpoint += fmt.Sprintf("&first_air_date_year=%d", *year)
		} else {
			endpoint += fmt.Sprintf("&year=%d", *year)
		}
	}

	var out struct {
		Results []tmdbEntry `json:"results"`
	}
	if err := s.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, ErrNotFound
	}
	return out.Results[0].toResult(), nil
}

func (s *TMDBScraper) LookupByID(ctx context.Context, ids catalog.ProviderIDs) (*Result, error) {
	if ids.TMDB == nil {
		return nil, ErrNotFound
	}
	// Try TV first; series are the common case for ID refreshes here.
	for _, kind := range []string{"tv", "movie"} {
		endpoint := fmt.Sprintf("%s/%s/%d?api_key=%s", tmdbBaseURL, kind, *ids.TMDB, s.apiKey)
		var entry tmdbEntry
		err := s.get(ctx, endpoint, &entry)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		res := entry.toResult()
		return res, nil
	}
	return nil, ErrNotFound
}

// EpisodeDetails fetches per-episode metadata for a series the library has
// opted into.
func (s *TMDBScraper) EpisodeDetails(ctx context.Context, tmdbID, season, episode int) (*Result, error) {
	endpoint := fmt.Sprintf("%s/tv/%d/season/%d/episode/%d?api_key=%s",
		tmdbBaseURL, tmdbID, season, episode, s.apiKey)

	var out struct {
		Name        string  `json:"name"`
		Overview    string  `json:"overview"`
		AirDate     string  `json:"air_date"`
		VoteAverage float64 `json:"vote_average"`
		Runtime     *int    `json:"runtime"`
		StillPath   string  `json:"still_path"`
	}
	if err := s.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	res := &Result{Title: out.Name, Source: s.Name()}
	if out.Overview != "" {
		res.Overview = strPtr(out.Overview)
	}
	if out.VoteAverage > 0 {
		res.Rating = floatPtr(out.VoteAverage)
	}
	res.RuntimeMinutes = out.Runtime
	res.PremiereDate = parseDate(out.AirDate)
	if out.StillPath != "" {
		res.PosterURL = strPtr(tmdbImageBase + out.StillPath)
	}
	return res, nil
}

func (s *TMDBScraper) get(ctx context.Context, endpoint string, dst interface{}) error {
	if s.apiKey == "" {
		return ErrNotFound
	}
	if !s.budget.Allow() {
		return ErrRateLimited
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("tmdb: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("tmdb: parse response: %w", err)
	}
	return nil
}

func (e *tmdbEntry) toResult() *Result {
	title := e.Title
	if title == "" {
		title = e.Name
	}
	res := &Result{
		Title:  title,
		IDs:    catalog.ProviderIDs{TMDB: intPtr(e.ID)},
		Source: "tmdb",
	}
	if e.Overview != "" {
		res.Overview = strPtr(e.Overview)
	}
	if e.VoteAverage > 0 {
		res.Rating = floatPtr(e.VoteAverage)
	}
	res.RuntimeMinutes = e.Runtime
	dateStr := e.ReleaseDate
	if dateStr == "" {
		dateStr = e.FirstAirDate
	}
	if d := parseDate(dateStr); d != nil {
		res.PremiereDate = d
		res.Year = intPtr(d.Year())
	}
	if e.PosterPath != "" {
		res.PosterURL = strPtr(tmdbImageBase + e.PosterPath)
	}
	return res
}
