package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
)

const anilistEndpoint = "https://graphql.anilist.co"

const anilistMediaFields = `
	id
	idMal
	title { romaji english }
	description(asHtml: false)
	averageScore
	startDate { year month day }
	episodes
	duration
	coverImage { large }`

// AniListScraper talks to the AniList GraphQL API. Anime only.
type AniListScraper struct {
	client *http.Client
	budget *Budget
}

func NewAniListScraper(budget *Budget) *AniListScraper {
	return &AniListScraper{
		client: &http.Client{Timeout: 10 * time.Second},
		budget: budget,
	}
}

func (s *AniListScraper) Name() string { return "anilist" }

func (s *AniListScraper) Search(ctx context.Context, title string, year *int, kind MediaKind) (*Result, error) {
	query := fmt.Sprintf(`query ($search: String) { Media(search: $search, type: ANIME) {%s} }`, anilistMediaFields)
	return s.query(ctx, query, map[string]interface{}{"search": title})
}

func (s *AniListScraper) LookupByID(ctx context.Context, ids catalog.ProviderIDs) (*Result, error) {
	if ids.AniList == nil {
		return nil, ErrNotFound
	}
	query := fmt.Sprintf(`query ($id: Int) { Media(id: $id, type: ANIME) {%s} }`, anilistMediaFields)
	return s.query(ctx, query, map[string]interface{}{"id": *ids.AniList})
}

func (s *AniListScraper) query(ctx context.Context, query string, variables map[string]interface{}) (*Result, error) {
	if !s.budget.Allow() {
		return nil, ErrRateLimited
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anilistEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anilist request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("anilist: status %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Media *struct {
				ID           int    `json:"id"`
				IDMal        *int   `json:"idMal"`
				Title        struct {
					Romaji  string `json:"romaji"`
					English string `json:"english"`
				} `json:"title"`
				Description  string `json:"description"`
				AverageScore *int   `json:"averageScore"`
				StartDate    struct {
					Year  int `json:"year"`
					Month int `json:"month"`
					Day   int `json:"day"`
				} `json:"startDate"`
				Episodes   *int `json:"episodes"`
				Duration   *int `json:"duration"`
				CoverImage struct {
					Large string `json:"large"`
				} `json:"coverImage"`
			} `json:"Media"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("anilist: parse response: %w", err)
	}
	m := out.Data.Media
	if m == nil {
		return nil, ErrNotFound
	}

	title := m.Title.English
	if title == "" {
		title = m.Title.Romaji
	}
	res := &Result{
		Title:  title,
		IDs:    catalog.ProviderIDs{AniList: intPtr(m.ID), MAL: m.IDMal},
		Source: s.Name(),
	}
	if desc := stripHTML(m.Description); desc != "" {
		res.Overview = strPtr(desc)
	}
	if m.AverageScore != nil {
		res.Rating = floatPtr(float64(*m.AverageScore) / 10)
	}
	if m.StartDate.Year > 0 {
		res.Year = intPtr(m.StartDate.Year)
		if m.StartDate.Month > 0 && m.StartDate.Day > 0 {
			d := time.Date(m.StartDate.Year, time.Month(m.StartDate.Month), m.StartDate.Day, 0, 0, 0, 0, time.UTC)
			res.PremiereDate = &d
		}
	}
	res.Episodes = m.Episodes
	res.RuntimeMinutes = m.Duration
	if m.CoverImage.Large != "" {
		res.PosterURL = strPtr(m.CoverImage.Large)
	}
	return res, nil
}

// stripHTML removes the simple markup AniList embeds in descriptions.
func stripHTML(s string) string {
	replacer := strings.NewReplacer("<br>", "\n", "<br />", "\n", "<br/>", "\n",
		"<i>", "", "</i>", "", "<b>", "", "</b>", "")
	return strings.TrimSpace(replacer.Replace(s))
}
