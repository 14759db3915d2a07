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

const jikanBaseURL = "https://api.jikan.moe/v4"

// JikanScraper uses the unofficial MyAnimeList REST API. Jikan enforces
// roughly 3 requests per second, mirrored in the injected budget.
type JikanScraper struct {
	client *http.Client
	budget *Budget
}

func NewJikanScraper(budget *Budget) *JikanScraper {
	return &JikanScraper{
		client: &http.Client{Timeout: 10 * time.Second},
		budget: budget,
	}
}

func (s *JikanScraper) Name() string { return "jikan" }

type jikanAnime struct {
	MalID    int     `json:"mal_id"`
	Title    string  `json:"title"`
	TitleEng string  `json:"title_english"`
	Synopsis string  `json:"synopsis"`
	Score    float64 `json:"score"`
	Episodes *int    `json:"episodes"`
	Year     int     `json:"year"`
	Aired    struct {
		From string `json:"from"`
	} `json:"aired"`
	Images struct {
		JPG struct {
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
}

func (s *JikanScraper) Search(ctx context.Context, title string, year *int, kind MediaKind) (*Result, error) {
	endpoint := fmt.Sprintf("%s/anime?q=%s&limit=5&order_by=popularity", jikanBaseURL, url.QueryEscape(title))

	var out struct {
		Data []jikanAnime `json:"data"`
	}
	if err := s.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, ErrNotFound
	}

	// Prefer the first result inside the year window; Jikan orders by
	// popularity so ties go to the better-known title.
	for i := range out.Data {
		if year == nil || out.Data[i].Year == 0 {
			return out.Data[i].toResult(), nil
		}
		diff := *year - out.Data[i].Year
		if diff < 0 {
			diff = -diff
		}
		if diff <= maxYearDiff {
			return out.Data[i].toResult(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *JikanScraper) LookupByID(ctx context.Context, ids catalog.ProviderIDs) (*Result, error) {
	if ids.MAL == nil {
		return nil, ErrNotFound
	}
	endpoint := fmt.Sprintf("%s/anime/%d", jikanBaseURL, *ids.MAL)

	var out struct {
		Data *jikanAnime `json:"data"`
	}
	if err := s.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, ErrNotFound
	}
	return out.Data.toResult(), nil
}

func (s *JikanScraper) get(ctx context.Context, endpoint string, dst interface{}) error {
	if !s.budget.Allow() {
		return ErrRateLimited
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("jikan request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("jikan: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("jikan: parse response: %w", err)
	}
	return nil
}

func (a *jikanAnime) toResult() *Result {
	title := a.TitleEng
	if title == "" {
		title = a.Title
	}
	res := &Result{
		Title:  title,
		IDs:    catalog.ProviderIDs{MAL: intPtr(a.MalID)},
		Source: "jikan",
	}
	if a.Synopsis != "" {
		res.Overview = strPtr(a.Synopsis)
	}
	if a.Score > 0 {
		res.Rating = floatPtr(a.Score)
	}
	if a.Year > 0 {
		res.Year = intPtr(a.Year)
	}
	res.Episodes = a.Episodes
	if len(a.Aired.From) >= 10 {
		res.PremiereDate = parseDate(a.Aired.From[:10])
		if res.Year == nil && res.PremiereDate != nil {
			res.Year = intPtr(res.PremiereDate.Year())
		}
	}
	if a.Images.JPG.LargeImageURL != "" {
		res.PosterURL = strPtr(a.Images.JPG.LargeImageURL)
	}
	return res
}
