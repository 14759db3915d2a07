package metadata

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
)

const anidbEndpoint = "http://api.anidb.net:9001/httpapi"

// AniDBScraper queries the AniDB HTTP API. AniDB has no search endpoint
// worth using anonymously, so this scraper only resolves known IDs (which
// the offline dataset supplies). The API allows one request every two
// seconds; the budget enforces that.
type AniDBScraper struct {
	client    *http.Client
	budget    *Budget
	clientTag string
}

func NewAniDBScraper(budget *Budget, clientTag string) *AniDBScraper {
	if clientTag == "" {
		clientTag = "tsukimi"
	}
	return &AniDBScraper{
		client:    &http.Client{Timeout: 15 * time.Second},
		budget:    budget,
		clientTag: clientTag,
	}
}

func (s *AniDBScraper) Name() string { return "anidb" }

func (s *AniDBScraper) Search(ctx context.Context, title string, year *int, kind MediaKind) (*Result, error) {
	return nil, ErrNotFound
}

func (s *AniDBScraper) LookupByID(ctx context.Context, ids catalog.ProviderIDs) (*Result, error) {
	if ids.AniDB == nil {
		return nil, ErrNotFound
	}
	if !s.budget.Allow() {
		return nil, ErrRateLimited
	}

	endpoint := fmt.Sprintf("%s?request=anime&client=%s&clientver=1&protover=1&aid=%d",
		anidbEndpoint, s.clientTag, *ids.AniDB)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anidb request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("anidb: status %d", resp.StatusCode)
	}

	var out struct {
		XMLName     xml.Name `xml:"anime"`
		ID          int      `xml:"id,attr"`
		Titles      []struct {
			Type  string `xml:"type,attr"`
			Value string `xml:",chardata"`
		} `xml:"titles>title"`
		Description  string `xml:"description"`
		StartDate    string `xml:"startdate"`
		EpisodeCount *int   `xml:"episodecount"`
		Ratings      struct {
			Permanent float64 `xml:"permanent"`
		} `xml:"ratings"`
		Picture string `xml:"picture"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("anidb: parse response: %w", err)
	}
	// An AniDB error document decodes to an empty anime element.
	if out.ID == 0 {
		return nil, ErrNotFound
	}

	title := ""
	for _, t := range out.Titles {
		if t.Type == "main" {
			title = t.Value
			break
		}
	}
	if title == "" && len(out.Titles) > 0 {
		title = out.Titles[0].Value
	}

	res := &Result{
		Title:  title,
		IDs:    catalog.ProviderIDs{AniDB: intPtr(out.ID)},
		Source: s.Name(),
	}
	if out.Description != "" {
		res.Overview = strPtr(out.Description)
	}
	if out.Ratings.Permanent > 0 {
		res.Rating = floatPtr(out.Ratings.Permanent)
	}
	res.Episodes = out.EpisodeCount
	if d := parseDate(out.StartDate); d != nil {
		res.PremiereDate = d
		res.Year = intPtr(d.Year())
	}
	if out.Picture != "" {
		res.PosterURL = strPtr("https://cdn.anidb.net/images/main/" + out.Picture)
	}
	return res, nil
}
