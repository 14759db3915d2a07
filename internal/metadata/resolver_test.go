package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
)

// stubScraper counts calls so tests can assert which chain member answered.
type stubScraper struct {
	name     string
	searchFn func(title string, year *int) (*Result, error)
	lookupFn func(ids catalog.ProviderIDs) (*Result, error)

	searchCalls int
	lookupCalls int
}

func (s *stubScraper) Name() string { return s.name }

func (s *stubScraper) Search(ctx context.Context, title string, year *int, kind MediaKind) (*Result, error) {
	s.searchCalls++
	if s.searchFn == nil {
		return nil, ErrNotFound
	}
	return s.searchFn(title, year)
}

func (s *stubScraper) LookupByID(ctx context.Context, ids catalog.ProviderIDs) (*Result, error) {
	s.lookupCalls++
	if s.lookupFn == nil {
		return nil, ErrNotFound
	}
	return s.lookupFn(ids)
}

func matchResult(source, title string) func(string, *int) (*Result, error) {
	return func(string, *int) (*Result, error) {
		return &Result{Title: title, Source: source}, nil
	}
}

func TestResolve_ChainOrderWins(t *testing.T) {
	tmdb := &stubScraper{name: "tmdb", searchFn: matchResult("tmdb", "Heat")}
	jikan := &stubScraper{name: "jikan", searchFn: matchResult("jikan", "Heat")}
	r := NewResolver(tmdb, jikan)

	res, err := r.NewSession(nil).Resolve(context.Background(), Request{Title: "Heat", Kind: KindMovie})
	require.NoError(t, err)
	assert.Equal(t, "tmdb", res.Source, "the first provider in the chain is the tie-break")
	assert.Equal(t, 0, jikan.searchCalls)
}

func TestResolve_FallsThroughOnMiss(t *testing.T) {
	tmdb := &stubScraper{name: "tmdb"} // always ErrNotFound
	jikan := &stubScraper{name: "jikan", searchFn: matchResult("jikan", "Redline")}
	r := NewResolver(tmdb, jikan)

	res, err := r.NewSession(nil).Resolve(context.Background(), Request{Title: "Redline", Kind: KindMovie})
	require.NoError(t, err)
	assert.Equal(t, "jikan", res.Source)
	assert.Equal(t, 1, tmdb.searchCalls)
}

func TestResolve_AllMiss(t *testing.T) {
	r := NewResolver(&stubScraper{name: "tmdb"}, &stubScraper{name: "jikan"})

	_, err := r.NewSession(nil).Resolve(context.Background(), Request{Title: "Nothing", Kind: KindMovie})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_RateLimitSkipsForSession(t *testing.T) {
	tmdb := &stubScraper{name: "tmdb", searchFn: func(string, *int) (*Result, error) {
		return nil, ErrRateLimited
	}}
	jikan := &stubScraper{name: "jikan", searchFn: matchResult("jikan", "Whatever")}
	r := NewResolver(tmdb, jikan)
	session := r.NewSession(nil)

	res, err := session.Resolve(context.Background(), Request{Title: "First", Kind: KindMovie})
	require.NoError(t, err)
	assert.Equal(t, "jikan", res.Source)
	require.Equal(t, 1, tmdb.searchCalls)

	// Subsequent titles in the same session must not touch the exhausted
	// provider again.
	_, err = session.Resolve(context.Background(), Request{Title: "Second", Kind: KindMovie})
	require.NoError(t, err)
	assert.Equal(t, 1, tmdb.searchCalls)

	skipped := session.SkippedProviders()
	assert.Contains(t, skipped, "tmdb")
}

func TestResolve_ImplausibleYearRejected(t *testing.T) {
	tmdb := &stubScraper{name: "tmdb", searchFn: func(string, *int) (*Result, error) {
		return &Result{Title: "Heat", Year: intPtr(1953), Source: "tmdb"}, nil
	}}
	jikan := &stubScraper{name: "jikan", searchFn: func(string, *int) (*Result, error) {
		return &Result{Title: "Heat", Year: intPtr(1995), Source: "jikan"}, nil
	}}
	r := NewResolver(tmdb, jikan)

	res, err := r.NewSession(nil).Resolve(context.Background(), Request{
		Title: "Heat", Year: intPtr(1995), Kind: KindMovie,
	})
	require.NoError(t, err)
	assert.Equal(t, "jikan", res.Source, "a match 42 years off must lose to a plausible one")
}

func TestResolve_KnownIDShortCircuitsSearch(t *testing.T) {
	tmdb := &stubScraper{name: "tmdb", lookupFn: func(ids catalog.ProviderIDs) (*Result, error) {
		if ids.TMDB == nil {
			return nil, ErrNotFound
		}
		return &Result{Title: "Heat", Source: "tmdb", IDs: catalog.ProviderIDs{TMDB: ids.TMDB}}, nil
	}}
	r := NewResolver(tmdb)

	res, err := r.NewSession(nil).Resolve(context.Background(), Request{
		Title: "Totally Wrong Folder Name",
		Kind:  KindMovie,
		Known: catalog.ProviderIDs{TMDB: intPtr(949)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Heat", res.Title)
	assert.Equal(t, 0, tmdb.searchCalls, "a known provider ID must not trigger a title search")
}

func TestResolve_KnownIDMissDoesNotSearch(t *testing.T) {
	// The provider's own ID is present but the lookup misses; searching by
	// title would risk re-matching the wrong thing, so the chain moves on.
	tmdb := &stubScraper{name: "tmdb", lookupFn: func(catalog.ProviderIDs) (*Result, error) {
		return nil, ErrNotFound
	}}
	jikan := &stubScraper{name: "jikan", searchFn: matchResult("jikan", "Heat")}
	r := NewResolver(tmdb, jikan)

	res, err := r.NewSession(nil).Resolve(context.Background(), Request{
		Title: "Heat",
		Kind:  KindMovie,
		Known: catalog.ProviderIDs{TMDB: intPtr(949)},
	})
	require.NoError(t, err)
	assert.Equal(t, "jikan", res.Source)
	assert.Equal(t, 0, tmdb.searchCalls)
}

func TestResolve_DatasetIsFallback(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	r := NewResolver() // anime chain collapses to the dataset alone
	session := r.NewSession(idx)

	res, err := session.Resolve(context.Background(), Request{
		Title: "Frieren", Kind: KindSeries, Anime: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "anime-offline-database", res.Source)
	require.NotNil(t, res.IDs.AniList)
	assert.Equal(t, 154587, *res.IDs.AniList)
}

func TestResolve_DatasetIDsFeedByIDLookups(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	overview := "A mage outlives her party."
	anilist := &stubScraper{name: "anilist", lookupFn: func(ids catalog.ProviderIDs) (*Result, error) {
		if ids.AniList == nil {
			return nil, ErrNotFound
		}
		return &Result{
			Title:    "Frieren: Beyond Journey's End",
			Overview: &overview,
			IDs:      catalog.ProviderIDs{AniList: ids.AniList},
			Source:   "anilist",
		}, nil
	}}
	r := NewResolver(anilist)
	session := r.NewSession(idx)

	res, err := session.Resolve(context.Background(), Request{
		Title: "Frieren", Kind: KindSeries, Anime: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "anilist", res.Source)
	assert.Equal(t, 0, anilist.searchCalls, "dataset IDs must route to a by-ID lookup")

	// The dataset's sibling IDs and artwork survive the enrichment.
	require.NotNil(t, res.IDs.MAL)
	assert.Equal(t, 52991, *res.IDs.MAL)
	require.NotNil(t, res.PosterURL)
	require.NotNil(t, res.Episodes)
}

func TestResolve_NilIndexSkipsDataset(t *testing.T) {
	anilist := &stubScraper{name: "anilist", searchFn: matchResult("anilist", "Frieren")}
	r := NewResolver(anilist)

	res, err := r.NewSession(nil).Resolve(context.Background(), Request{
		Title: "Frieren", Kind: KindSeries, Anime: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "anilist", res.Source)
}

func TestIsLikelyAnime(t *testing.T) {
	testCases := []struct {
		name  string
		title string
		path  string
		want  bool
	}{
		{"anime folder", "Some Show", "/media/anime/Some Show/ep1.mkv", true},
		{"fansub tag", "Frieren", "/media/tv/Frieren/[SubsPlease] Frieren - 05.mkv", true},
		{"cjk title", "残響のテロル", "/media/tv/x/ep1.mkv", true},
		{"ova keyword", "Hellsing Ultimate OVA 1", "/media/tv/h/ep1.mkv", true},
		{"plain western", "Breaking Bad", "/media/tv/Breaking Bad/S01E01.mkv", false},
		{"movie", "Heat", "/media/movies/Heat (1995).mkv", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsLikelyAnime(tc.title, tc.path))
		})
	}
}
