package metadata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(title string, year int, synonyms []string, sources []string) datasetEntry {
	e := datasetEntry{
		Title:    title,
		Type:     "TV",
		Episodes: 12,
		Synonyms: synonyms,
		Sources:  sources,
		Picture:  "https://cdn.example.org/" + normTitle(title) + ".jpg",
	}
	e.AnimeSeason.Year = year
	return e
}

func indexOf(entries ...datasetEntry) *AnimeIndex {
	idx := &AnimeIndex{
		entries: entries,
		byTitle: make(map[string][]int),
	}
	for i, e := range entries {
		idx.byTitle[normTitle(e.Title)] = append(idx.byTitle[normTitle(e.Title)], i)
		for _, syn := range e.Synonyms {
			idx.byTitle[normTitle(syn)] = append(idx.byTitle[normTitle(syn)], i)
		}
	}
	return idx
}

func fixtureEntries() []datasetEntry {
	return []datasetEntry{
		testEntry("Sousou no Frieren", 2023,
			[]string{"Frieren: Beyond Journey's End", "Frieren"},
			[]string{
				"https://anilist.co/anime/154587",
				"https://myanimelist.net/anime/52991",
				"https://anidb.net/anime/17617",
				"https://kitsu.app/anime/46474",
			}),
		testEntry("Cowboy Bebop", 1998, nil,
			[]string{"https://anilist.co/anime/1", "https://myanimelist.net/anime/1"}),
		testEntry("Mushishi", 2005, nil,
			[]string{"https://myanimelist.net/anime/457"}),
		testEntry("Mushishi", 2014,
			[]string{"Mushishi Zoku Shou"},
			[]string{"https://myanimelist.net/anime/21939"}),
	}
}

// Load goes through the on-disk file; a fresh mtime keeps the refresh from
// reaching for the network.
func TestAnimeDBLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anime-offline-database.json")
	raw, err := json.Marshal(datasetFile{Data: fixtureEntries()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	db := NewAnimeDB(path)
	idx, err := db.Load(context.Background())
	require.NoError(t, err)
	defer idx.Release()

	assert.Equal(t, 4, idx.Len())

	res, err := idx.Lookup("Cowboy Bebop", nil)
	require.NoError(t, err)
	assert.Equal(t, "Cowboy Bebop", res.Title)
}

func TestAnimeDBLoad_MissingFile(t *testing.T) {
	db := NewAnimeDB(filepath.Join(t.TempDir(), "nope.json"))
	db.url = "http://127.0.0.1:0/unreachable"

	_, err := db.Load(context.Background())
	assert.Error(t, err)
}

func TestLookup_ExactTitle(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	res, err := idx.Lookup("Sousou no Frieren", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sousou no Frieren", res.Title)
	require.NotNil(t, res.Year)
	assert.Equal(t, 2023, *res.Year)
	require.NotNil(t, res.Episodes)
	assert.Equal(t, 12, *res.Episodes)
	require.NotNil(t, res.PosterURL)
}

func TestLookup_Synonym(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	res, err := idx.Lookup("Frieren", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sousou no Frieren", res.Title)
}

func TestLookup_CaseAndSpacingInsensitive(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	res, err := idx.Lookup("  cowboy   BEBOP ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Cowboy Bebop", res.Title)
}

func TestLookup_YearDisambiguates(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	// Two entries share the title "Mushishi"; the year bonus must pick the
	// right season.
	res, err := idx.Lookup("Mushishi", intPtr(2014))
	require.NoError(t, err)
	require.NotNil(t, res.Year)
	assert.Equal(t, 2014, *res.Year)

	res, err = idx.Lookup("Mushishi", intPtr(2005))
	require.NoError(t, err)
	require.NotNil(t, res.Year)
	assert.Equal(t, 2005, *res.Year)
}

func TestLookup_YearWindowRejects(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	_, err := idx.Lookup("Cowboy Bebop", intPtr(2020))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_NoMatchBelowThreshold(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	_, err := idx.Lookup("Completely Unrelated Show", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_PrefixMatch(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	defer idx.Release()

	res, err := idx.Lookup("Sousou no", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sousou no Frieren", res.Title)
}

func TestIdsFromSources(t *testing.T) {
	ids := idsFromSources([]string{
		"https://anilist.co/anime/154587",
		"https://myanimelist.net/anime/52991",
		"https://anidb.net/anime/17617",
		"https://kitsu.app/anime/46474",
		"https://notadb.example.org/anime/999",
		"https://anilist.co/anime/not-a-number",
	})
	require.NotNil(t, ids.AniList)
	assert.Equal(t, 154587, *ids.AniList)
	require.NotNil(t, ids.MAL)
	assert.Equal(t, 52991, *ids.MAL)
	require.NotNil(t, ids.AniDB)
	assert.Equal(t, 17617, *ids.AniDB)
	require.NotNil(t, ids.Kitsu)
	assert.Equal(t, 46474, *ids.Kitsu)
	assert.Nil(t, ids.TMDB)
}

func TestRelease_Idempotent(t *testing.T) {
	idx := indexOf(fixtureEntries()...)
	idx.Release()
	idx.Release() // must not panic

	assert.Equal(t, 0, idx.Len())
	_, err := idx.Lookup("Cowboy Bebop", nil)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestRelease_NilSafe(t *testing.T) {
	var idx *AnimeIndex
	idx.Release()
	assert.Equal(t, 0, idx.Len())
}
