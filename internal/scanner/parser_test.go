package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEpisodeFilename(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		show    string
		season  int
		episode int
	}{
		{"standard SxxEyy", "Breaking.Bad.S01E02.720p.BluRay.x264-GROUP.mkv", "Breaking Bad", 1, 2},
		{"lowercase sxxeyy", "the expanse s03e11.mkv", "the expanse", 3, 11},
		{"three digit episode", "One Piece S01E804.mkv", "One Piece", 1, 804},
		{"cross notation", "Fargo 2x05 The Gift of the Magi.mkv", "Fargo", 2, 5},
		{"fansub release", "[SubsPlease] Frieren - 05 (1080p) [ABCD1234].mkv", "Frieren", 1, 5},
		{"anime high episode", "Bleach - 366 [1080p].mkv", "Bleach", 1, 366},
		{"underscored name", "Cowboy_Bebop_S01E05.mkv", "Cowboy Bebop", 1, 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info, ok := ParseEpisodeFilename(tc.file)
			require.True(t, ok, "expected %q to parse", tc.file)
			assert.Equal(t, tc.show, info.Show)
			assert.Equal(t, tc.season, info.Season)
			assert.Equal(t, tc.episode, info.Episode)
		})
	}
}

func TestParseEpisodeFilename_NoMatch(t *testing.T) {
	for _, file := range []string{
		"Inception (2010).mkv",
		"Some Random Movie.mkv",
	} {
		_, ok := ParseEpisodeFilename(file)
		assert.False(t, ok, "expected %q not to parse as an episode", file)
	}
}

func TestParseMovieFilename(t *testing.T) {
	testCases := []struct {
		name  string
		file  string
		title string
		year  *int
	}{
		{"paren year", "Inception (2010).mkv", "Inception", intp(2010)},
		{"dotted release", "The.Matrix.1999.1080p.BluRay.x264.mkv", "The Matrix", intp(1999)},
		{"no year", "Some Home Video.mkv", "Some Home Video", nil},
		{"group tag stripped", "[Group] Akira (1988) [BD].mkv", "Akira", intp(1988)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info := ParseMovieFilename(tc.file)
			require.NotNil(t, info)
			assert.Equal(t, tc.title, info.Title)
			if tc.year == nil {
				assert.Nil(t, info.Year)
			} else {
				require.NotNil(t, info.Year)
				assert.Equal(t, *tc.year, *info.Year)
			}
		})
	}
}

func TestShouldSkipFolder(t *testing.T) {
	skip := []string{
		"NCED", "ncop", "Extras", "Trailers", "sample", ".unwatched",
		"NCOP1", "NCED 1080p", "Creditless Openings", "Textless ED",
		"Show - NCED", "Opening-NCOP", "[Anime Time]",
		"Behind The Scenes", "Deleted Scenes",
	}
	for _, name := range skip {
		assert.True(t, ShouldSkipFolder(name), "expected %q to be skipped", name)
	}

	keep := []string{"Specials", "Season 1", "S02", "Frieren (2023)", "Extra Terrestrial"}
	for _, name := range keep {
		assert.False(t, ShouldSkipFolder(name), "expected %q to be scanned", name)
	}
}

func TestSeasonFolderNumber(t *testing.T) {
	testCases := []struct {
		folder string
		season int
		ok     bool
	}{
		{"Season 1", 1, true},
		{"season 12", 12, true},
		{"S02", 2, true},
		{"Specials", 0, true},
		{"specials", 0, true},
		{"Extras", 0, false},
		{"Frieren", 0, false},
	}
	for _, tc := range testCases {
		season, ok := SeasonFolderNumber(tc.folder)
		assert.Equal(t, tc.ok, ok, tc.folder)
		if tc.ok {
			assert.Equal(t, tc.season, season, tc.folder)
		}
	}
}

func TestCleanFolderName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"[Judas] Vinland Saga (Season 1) [1080p]", "Vinland Saga"},
		{"Attack on Titan S01-S03 1080p BluRay", "Attack on Titan"},
		{"Steins;Gate (2011)", "Steins;Gate"},
		{"Scissor Seven (2018)", "Scissor Seven"},
		{"Scissor.Seven.S01-S03", "Scissor Seven"},
		{"Show.Name.Season.2.720p.WEB-DL-GROUP", "Show Name"},
		{"Mushishi", "Mushishi"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, CleanFolderName(tc.in), tc.in)
	}
}

func TestCleanFolderName_YearVariantsShareKey(t *testing.T) {
	// A year-suffixed folder and a season-pack folder for the same show must
	// key identically; the year is recovered separately via FolderYear.
	assert.Equal(t,
		CanonicalKey(CleanFolderName("Scissor Seven (2018)")),
		CanonicalKey(CleanFolderName("Scissor.Seven.S01-S03")))

	year := FolderYear("Scissor Seven (2018)")
	require.NotNil(t, year)
	assert.Equal(t, 2018, *year)
}

func TestCanonicalKey(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"Héroes del Silencio", "heroes del silencio"},
		{"Steins;Gate", "steins gate"},
		{"RE:ZERO -Starting Life in Another World-", "re zero -starting life in another world-"},
		{"  Multiple   Spaces  ", "multiple spaces"},
		{"Fate/stay night", "fate stay night"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, CanonicalKey(tc.in), tc.in)
	}
}

func TestCanonicalKey_EquivalentTitles(t *testing.T) {
	assert.Equal(t, CanonicalKey("Pokémon"), CanonicalKey("Pokemon"))
	assert.Equal(t, CanonicalKey("STEINS;GATE"), CanonicalKey("steins gate"))
}

func TestIsVideoFile(t *testing.T) {
	exts := []string{".mkv", ".mp4"}
	assert.True(t, IsVideoFile("show.mkv", exts))
	assert.True(t, IsVideoFile("SHOW.MKV", exts))
	assert.False(t, IsVideoFile("notes.txt", exts))
	assert.False(t, IsVideoFile("show.avi", exts))
}

func intp(v int) *int { return &v }
