package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ──────── Filename grammars ────────

var (
	// S01E02, s1e2, S01E102; underscores count as separators too
	sxxEyyPattern = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])S(\d{1,2})\s*E(\d{1,3})\b`)
	// 1x02 style
	crossPattern = regexp.MustCompile(`(?:^|[\s._-])(\d{1,2})[xX](\d{1,3})(?:[\s._-]|$)`)
	// Loose "02E05" / "2E5" with plausibility bounds applied by the caller
	looseEpPattern = regexp.MustCompile(`(?:^|[\s-])[Ee]?(\d{1,2})[Ee](\d{1,3})\b`)
	// Anime convention: "Show - 05", "Show - 05 [1080p]", "Show 05 (BD)"
	animeEpPattern = regexp.MustCompile(`[\s-]+[Ee]?[Pp]?\.?\s?(\d{1,3})(?:\s*[\[(]|\s*$)`)

	yearPattern = regexp.MustCompile(`[([]?\b((?:19|20)\d{2})\b[)\]]?`)

	// Leading "[ReleaseGroup]" tag
	groupTagPattern = regexp.MustCompile(`^\[[^\]]*\]\s*`)
	// Everything from the first release-info token onward is junk
	releaseInfoPattern = regexp.MustCompile(`(?i)\b(480p|720p|1080p|2160p|4k|bluray|blu-ray|bdrip|brrip|webrip|web-dl|webdl|web|hdtv|dvdrip|remux|proper|repack|x264|x265|h\.?264|h\.?265|hevc|av1|aac|ac3|eac3|flac|opus|ddp?5\.?1|10bit|10-bit|8bit|hi10p?|dual[ ._-]?audio|multi[ ._-]?sub|uncensored|remastered)\b.*$`)
	// "Season 2", "S02" season folder names
	seasonFolderPattern = regexp.MustCompile(`(?i)^(?:season[ ._-]*|s)(\d{1,2})$`)
	// Season markers inside a folder name ("Show S01-S03", "Show Season 1")
	seasonInfoPattern = regexp.MustCompile(`(?i)\b(?:season[ ._-]*\d{1,2}|s\d{1,2}(?:\s*-\s*s?\d{1,2})?)\b`)
	// "-GROUP" suffix at the very end
	trailingGroupPattern = regexp.MustCompile(`-[A-Za-z0-9]+$`)
	bracketOnlyPattern   = regexp.MustCompile(`^\[[^\]]*\]$`)
	parenReleasePattern  = regexp.MustCompile(`\(([^)]*)\)`)
	bracketChunkPattern  = regexp.MustCompile(`\[[^\]]*\]`)
)

const (
	maxSeason  = 20
	maxEpisode = 999
)

type EpisodeInfo struct {
	Show    string
	Season  int
	Episode int
}

type MovieInfo struct {
	Title string
	Year  *int
}

// ParseEpisodeFilename extracts show title, season and episode from a video
// filename (extension already ignored). The SxxEyy grammar wins; the anime
// grammar defaults to season 1 and is tried last because a bare number is
// the weakest signal.
func ParseEpisodeFilename(name string) (*EpisodeInfo, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	if m := sxxEyyPattern.FindStringSubmatchIndex(base); m != nil {
		season, _ := strconv.Atoi(base[m[2]:m[3]])
		episode, _ := strconv.Atoi(base[m[4]:m[5]])
		return &EpisodeInfo{Show: extractShowName(base[:m[0]]), Season: season, Episode: episode}, true
	}

	if m := crossPattern.FindStringSubmatchIndex(base); m != nil {
		season, _ := strconv.Atoi(base[m[2]:m[3]])
		episode, _ := strconv.Atoi(base[m[4]:m[5]])
		if season >= 1 && season <= maxSeason && episode >= 1 && episode <= maxEpisode {
			return &EpisodeInfo{Show: extractShowName(base[:m[0]]), Season: season, Episode: episode}, true
		}
	}

	if m := looseEpPattern.FindStringSubmatchIndex(base); m != nil {
		season, _ := strconv.Atoi(base[m[2]:m[3]])
		episode, _ := strconv.Atoi(base[m[4]:m[5]])
		if season >= 1 && season <= maxSeason && episode >= 1 && episode <= maxEpisode {
			return &EpisodeInfo{Show: extractShowName(base[:m[0]]), Season: season, Episode: episode}, true
		}
	}

	if m := animeEpPattern.FindStringSubmatchIndex(base); m != nil {
		episode, _ := strconv.Atoi(base[m[2]:m[3]])
		if episode >= 1 && episode <= maxEpisode {
			show := extractShowName(base[:m[0]])
			if show != "" {
				return &EpisodeInfo{Show: show, Season: 1, Episode: episode}, true
			}
		}
	}

	return nil, false
}

// ParseMovieFilename extracts a movie title and optional year. It never
// fails: with no year marker the whole cleaned name becomes the title.
func ParseMovieFilename(name string) *MovieInfo {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = groupTagPattern.ReplaceAllString(base, "")

	if m := yearPattern.FindStringSubmatchIndex(base); m != nil && m[0] > 0 {
		year, _ := strconv.Atoi(base[m[2]:m[3]])
		title := extractShowName(base[:m[0]])
		if title != "" {
			return &MovieInfo{Title: title, Year: &year}
		}
	}
	return &MovieInfo{Title: extractShowName(base)}
}

// extractShowName cleans the part of a filename before the episode/year
// marker into a displayable title.
func extractShowName(s string) string {
	s = groupTagPattern.ReplaceAllString(s, "")
	s = strings.NewReplacer(".", " ", "_", " ").Replace(s)
	s = releaseInfoPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, " -_.")
	return collapseSpaces(s)
}

// ──────── Folder handling ────────

var skipFolderNames = map[string]struct{}{
	"nced": {}, "ncop": {}, "nc": {}, "creditless": {},
	"extras": {}, "extra": {}, "bonus": {}, "special features": {},
	"trailers": {}, "trailer": {}, "featurettes": {},
	"sample": {}, "samples": {}, ".unwatched": {},
	"behind the scenes": {}, "deleted scenes": {}, "interviews": {},
	"shorts": {}, "other": {},
}

var skipFolderSuffixes = []string{" - nced", " - ncop", "-nced", "-ncop", " creditless"}

// ShouldSkipFolder reports whether a directory holds bonus content
// (creditless openings/endings, extras, samples) that must not enter the
// catalog. "Specials" is NOT skipped: it maps to season 0.
func ShouldSkipFolder(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "specials" {
		return false
	}
	if _, ok := skipFolderNames[lower]; ok {
		return true
	}
	if strings.HasPrefix(lower, "ncop") || strings.HasPrefix(lower, "nced") {
		return true
	}
	if strings.Contains(lower, "creditless") || strings.Contains(lower, "textless") {
		return true
	}
	for _, suffix := range skipFolderSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return bracketOnlyPattern.MatchString(strings.TrimSpace(name))
}

// SeasonFolderNumber parses "Season 2", "S02" and "Specials" (season 0)
// folder names.
func SeasonFolderNumber(name string) (int, bool) {
	trimmed := strings.TrimSpace(name)
	if strings.EqualFold(trimmed, "specials") {
		return 0, true
	}
	if m := seasonFolderPattern.FindStringSubmatch(trimmed); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// CleanFolderName turns a release-style series folder into a display title:
// bracketed chunks go first, then parenthesised chunks (a "(2018)" year is
// dropped here and recovered via FolderYear), then season markers, release
// tokens and a trailing "-GROUP". "Show (2018)" and "Show.S01-S03" clean to
// the same title, so both folders key to the same series.
func CleanFolderName(name string) string {
	s := bracketChunkPattern.ReplaceAllString(name, " ")
	s = parenReleasePattern.ReplaceAllString(s, " ")
	s = seasonInfoPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer(".", " ", "_", " ").Replace(s)
	s = releaseInfoPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = trailingGroupPattern.ReplaceAllString(s, "")
	s = strings.Trim(s, " -_.")
	return collapseSpaces(s)
}

// FolderYear pulls a release year out of a folder name, if present.
func FolderYear(name string) *int {
	if m := yearPattern.FindStringSubmatch(name); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return &y
		}
	}
	return nil
}

// ──────── Canonical title key ────────

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CanonicalKey normalizes a title for dedup and index lookup: lowercase,
// diacritics folded, punctuation dropped except hyphens, spaces collapsed.
func CanonicalKey(title string) string {
	lower := strings.ToLower(title)
	folded, _, err := transform.String(diacriticFolder, lower)
	if err != nil {
		folded = lower
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return collapseSpaces(strings.TrimSpace(b.String()))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsVideoFile checks the extension against the configured list.
func IsVideoFile(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}
