package metadata

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	releaseGroupTag = regexp.MustCompile(`^\[[^\]]+\]`)
	animeKeywords   = []string{
		"ova", "ona", "oav", "gekijouban", "movie edition",
		"cour", "sub esp", "vostfr", "fansub",
	}
)

// IsLikelyAnime guesses whether a title should go through the anime
// provider chain. Signals, strongest first: the file lives under an
// "anime" folder, the name carries a fansub group tag, the title contains
// CJK characters, or it uses anime release vocabulary.
func IsLikelyAnime(title, path string) bool {
	lowerPath := strings.ToLower(path)
	for _, part := range strings.FieldsFunc(lowerPath, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == "anime" || strings.HasPrefix(part, "anime ") || strings.HasSuffix(part, " anime") {
			return true
		}
	}

	if releaseGroupTag.MatchString(strings.TrimSpace(path[strings.LastIndexAny(path, `/\`)+1:])) {
		return true
	}

	for _, r := range title {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}

	lowerTitle := " " + strings.ToLower(title) + " "
	for _, kw := range animeKeywords {
		if strings.Contains(lowerTitle, " "+kw+" ") {
			return true
		}
	}
	return false
}
