package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
)

const (
	datasetURL    = "https://github.com/manami-project/anime-offline-database/releases/latest/download/anime-offline-database-minified.json"
	datasetMaxAge = 7 * 24 * time.Hour

	// minConfidenceScore is the floor below which a dataset candidate is
	// treated as no match at all.
	minConfidenceScore = 60
	// maxYearDiff rejects candidates whose season year is too far from
	// the year parsed off the filesystem.
	maxYearDiff = 5
)

// ErrNotLoaded is returned by lookups against a released index.
var ErrNotLoaded = errors.New("metadata: anime index released")

// AnimeDB manages the on-disk copy of the anime-offline-database dataset.
// Load parses it into an in-memory AnimeIndex handle that the caller owns
// for the duration of one scan and releases afterwards.
type AnimeDB struct {
	path   string
	url    string
	maxAge time.Duration
	client *http.Client

	mu sync.Mutex // serializes downloads
}

func NewAnimeDB(path string) *AnimeDB {
	return &AnimeDB{
		path:   path,
		url:    datasetURL,
		maxAge: datasetMaxAge,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type datasetFile struct {
	Data []datasetEntry `json:"data"`
}

type datasetEntry struct {
	Sources     []string `json:"sources"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Episodes    int      `json:"episodes"`
	AnimeSeason struct {
		Season string `json:"season"`
		Year   int    `json:"year"`
	} `json:"animeSeason"`
	Picture  string   `json:"picture"`
	Synonyms []string `json:"synonyms"`
}

// AnimeIndex is the in-memory lookup structure for one scan pass. It is
// safe for concurrent lookups; Release must only be called once no more
// lookups are in flight.
type AnimeIndex struct {
	entries  []datasetEntry
	byTitle  map[string][]int
	released atomic.Bool
}

// Load refreshes the dataset file if it is older than a week, then parses
// and indexes it. A failed refresh falls back to the stale file; only a
// missing file is fatal.
func (db *AnimeDB) Load(ctx context.Context) (*AnimeIndex, error) {
	if err := db.refresh(ctx); err != nil {
		if _, statErr := os.Stat(db.path); statErr != nil {
			return nil, fmt.Errorf("anime dataset unavailable: %w", err)
		}
		log.Printf("AnimeDB: refresh failed, using stale dataset: %v", err)
	}

	data, err := os.ReadFile(db.path)
	if err != nil {
		return nil, fmt.Errorf("read anime dataset: %w", err)
	}

	var file datasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse anime dataset: %w", err)
	}

	idx := &AnimeIndex{
		entries: file.Data,
		byTitle: make(map[string][]int, len(file.Data)*2),
	}
	for i, e := range file.Data {
		idx.byTitle[normTitle(e.Title)] = append(idx.byTitle[normTitle(e.Title)], i)
		for _, syn := range e.Synonyms {
			idx.byTitle[normTitle(syn)] = append(idx.byTitle[normTitle(syn)], i)
		}
	}
	log.Printf("AnimeDB: indexed %d entries (%d title keys)", len(idx.entries), len(idx.byTitle))
	return idx, nil
}

func (db *AnimeDB) refresh(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if info, err := os.Stat(db.path); err == nil {
		if time.Since(info.ModTime()) < db.maxAge {
			return nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, db.url, nil)
	if err != nil {
		return err
	}
	resp, err := db.client.Do(req)
	if err != nil {
		return fmt.Errorf("download anime dataset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download anime dataset: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(db.path), 0o755); err != nil {
		return err
	}
	tmp := db.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write anime dataset: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, db.path); err != nil {
		return err
	}
	log.Printf("AnimeDB: dataset refreshed (%s)", db.path)
	return nil
}

// Release drops the index. It is idempotent; lookups afterwards return
// ErrNotLoaded.
func (idx *AnimeIndex) Release() {
	if idx == nil {
		return
	}
	if idx.released.CompareAndSwap(false, true) {
		idx.entries = nil
		idx.byTitle = nil
	}
}

// Len reports how many dataset entries are indexed.
func (idx *AnimeIndex) Len() int {
	if idx == nil || idx.released.Load() {
		return 0
	}
	return len(idx.entries)
}

// Lookup finds the best dataset match for a title. Scoring is tiered:
// exact title/synonym 100, prefix 85, containment 70, word overlap up to
// 65, plus a small bonus for an agreeing year. Candidates outside the
// year window are rejected outright.
func (idx *AnimeIndex) Lookup(title string, year *int) (*Result, error) {
	if idx == nil || idx.released.Load() {
		return nil, ErrNotLoaded
	}

	query := normTitle(title)
	if query == "" {
		return nil, ErrNotFound
	}

	best := -1
	bestScore := 0

	if hits, ok := idx.byTitle[query]; ok {
		for _, i := range hits {
			if score, ok := scoreCandidate(100, year, idx.entries[i]); ok && score > bestScore {
				best, bestScore = i, score
			}
		}
	}

	if best < 0 {
		for i := range idx.entries {
			base := matchScore(query, &idx.entries[i])
			if base == 0 {
				continue
			}
			if score, ok := scoreCandidate(base, year, idx.entries[i]); ok && score > bestScore {
				best, bestScore = i, score
			}
		}
	}

	if best < 0 || bestScore < minConfidenceScore {
		return nil, ErrNotFound
	}
	return idx.entries[best].toResult(), nil
}

func matchScore(query string, e *datasetEntry) int {
	best := 0
	for _, candidate := range append([]string{e.Title}, e.Synonyms...) {
		c := normTitle(candidate)
		if c == "" {
			continue
		}
		var score int
		switch {
		case c == query:
			score = 100
		case strings.HasPrefix(c, query) || strings.HasPrefix(query, c):
			score = 85
		case strings.Contains(c, query) || strings.Contains(query, c):
			score = 70
		default:
			score = int(wordOverlap(query, c) * 65)
		}
		if score > best {
			best = score
		}
	}
	return best
}

func scoreCandidate(base int, year *int, e datasetEntry) (int, bool) {
	if year == nil || e.AnimeSeason.Year == 0 {
		return base, true
	}
	diff := *year - e.AnimeSeason.Year
	if diff < 0 {
		diff = -diff
	}
	if diff > maxYearDiff {
		return 0, false
	}
	switch {
	case diff == 0:
		return base + 10, true
	case diff <= 2:
		return base + 5, true
	}
	return base, true
}

func wordOverlap(a, b string) float64 {
	aw := strings.Fields(a)
	bw := strings.Fields(b)
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(aw))
	for _, w := range aw {
		set[w] = struct{}{}
	}
	matched := 0
	for _, w := range bw {
		if _, ok := set[w]; ok {
			matched++
		}
	}
	denom := len(aw)
	if len(bw) > denom {
		denom = len(bw)
	}
	return float64(matched) / float64(denom)
}

func (e *datasetEntry) toResult() *Result {
	res := &Result{
		Title:  e.Title,
		IDs:    idsFromSources(e.Sources),
		Source: "anime-offline-database",
	}
	if e.AnimeSeason.Year > 0 {
		res.Year = intPtr(e.AnimeSeason.Year)
	}
	if e.Episodes > 0 {
		res.Episodes = intPtr(e.Episodes)
	}
	if e.Picture != "" {
		res.PosterURL = strPtr(e.Picture)
	}
	return res
}

// idsFromSources extracts provider IDs from the dataset's source URLs. The
// first parseable ID per provider wins; a malformed or duplicate source must
// not clobber one already extracted.
func idsFromSources(sources []string) catalog.ProviderIDs {
	var ids catalog.ProviderIDs
	for _, src := range sources {
		switch {
		case strings.Contains(src, "anilist.co/anime/"):
			fillID(&ids.AniList, src)
		case strings.Contains(src, "myanimelist.net/anime/"):
			fillID(&ids.MAL, src)
		case strings.Contains(src, "anidb.net/anime/"):
			fillID(&ids.AniDB, src)
		case strings.Contains(src, "kitsu.app/anime/"), strings.Contains(src, "kitsu.io/anime/"):
			fillID(&ids.Kitsu, src)
		}
	}
	return ids
}

func fillID(dst **int, src string) {
	if *dst != nil {
		return
	}
	if id := tailID(src); id != nil {
		*dst = id
	}
}

func tailID(url string) *int {
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return nil
	}
	n, err := strconv.Atoi(url[idx+1:])
	if err != nil {
		return nil
	}
	return &n
}

func normTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
