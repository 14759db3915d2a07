package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
	"github.com/tsukimi-media/tsukimi/internal/ffmpeg"
	"github.com/tsukimi-media/tsukimi/internal/libraries"
	"github.com/tsukimi-media/tsukimi/internal/metadata"
)

type ScanMode string

const (
	// ModeQuick diffs the filesystem against known paths: new files are
	// added and resolved, vanished files are tombstoned.
	ModeQuick ScanMode = "quick"
	// ModeValidate verifies that known files still exist and re-resolves
	// only items still lacking complete metadata; nothing new is added.
	ModeValidate ScanMode = "validate"
	// ModeFull re-resolves metadata for everything on top of the quick
	// pass.
	ModeFull ScanMode = "full"
)

func ParseMode(s string) (ScanMode, error) {
	switch ScanMode(s) {
	case ModeQuick, ModeValidate, ModeFull:
		return ScanMode(s), nil
	case "":
		return ModeQuick, nil
	}
	return "", fmt.Errorf("unknown scan mode %q", s)
}

type Status string

const (
	StatusIdle     Status = "idle"
	StatusScanning Status = "scanning"
	StatusAborting Status = "aborting"
)

var ErrScanInProgress = errors.New("scan already in progress for library")

// TaskQueue is what the scanner needs from the job system. Nil disables
// background work (tests, one-shot CLI use).
type TaskQueue interface {
	EnqueueThumbnail(itemID uuid.UUID, videoPath string) error
	EnqueueImage(itemID uuid.UUID, url string) error
}

type Summary struct {
	LibraryID  uuid.UUID         `json:"library_id"`
	Mode       ScanMode          `json:"mode"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	FilesSeen  int               `json:"files_seen"`
	ItemsAdded int               `json:"items_added"`
	Missing    int               `json:"items_missing"`
	Removed    int               `json:"items_removed"`
	Resolved   int               `json:"items_resolved"`
	Unresolved int               `json:"items_unresolved"`
	Aborted    bool              `json:"aborted"`
	Skipped    map[string]string `json:"skipped_providers,omitempty"`
}

type Options struct {
	Workers         int
	VideoExtensions []string
	MissingGrace    time.Duration
}

// Scanner walks library folders, maintains the catalog and drives metadata
// resolution. One scan per library at a time; concurrent requests for the
// same library are rejected, different libraries scan independently.
type Scanner struct {
	store    catalog.Store
	resolver *metadata.Resolver
	animeDB  *metadata.AnimeDB
	tmdb     *metadata.TMDBScraper
	probe    *ffmpeg.FFprobe
	queue    TaskQueue
	opts     Options

	mu     sync.Mutex
	states map[uuid.UUID]*libState
}

type libState struct {
	status  Status
	abort   atomic.Bool
	summary *Summary
}

func New(store catalog.Store, resolver *metadata.Resolver, opts Options) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if len(opts.VideoExtensions) == 0 {
		opts.VideoExtensions = []string{".mkv", ".mp4", ".avi", ".m4v", ".mov", ".wmv", ".ts", ".webm"}
	}
	if opts.MissingGrace <= 0 {
		opts.MissingGrace = 7 * 24 * time.Hour
	}
	return &Scanner{
		store:    store,
		resolver: resolver,
		opts:     opts,
		states:   make(map[uuid.UUID]*libState),
	}
}

// WithAnimeDB enables the offline dataset for resolution passes.
func (s *Scanner) WithAnimeDB(db *metadata.AnimeDB) *Scanner { s.animeDB = db; return s }

// WithTMDB enables per-episode metadata for opted-in libraries.
func (s *Scanner) WithTMDB(t *metadata.TMDBScraper) *Scanner { s.tmdb = t; return s }

func (s *Scanner) WithProbe(p *ffmpeg.FFprobe) *Scanner { s.probe = p; return s }

func (s *Scanner) WithQueue(q TaskQueue) *Scanner { s.queue = q; return s }

// Status reports the current scan status and the last finished summary.
func (s *Scanner) Status(libraryID uuid.UUID) (Status, *Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[libraryID]
	if !ok {
		return StatusIdle, nil
	}
	return st.status, st.summary
}

// Abort asks a running scan to stop at the next checkpoint. Returns false
// when no scan is running.
func (s *Scanner) Abort(libraryID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[libraryID]
	if !ok || st.status != StatusScanning {
		return false
	}
	st.status = StatusAborting
	st.abort.Store(true)
	return true
}

func (s *Scanner) begin(libraryID uuid.UUID) (*libState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[libraryID]
	if !ok {
		st = &libState{status: StatusIdle}
		s.states[libraryID] = st
	}
	if st.status != StatusIdle {
		return nil, ErrScanInProgress
	}
	st.status = StatusScanning
	st.abort.Store(false)
	return st, nil
}

func (s *Scanner) finish(st *libState, sum *Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.status = StatusIdle
	st.summary = sum
}

// ScanLibrary runs one scan pass. The anime index is loaded on entry and
// released on every exit path; nothing holds it between scans.
func (s *Scanner) ScanLibrary(ctx context.Context, lib *libraries.Library, mode ScanMode) (*Summary, error) {
	st, err := s.begin(lib.ID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{LibraryID: lib.ID, Mode: mode, StartedAt: time.Now()}
	defer func() {
		sum.FinishedAt = time.Now()
		sum.Aborted = st.abort.Load()
		s.finish(st, sum)
	}()

	log.Printf("Scan: library %q (%s) starting, mode=%s", lib.Name, lib.LibraryType, mode)

	var index *metadata.AnimeIndex
	if s.animeDB != nil && lib.RetrieveMetadata {
		index, err = s.animeDB.Load(ctx)
		if err != nil {
			log.Printf("Scan: anime dataset unavailable, resolving without it: %v", err)
		}
	}
	defer index.Release()

	if mode == ModeValidate {
		s.validatePaths(lib, sum)
		if lib.RetrieveMetadata && !st.abort.Load() {
			s.resolvePass(ctx, st, lib, index, false, sum)
		}
		log.Printf("Scan: library %q validated: %d missing, %d removed, %d resolved",
			lib.Name, sum.Missing, sum.Removed, sum.Resolved)
		return sum, nil
	}

	known, err := s.store.ListPathsByLibrary(lib.ID)
	if err != nil {
		return sum, fmt.Errorf("list known paths: %w", err)
	}

	discovered := make(map[string]struct{})
	for _, root := range lib.Folders {
		if st.abort.Load() {
			break
		}
		if err := s.walkRoot(ctx, st, lib, root, known, discovered, sum); err != nil {
			// An unreadable root would make the diff below look like an
			// emptied library and tombstone everything in it. Abort instead.
			s.mu.Lock()
			st.status = StatusAborting
			s.mu.Unlock()
			st.abort.Store(true)
			log.Printf("Scan: walking %s failed, aborting scan: %v", root, err)
			return sum, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	if !st.abort.Load() {
		s.tombstone(lib, known, discovered, sum)
	}

	if lib.RetrieveMetadata && !st.abort.Load() {
		s.resolvePass(ctx, st, lib, index, mode == ModeFull, sum)
	}

	log.Printf("Scan: library %q done: %d files, +%d items, %d missing, %d removed, %d resolved, %d unresolved",
		lib.Name, sum.FilesSeen, sum.ItemsAdded, sum.Missing, sum.Removed, sum.Resolved, sum.Unresolved)
	return sum, nil
}

// ──────── Filesystem walk ────────

func (s *Scanner) walkRoot(ctx context.Context, st *libState, lib *libraries.Library, root string,
	known map[string]uuid.UUID, discovered map[string]struct{}, sum *Summary) error {

	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	if hasIgnoreMarker(root) {
		log.Printf("Scan: %s carries .ignore, skipping", root)
		return nil
	}

	for _, entry := range entries {
		if st.abort.Load() || ctx.Err() != nil {
			return ctx.Err()
		}
		path := filepath.Join(root, entry.Name())

		if entry.IsDir() {
			if ShouldSkipFolder(entry.Name()) || hasIgnoreMarker(path) {
				continue
			}
			if lib.LibraryType == libraries.TypeTVShows {
				s.scanSeriesFolder(ctx, st, lib, path, entry.Name(), known, discovered, sum)
			} else {
				s.scanMovieFolder(ctx, st, lib, path, entry.Name(), known, discovered, sum, 0)
			}
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if lib.LibraryType == libraries.TypeMovies && IsVideoFile(entry.Name(), s.opts.VideoExtensions) {
			s.ingestMovie(ctx, lib, path, entry.Name(), nil, known, discovered, sum)
		}
	}
	return nil
}

func (s *Scanner) scanSeriesFolder(ctx context.Context, st *libState, lib *libraries.Library,
	dir, folderName string, known map[string]uuid.UUID, discovered map[string]struct{}, sum *Summary) {

	title := CleanFolderName(folderName)
	if title == "" {
		return
	}
	series, err := s.ensureSeries(lib, title, FolderYear(folderName))
	if err != nil {
		log.Printf("Scan: series %q: %v", title, err)
		return
	}

	s.scanSeasonDir(ctx, st, lib, series, dir, nil, known, discovered, sum, 0)
}

// scanSeasonDir ingests episode files under dir. season is non-nil inside a
// season folder and overrides whatever the filename claims.
func (s *Scanner) scanSeasonDir(ctx context.Context, st *libState, lib *libraries.Library,
	series *catalog.Item, dir string, season *int,
	known map[string]uuid.UUID, discovered map[string]struct{}, sum *Summary, depth int) {

	if depth > 6 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("Scan: read %s: %v", dir, err)
		return
	}

	for _, entry := range entries {
		if st.abort.Load() || ctx.Err() != nil {
			return
		}
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if ShouldSkipFolder(entry.Name()) || hasIgnoreMarker(path) {
				continue
			}
			next := season
			if n, ok := SeasonFolderNumber(entry.Name()); ok {
				next = &n
			}
			s.scanSeasonDir(ctx, st, lib, series, path, next, known, discovered, sum, depth+1)
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 || !IsVideoFile(entry.Name(), s.opts.VideoExtensions) {
			continue
		}

		sum.FilesSeen++
		discovered[path] = struct{}{}
		s.ingestEpisode(ctx, lib, series, path, entry.Name(), season, known, sum)
	}
}

func (s *Scanner) scanMovieFolder(ctx context.Context, st *libState, lib *libraries.Library,
	dir, folderName string, known map[string]uuid.UUID, discovered map[string]struct{}, sum *Summary, depth int) {

	if depth > 4 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("Scan: read %s: %v", dir, err)
		return
	}
	for _, entry := range entries {
		if st.abort.Load() || ctx.Err() != nil {
			return
		}
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if ShouldSkipFolder(entry.Name()) || hasIgnoreMarker(path) {
				continue
			}
			s.scanMovieFolder(ctx, st, lib, path, entry.Name(), known, discovered, sum, depth+1)
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 || !IsVideoFile(entry.Name(), s.opts.VideoExtensions) {
			continue
		}
		s.ingestMovie(ctx, lib, path, entry.Name(), &folderName, known, discovered, sum)
	}
}

// ──────── Item ingestion ────────

func (s *Scanner) ensureSeries(lib *libraries.Library, title string, year *int) (*catalog.Item, error) {
	key := CanonicalKey(title)
	existing, err := s.store.FindSeriesByKey(lib.ID, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	series := &catalog.Item{
		LibraryID:    lib.ID,
		ItemType:     catalog.TypeSeries,
		Title:        title,
		CanonicalKey: key,
		Year:         year,
	}
	if err := s.store.CreateItem(series); err != nil {
		return nil, err
	}
	return series, nil
}

func (s *Scanner) ingestEpisode(ctx context.Context, lib *libraries.Library, series *catalog.Item,
	path, name string, folderSeason *int, known map[string]uuid.UUID, sum *Summary) {

	if id, ok := known[path]; ok {
		s.reviveIfMissing(id)
		return
	}

	season, episode := 1, 0
	if info, ok := ParseEpisodeFilename(name); ok {
		season, episode = info.Season, info.Episode
	}
	// The season folder is a stronger signal than the filename.
	if folderSeason != nil {
		season = *folderSeason
	}
	if episode == 0 {
		log.Printf("Scan: could not parse episode number from %q, skipping", name)
		return
	}
	// Placeholder until per-episode metadata lands.
	title := fmt.Sprintf("Episode %d", episode)

	item := &catalog.Item{
		LibraryID:     lib.ID,
		ParentID:      &series.ID,
		ItemType:      catalog.TypeEpisode,
		Title:         title,
		Path:          path,
		SeasonNumber:  &season,
		EpisodeNumber: &episode,
	}
	s.probeInto(ctx, item)
	if err := s.store.CreateItem(item); err != nil {
		log.Printf("Scan: create episode %s: %v", path, err)
		return
	}
	sum.ItemsAdded++
	s.queueThumbnail(item)
}

func (s *Scanner) ingestMovie(ctx context.Context, lib *libraries.Library, path, name string,
	folderName *string, known map[string]uuid.UUID, discovered map[string]struct{}, sum *Summary) {

	sum.FilesSeen++
	discovered[path] = struct{}{}

	if id, ok := known[path]; ok {
		s.reviveIfMissing(id)
		return
	}

	info := ParseMovieFilename(name)
	if folderName != nil {
		// A "Title (Year)" folder is usually cleaner than the file name.
		if folderInfo := ParseMovieFilename(*folderName); folderInfo.Year != nil {
			info = folderInfo
		}
	}
	if info.Title == "" {
		return
	}

	item := &catalog.Item{
		LibraryID:    lib.ID,
		ItemType:     catalog.TypeMovie,
		Title:        info.Title,
		CanonicalKey: CanonicalKey(info.Title),
		Path:         path,
		Year:         info.Year,
	}
	s.probeInto(ctx, item)
	if err := s.store.CreateItem(item); err != nil {
		log.Printf("Scan: create movie %s: %v", path, err)
		return
	}
	sum.ItemsAdded++
	s.queueThumbnail(item)
}

// queueThumbnail enqueues thumbnail generation for a new item. The item stays
// in the "none" state when the enqueue fails (or no queue is wired) so the
// periodic sweep picks it up later.
func (s *Scanner) queueThumbnail(item *catalog.Item) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueThumbnail(item.ID, item.Path); err != nil {
		log.Printf("Scan: enqueue thumbnail for %s: %v", item.Path, err)
		return
	}
	if err := s.store.SetThumbnailPending(item.ID); err != nil {
		log.Printf("Scan: mark thumbnail pending for %s: %v", item.Path, err)
	}
}

func (s *Scanner) probeInto(ctx context.Context, item *catalog.Item) {
	if s.probe == nil {
		return
	}
	result, err := s.probe.Probe(ctx, item.Path)
	if err != nil {
		log.Printf("Scan: probe %s: %v", item.Path, err)
		return
	}
	if d := result.GetDurationSeconds(); d > 0 {
		item.DurationSeconds = &d
	}
	if size := result.GetFileSize(); size > 0 {
		item.FileSize = &size
	}
	if c := result.GetVideoCodec(); c != "" {
		item.VideoCodec = &c
	}
	if c := result.GetAudioCodec(); c != "" {
		item.AudioCodec = &c
	}
	if r := result.GetResolution(); r != "" {
		item.Resolution = &r
	}
}

func (s *Scanner) reviveIfMissing(id uuid.UUID) {
	item, err := s.store.GetByID(id)
	if err != nil || item == nil || !item.IsMissing() {
		return
	}
	if err := s.store.ClearMissing(id); err != nil {
		log.Printf("Scan: clear missing flag on %s: %v", id, err)
	}
}

// ──────── Tombstoning ────────

func (s *Scanner) tombstone(lib *libraries.Library, known map[string]uuid.UUID,
	discovered map[string]struct{}, sum *Summary) {

	var gone []uuid.UUID
	for path, id := range known {
		if _, ok := discovered[path]; !ok {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		if err := s.store.MarkMissing(gone, time.Now()); err != nil {
			log.Printf("Scan: tombstone %d items: %v", len(gone), err)
		} else {
			sum.Missing = len(gone)
		}
	}

	removed, err := s.store.DeleteMissingBefore(lib.ID, time.Now().Add(-s.opts.MissingGrace))
	if err != nil {
		log.Printf("Scan: purge tombstones: %v", err)
		return
	}
	sum.Removed = int(removed)
}

func (s *Scanner) validatePaths(lib *libraries.Library, sum *Summary) {
	known, err := s.store.ListPathsByLibrary(lib.ID)
	if err != nil {
		log.Printf("Scan: list known paths: %v", err)
		return
	}
	var gone []uuid.UUID
	for path, id := range known {
		if _, err := os.Stat(path); err == nil {
			s.reviveIfMissing(id)
		} else {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		if err := s.store.MarkMissing(gone, time.Now()); err != nil {
			log.Printf("Scan: tombstone %d items: %v", len(gone), err)
		} else {
			sum.Missing = len(gone)
		}
	}
	removed, err := s.store.DeleteMissingBefore(lib.ID, time.Now().Add(-s.opts.MissingGrace))
	if err == nil {
		sum.Removed = int(removed)
	}
}

// ──────── Metadata resolution ────────

func (s *Scanner) resolvePass(ctx context.Context, st *libState, lib *libraries.Library,
	index *metadata.AnimeIndex, includeComplete bool, sum *Summary) {

	items, err := s.store.ItemsMissingMetadata(lib.ID, includeComplete)
	if err != nil {
		log.Printf("Scan: list unresolved items: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}

	session := s.resolver.NewSession(index)
	var resolved, unresolved, completed int64

	work := make(chan catalog.Item, s.opts.Workers)
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				if s.resolveItem(ctx, session, lib, &item) {
					atomic.AddInt64(&resolved, 1)
				} else {
					atomic.AddInt64(&unresolved, 1)
				}
				atomic.AddInt64(&completed, 1)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Printf("Scan: resolving metadata %d/%d", atomic.LoadInt64(&completed), len(items))
			case <-done:
				return
			}
		}
	}()

feed:
	for _, item := range items {
		if st.abort.Load() {
			break feed
		}
		select {
		case work <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()
	close(done)

	sum.Resolved = int(resolved)
	sum.Unresolved = int(unresolved)
	sum.Skipped = session.SkippedProviders()
}

// resolveItem runs one item through the provider chain and persists the
// outcome. Returns true when a match landed.
func (s *Scanner) resolveItem(ctx context.Context, session *metadata.Session,
	lib *libraries.Library, item *catalog.Item) bool {

	kind := metadata.KindMovie
	if item.ItemType == catalog.TypeSeries {
		kind = metadata.KindSeries
	}
	req := metadata.Request{
		Title: item.Title,
		Year:  item.Year,
		Kind:  kind,
		Anime: lib.PreferAnime || metadata.IsLikelyAnime(item.Title, item.Path),
		Known: item.IDs,
	}

	res, err := session.Resolve(ctx, req)
	if err != nil {
		item.MetadataAttempts++
		if updateErr := s.store.UpdateItem(item); updateErr != nil {
			log.Printf("Scan: record failed resolution for %q: %v", item.Title, updateErr)
		}
		return false
	}

	applyResult(item, res)

	// Two folders can resolve to the same series; fold this one into the
	// existing row.
	if item.ItemType == catalog.TypeSeries {
		if dup, _ := s.store.FindSeriesByProviderIDs(lib.ID, item.IDs); dup != nil && dup.ID != item.ID {
			log.Printf("Scan: merging series %q into %q (shared provider IDs)", item.Title, dup.Title)
			if err := s.store.ReparentChildren(item.ID, dup.ID); err != nil {
				log.Printf("Scan: reparent children of %s: %v", item.ID, err)
				return false
			}
			if err := s.store.DeleteItem(item.ID); err != nil {
				log.Printf("Scan: delete merged series %s: %v", item.ID, err)
			}
			return true
		}
	}

	item.MetadataComplete = true
	if err := s.store.UpdateItem(item); err != nil {
		log.Printf("Scan: persist metadata for %q: %v", item.Title, err)
		return false
	}

	if s.queue != nil && res.PosterURL != nil {
		if err := s.queue.EnqueueImage(item.ID, *res.PosterURL); err != nil {
			log.Printf("Scan: enqueue poster for %q: %v", item.Title, err)
		}
	}

	if item.ItemType == catalog.TypeSeries && lib.EpisodeMetadata && s.tmdb != nil && item.IDs.TMDB != nil {
		s.fillEpisodeMetadata(ctx, item)
	}
	return true
}

// fillEpisodeMetadata fetches TMDB per-episode details for children that
// still have placeholder titles. Stops on the first budget denial.
func (s *Scanner) fillEpisodeMetadata(ctx context.Context, series *catalog.Item) {
	children, err := s.store.ListChildren(series.ID)
	if err != nil {
		log.Printf("Scan: list episodes of %q: %v", series.Title, err)
		return
	}
	for i := range children {
		ep := &children[i]
		if ep.ItemType != catalog.TypeEpisode || ep.Overview != nil {
			continue
		}
		if ep.SeasonNumber == nil || ep.EpisodeNumber == nil {
			continue
		}
		res, err := s.tmdb.EpisodeDetails(ctx, *series.IDs.TMDB, *ep.SeasonNumber, *ep.EpisodeNumber)
		if errors.Is(err, metadata.ErrRateLimited) {
			return
		}
		if err != nil {
			continue
		}
		if res.Title != "" {
			ep.Title = res.Title
		}
		ep.Overview = res.Overview
		ep.Rating = res.Rating
		ep.PremiereDate = res.PremiereDate
		ep.RuntimeMinutes = res.RuntimeMinutes
		ep.MetadataComplete = true
		if err := s.store.UpdateItem(ep); err != nil {
			log.Printf("Scan: persist episode metadata for %q: %v", ep.Title, err)
		}
	}
}

func applyResult(item *catalog.Item, res *metadata.Result) {
	if res.Title != "" {
		item.Title = res.Title
		item.CanonicalKey = CanonicalKey(res.Title)
	}
	if res.Year != nil {
		item.Year = res.Year
	}
	if res.Overview != nil {
		item.Overview = res.Overview
	}
	if res.Rating != nil {
		item.Rating = res.Rating
	}
	if res.PremiereDate != nil {
		item.PremiereDate = res.PremiereDate
	}
	if res.RuntimeMinutes != nil {
		item.RuntimeMinutes = res.RuntimeMinutes
	}
	if res.PosterURL != nil {
		item.PosterURL = res.PosterURL
	}
	item.IDs.Merge(res.IDs)
}

// RefreshItem re-resolves a single item outside a library scan. ModeValidate
// only fills in items still lacking complete metadata; any other mode forces
// a full re-resolution. The anime index is loaded and released around the
// single resolution, and a failed refresh leaves the completeness flag as it
// was.
func (s *Scanner) RefreshItem(ctx context.Context, lib *libraries.Library, itemID uuid.UUID, mode ScanMode) error {
	item, err := s.store.GetByID(itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item %s not found", itemID)
	}
	if item.ItemType == catalog.TypeEpisode {
		return fmt.Errorf("refresh targets movies and series, not episodes")
	}
	if mode == ModeValidate && item.MetadataComplete {
		return nil
	}

	var index *metadata.AnimeIndex
	if s.animeDB != nil {
		index, err = s.animeDB.Load(ctx)
		if err != nil {
			log.Printf("Refresh: anime dataset unavailable: %v", err)
		}
	}
	defer index.Release()

	session := s.resolver.NewSession(index)
	wasComplete := item.MetadataComplete
	item.MetadataComplete = false
	if !s.resolveItem(ctx, session, lib, item) {
		if wasComplete {
			item.MetadataComplete = true
			if err := s.store.UpdateItem(item); err != nil {
				log.Printf("Refresh: restore completeness for %q: %v", item.Title, err)
			}
		}
		return fmt.Errorf("no provider matched %q", item.Title)
	}
	return nil
}

func hasIgnoreMarker(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".ignore"))
	return err == nil
}
