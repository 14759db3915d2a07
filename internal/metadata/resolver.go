package metadata

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
)

// datasetProvider is the pseudo-provider name for the offline anime index.
const datasetProvider = "dataset"

// Request describes one title to resolve.
type Request struct {
	Title string
	Year  *int
	Kind  MediaKind
	// Anime routes the request through the anime chain.
	Anime bool
	// Known carries provider IDs already on the catalog item, so a
	// refresh can go straight to by-ID lookups.
	Known catalog.ProviderIDs
}

// Resolver owns the provider chains. Chains are ordered: the first provider
// that yields a year-plausible match wins, so order is the tie-break.
type Resolver struct {
	scrapers map[string]Scraper

	animeChain  []string
	seriesChain []string
	movieChain  []string
}

func NewResolver(scrapers ...Scraper) *Resolver {
	m := make(map[string]Scraper, len(scrapers))
	for _, s := range scrapers {
		m[s.Name()] = s
	}
	r := &Resolver{
		scrapers:    m,
		animeChain:  []string{datasetProvider, "anilist", "jikan", "anidb", "tmdb"},
		seriesChain: []string{"tmdb", "anilist", "jikan"},
		movieChain:  []string{"tmdb", "jikan"},
	}
	r.animeChain = r.prune(r.animeChain)
	r.seriesChain = r.prune(r.seriesChain)
	r.movieChain = r.prune(r.movieChain)
	return r
}

func (r *Resolver) prune(chain []string) []string {
	out := chain[:0]
	for _, name := range chain {
		if name == datasetProvider {
			out = append(out, name)
			continue
		}
		if _, ok := r.scrapers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (r *Resolver) chainFor(req Request) []string {
	switch {
	case req.Anime:
		return r.animeChain
	case req.Kind == KindMovie:
		return r.movieChain
	default:
		return r.seriesChain
	}
}

// Session is the per-scan resolution state. A provider that runs out of
// budget is skipped for the whole session instead of stalling every
// remaining title on it.
type Session struct {
	r     *Resolver
	index *AnimeIndex

	mu      sync.Mutex
	skipped map[string]string
}

// NewSession starts a resolution pass. index may be nil when the offline
// dataset is disabled or failed to load.
func (r *Resolver) NewSession(index *AnimeIndex) *Session {
	return &Session{r: r, index: index, skipped: make(map[string]string)}
}

// Resolve walks the chain for the request. The offline dataset contributes
// provider IDs that later by-ID lookups enrich; it is also the fallback
// when every network provider misses.
func (s *Session) Resolve(ctx context.Context, req Request) (*Result, error) {
	known := req.Known
	var fallback *Result

	for _, name := range s.r.chainFor(req) {
		if name == datasetProvider {
			res, err := s.lookupDataset(req)
			if err != nil {
				continue
			}
			known.Merge(res.IDs)
			fallback = res
			continue
		}

		if s.isSkipped(name) {
			continue
		}
		sc := s.r.scrapers[name]

		res, err := sc.LookupByID(ctx, known)
		if errors.Is(err, ErrNotFound) && !hasIDFor(name, known) {
			res, err = sc.Search(ctx, req.Title, req.Year, req.Kind)
		}
		switch {
		case err == nil:
			if !yearPlausible(req.Year, res.Year) {
				continue
			}
			res.IDs.Merge(known)
			fillFromFallback(res, fallback)
			return res, nil
		case errors.Is(err, ErrRateLimited):
			s.skip(name, "rate limited")
		case errors.Is(err, ErrNotFound):
			// next provider
		default:
			log.Printf("Resolver: %s failed for %q: %v", name, req.Title, err)
		}
	}

	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNotFound
}

func (s *Session) lookupDataset(req Request) (*Result, error) {
	if s.index == nil {
		return nil, ErrNotFound
	}
	res, err := s.index.Lookup(req.Title, req.Year)
	if errors.Is(err, ErrNotLoaded) {
		log.Printf("Resolver: anime index released mid-session, skipping dataset")
	}
	return res, err
}

// SkippedProviders reports which providers were dropped this session and
// why, for the scan summary.
func (s *Session) SkippedProviders() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.skipped))
	for k, v := range s.skipped {
		out[k] = v
	}
	return out
}

func (s *Session) skip(name, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skipped[name]; !ok {
		s.skipped[name] = reason
		log.Printf("Resolver: skipping provider %s for this pass (%s)", name, reason)
	}
}

func (s *Session) isSkipped(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.skipped[name]
	return ok
}

func hasIDFor(provider string, ids catalog.ProviderIDs) bool {
	switch provider {
	case "anilist":
		return ids.AniList != nil
	case "jikan":
		return ids.MAL != nil
	case "anidb":
		return ids.AniDB != nil
	case "tmdb":
		return ids.TMDB != nil
	}
	return false
}

func yearPlausible(want, got *int) bool {
	if want == nil || got == nil {
		return true
	}
	diff := *want - *got
	if diff < 0 {
		diff = -diff
	}
	return diff <= maxYearDiff
}

// fillFromFallback copies fields the dataset knew but the provider did not.
func fillFromFallback(res, fallback *Result) {
	if fallback == nil {
		return
	}
	if res.Episodes == nil {
		res.Episodes = fallback.Episodes
	}
	if res.PosterURL == nil {
		res.PosterURL = fallback.PosterURL
	}
	if res.Year == nil {
		res.Year = fallback.Year
	}
}
