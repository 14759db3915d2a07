package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
	"github.com/tsukimi-media/tsukimi/internal/config"
	"github.com/tsukimi-media/tsukimi/internal/db"
	"github.com/tsukimi-media/tsukimi/internal/ffmpeg"
	"github.com/tsukimi-media/tsukimi/internal/jobs"
	"github.com/tsukimi-media/tsukimi/internal/libraries"
	"github.com/tsukimi-media/tsukimi/internal/metadata"
	"github.com/tsukimi-media/tsukimi/internal/scanner"
	"github.com/tsukimi-media/tsukimi/internal/scheduler"
	"github.com/tsukimi-media/tsukimi/internal/version"
)

func main() {
	ver := version.Load()
	log.Printf("Tsukimi %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database)

	libRepo := libraries.NewRepository(database)
	store := catalog.NewRepository(database)

	probe := ffmpeg.NewFFprobe(cfg.FFprobePath)
	extractor := ffmpeg.NewExtractor(cfg.FFmpegPath)

	// Provider budgets mirror the published API limits: Jikan ~3 req/s,
	// AniDB one request per two seconds.
	anilist := metadata.NewAniListScraper(metadata.NewBudget(700*time.Millisecond, 2))
	jikan := metadata.NewJikanScraper(metadata.NewBudget(350*time.Millisecond, 1))
	anidb := metadata.NewAniDBScraper(metadata.NewBudget(2*time.Second, 1), "tsukimi")
	scrapers := []metadata.Scraper{anilist, jikan, anidb}

	var tmdb *metadata.TMDBScraper
	if cfg.TMDBEnabled() {
		tmdb = metadata.NewTMDBScraper(cfg.TMDBAPIKey, metadata.NewBudget(30*time.Millisecond, 10))
		scrapers = append(scrapers, tmdb)
	} else {
		log.Println("TMDB_API_KEY not set, TMDB provider disabled")
	}

	resolver := metadata.NewResolver(scrapers...)

	sc := scanner.New(store, resolver, scanner.Options{
		Workers:         cfg.ScanWorkers,
		VideoExtensions: cfg.VideoExtensions,
		MissingGrace:    time.Duration(cfg.MissingGraceHours) * time.Hour,
	}).WithProbe(probe)

	if tmdb != nil {
		sc.WithTMDB(tmdb)
	}
	if cfg.AnimeDBEnabled {
		path := cfg.AnimeDBPath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "anime-offline-database.json")
		}
		sc.WithAnimeDB(metadata.NewAnimeDB(path))
	}

	queue := jobs.NewQueue(cfg.RedisAddr, cfg.ScanWorkers)
	sc.WithQueue(queue)
	jobs.RegisterHandlers(queue, sc, libRepo, store, probe, extractor, cfg)
	if err := queue.Start(); err != nil {
		log.Fatalf("job queue failed to start: %v", err)
	}

	sched := scheduler.New()
	sched.Every(scheduler.Minutes(cfg.QuickScanIntervalMinutes), "quick scan", func() {
		enqueueAllScans(libRepo, queue, scanner.ModeQuick)
	})
	sched.Every(scheduler.Hours(cfg.FullScanIntervalHours), "full scan", func() {
		enqueueAllScans(libRepo, queue, scanner.ModeFull)
	})
	sched.Every(scheduler.Minutes(cfg.MissingThumbnailCheckMinutes), "thumbnail sweep", func() {
		queue.SweepMissingThumbnails(store, cfg.RetryFailedThumbnails)
	})
	sched.Start()

	if cfg.ScanOnStartup {
		go enqueueAllScans(libRepo, queue, scanner.ModeQuick)
	}

	scanHandler := scanner.NewHandler(sc, libRepo, queue)
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Mount("/libraries", libraries.NewHandler(libRepo).Router())
		r.Mount("/scan", scanHandler.Router())
		r.Mount("/items", scanHandler.ItemsRouter())
	})

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	sched.Stop()
	queue.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}

func enqueueAllScans(libRepo *libraries.Repository, queue *jobs.Queue, mode scanner.ScanMode) {
	libs, err := libRepo.List()
	if err != nil {
		log.Printf("Sched: list libraries: %v", err)
		return
	}
	for _, lib := range libs {
		if err := queue.EnqueueScan(lib.ID, string(mode)); err != nil {
			log.Printf("Sched: enqueue %s scan for %q: %v", mode, lib.Name, err)
		}
	}
}
