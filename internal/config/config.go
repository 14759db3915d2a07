package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string
	DataDir     string
	FFmpegPath  string
	FFprobePath string

	TMDBAPIKey     string
	AnimeDBEnabled bool
	AnimeDBPath    string

	ScanWorkers     int
	ScanOnStartup   bool
	VideoExtensions []string

	QuickScanIntervalMinutes     int
	FullScanIntervalHours        int
	MissingThumbnailCheckMinutes int
	RetryFailedThumbnails        bool
	MissingGraceHours            int
}

func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8080),
		DatabaseURL: env("DATABASE_URL", "postgres://tsukimi:tsukimi@db:5432/tsukimi?sslmode=disable"),
		RedisAddr:   env("REDIS_ADDR", "redis:6379"),
		DataDir:     env("DATA_DIR", "/data"),
		FFmpegPath:  env("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: env("FFPROBE_PATH", "ffprobe"),

		TMDBAPIKey:     env("TMDB_API_KEY", ""),
		AnimeDBEnabled: envBool("ENABLE_ANIME_DB", true),
		AnimeDBPath:    env("ANIME_DB_PATH", ""),

		ScanWorkers:   envInt("SCAN_WORKERS", 4),
		ScanOnStartup: envBool("SCAN_ON_STARTUP", false),
		VideoExtensions: envList("VIDEO_EXTENSIONS",
			[]string{".mkv", ".mp4", ".avi", ".m4v", ".mov", ".wmv", ".ts", ".webm"}),

		QuickScanIntervalMinutes:     envInt("QUICK_SCAN_INTERVAL_MINUTES", 15),
		FullScanIntervalHours:        envInt("FULL_SCAN_INTERVAL_HOURS", 24),
		MissingThumbnailCheckMinutes: envInt("MISSING_THUMBNAIL_CHECK_MINUTES", 60),
		RetryFailedThumbnails:        envBool("RETRY_FAILED_THUMBNAILS", true),
		MissingGraceHours:            envInt("MISSING_GRACE_HOURS", 168),
	}
}

// MergeFromDB overlays values from the settings table onto the env-derived
// config. Unknown keys are ignored so older rows survive upgrades.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "tmdb_api_key":
			c.TMDBAPIKey = value
		case "enable_anime_db":
			c.AnimeDBEnabled = cast.ToBool(value)
		case "scan_workers":
			if v := cast.ToInt(value); v > 0 {
				c.ScanWorkers = v
			}
		case "video_extensions":
			if exts := splitList(value); len(exts) > 0 {
				c.VideoExtensions = exts
			}
		case "quick_scan_interval_minutes":
			c.QuickScanIntervalMinutes = cast.ToInt(value)
		case "full_scan_interval_hours":
			c.FullScanIntervalHours = cast.ToInt(value)
		case "missing_thumbnail_check_minutes":
			c.MissingThumbnailCheckMinutes = cast.ToInt(value)
		case "retry_failed_thumbnails":
			c.RetryFailedThumbnails = cast.ToBool(value)
		case "missing_grace_hours":
			c.MissingGraceHours = cast.ToInt(value)
		}
	}
}

func (c *Config) TMDBEnabled() bool {
	return c.TMDBAPIKey != ""
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		if out := splitList(v); len(out) > 0 {
			return out
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, strings.ToLower(part))
	}
	return out
}
