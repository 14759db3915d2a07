package libraries

import (
	"time"

	"github.com/google/uuid"
)

type LibraryType string

const (
	TypeMovies  LibraryType = "movies"
	TypeTVShows LibraryType = "tvshows"
)

func (t LibraryType) IsValid() bool {
	return t == TypeMovies || t == TypeTVShows
}

type Library struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	LibraryType      LibraryType `json:"library_type"`
	Folders          []string    `json:"folders"`
	RetrieveMetadata bool        `json:"retrieve_metadata"`
	// PreferAnime forces the anime provider chain for every title in the
	// library instead of relying on per-title detection.
	PreferAnime     bool      `json:"prefer_anime"`
	EpisodeMetadata bool      `json:"episode_metadata"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ScanState struct {
	ID                uuid.UUID  `json:"id"`
	LibraryID         uuid.UUID  `json:"library_id"`
	LastScanStarted   *time.Time `json:"last_scan_started,omitempty"`
	LastScanCompleted *time.Time `json:"last_scan_completed,omitempty"`
	FilesSeen         int        `json:"files_seen"`
	ItemsAdded        int        `json:"items_added"`
	ItemsMissing      int        `json:"items_missing"`
	ItemsRemoved      int        `json:"items_removed"`
	ItemsResolved     int        `json:"items_resolved"`
	ItemsUnresolved   int        `json:"items_unresolved"`
	Status            string     `json:"status"`
}
