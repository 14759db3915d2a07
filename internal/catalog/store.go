package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Store is the persistence boundary the scanner, resolver and job handlers
// work against. Lookup methods return (nil, nil) on a clean miss so callers
// can distinguish "not there" from a real storage error.
type Store interface {
	GetByID(id uuid.UUID) (*Item, error)
	GetByPath(libraryID uuid.UUID, path string) (*Item, error)
	CreateItem(item *Item) error
	UpdateItem(item *Item) error
	DeleteItem(id uuid.UUID) error
	// ReparentChildren moves every child of from under to. Used when two
	// scanned folders turn out to be the same series.
	ReparentChildren(from, to uuid.UUID) error

	// ListPathsByLibrary returns every non-empty item path in the library
	// mapped to its item ID. The quick-scan diff is computed against this.
	ListPathsByLibrary(libraryID uuid.UUID) (map[string]uuid.UUID, error)
	ListChildren(parentID uuid.UUID) ([]Item, error)

	MarkMissing(ids []uuid.UUID, since time.Time) error
	ClearMissing(id uuid.UUID) error
	// DeleteMissingBefore removes items tombstoned before cutoff and
	// returns how many rows went away.
	DeleteMissingBefore(libraryID uuid.UUID, cutoff time.Time) (int64, error)

	// ItemsMissingMetadata lists movies and series awaiting resolution;
	// includeComplete widens it to already-resolved items for a full
	// refresh.
	ItemsMissingMetadata(libraryID uuid.UUID, includeComplete bool) ([]Item, error)
	FindSeriesByProviderIDs(libraryID uuid.UUID, ids ProviderIDs) (*Item, error)
	FindSeriesByKey(libraryID uuid.UUID, key string) (*Item, error)

	SetThumbnail(id uuid.UUID, path string) error
	SetThumbnailPending(id uuid.UUID) error
	MarkThumbnailFailed(id uuid.UUID) error
	SetPoster(id uuid.UUID, path string) error
	// ItemsMissingThumbnails lists playable items with no thumbnail,
	// optionally including terminally failed ones.
	ItemsMissingThumbnails(includeFailed bool, limit int) ([]Item, error)
	ResetFailedThumbnails() (int64, error)
}
