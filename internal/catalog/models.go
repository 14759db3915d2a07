package catalog

import (
	"time"

	"github.com/google/uuid"
)

type ItemType string

const (
	TypeMovie   ItemType = "movie"
	TypeSeries  ItemType = "series"
	TypeEpisode ItemType = "episode"
)

// Thumbnail lifecycle. "failed" is terminal for the job queue; only the
// periodic sweep moves an item out of it.
const (
	ThumbNone    = "none"
	ThumbPending = "pending"
	ThumbDone    = "done"
	ThumbFailed  = "failed"
)

// ProviderIDs holds the external identifiers an item is known by. A nil
// field means the provider has never been matched for this item.
type ProviderIDs struct {
	AniList *int    `json:"anilist_id,omitempty"`
	MAL     *int    `json:"mal_id,omitempty"`
	AniDB   *int    `json:"anidb_id,omitempty"`
	Kitsu   *int    `json:"kitsu_id,omitempty"`
	TMDB    *int    `json:"tmdb_id,omitempty"`
	IMDB    *string `json:"imdb_id,omitempty"`
}

// Any reports whether at least one provider ID is set.
func (p ProviderIDs) Any() bool {
	return p.AniList != nil || p.MAL != nil || p.AniDB != nil ||
		p.Kitsu != nil || p.TMDB != nil || p.IMDB != nil
}

// Merge fills unset fields of p from other, never overwriting known IDs.
func (p *ProviderIDs) Merge(other ProviderIDs) {
	if p.AniList == nil {
		p.AniList = other.AniList
	}
	if p.MAL == nil {
		p.MAL = other.MAL
	}
	if p.AniDB == nil {
		p.AniDB = other.AniDB
	}
	if p.Kitsu == nil {
		p.Kitsu = other.Kitsu
	}
	if p.TMDB == nil {
		p.TMDB = other.TMDB
	}
	if p.IMDB == nil {
		p.IMDB = other.IMDB
	}
}

type Item struct {
	ID            uuid.UUID  `json:"id"`
	LibraryID     uuid.UUID  `json:"library_id"`
	ParentID      *uuid.UUID `json:"parent_id,omitempty"`
	ItemType      ItemType   `json:"item_type"`
	Title         string     `json:"title"`
	CanonicalKey  string     `json:"canonical_key,omitempty"`
	Path          string     `json:"path,omitempty"`
	SeasonNumber  *int       `json:"season_number,omitempty"`
	EpisodeNumber *int       `json:"episode_number,omitempty"`
	Year          *int       `json:"year,omitempty"`

	Overview       *string    `json:"overview,omitempty"`
	Rating         *float64   `json:"rating,omitempty"`
	PremiereDate   *time.Time `json:"premiere_date,omitempty"`
	RuntimeMinutes *int       `json:"runtime_minutes,omitempty"`

	IDs ProviderIDs `json:"ids"`

	MetadataComplete bool `json:"metadata_complete"`
	MetadataAttempts int  `json:"metadata_attempts"`

	PosterPath        *string `json:"poster_path,omitempty"`
	PosterURL         *string `json:"poster_url,omitempty"`
	ThumbnailPath     *string `json:"thumbnail_path,omitempty"`
	ThumbnailStatus   string  `json:"thumbnail_status"`
	ThumbnailAttempts int     `json:"thumbnail_attempts"`

	FileSize        *int64  `json:"file_size,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	VideoCodec      *string `json:"video_codec,omitempty"`
	AudioCodec      *string `json:"audio_codec,omitempty"`
	Resolution      *string `json:"resolution,omitempty"`

	// MissingSince is set when a scan no longer finds the backing file.
	// The row is kept until the grace window elapses so a flaky mount
	// does not destroy watch state.
	MissingSince *time.Time `json:"missing_since,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Item) IsMissing() bool {
	return i.MissingSince != nil
}
