package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const itemColumns = `id, library_id, parent_id, item_type, title, canonical_key, path,
	season_number, episode_number, year, overview, rating, premiere_date, runtime_minutes,
	anilist_id, mal_id, anidb_id, kitsu_id, tmdb_id, imdb_id,
	metadata_complete, metadata_attempts,
	poster_path, poster_url, thumbnail_path, thumbnail_status, thumbnail_attempts,
	file_size, duration_seconds, video_codec, audio_codec, resolution,
	missing_since, created_at, updated_at`

// Repository is the Postgres-backed Store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

func scanItem(row interface{ Scan(...interface{}) error }) (*Item, error) {
	it := &Item{}
	err := row.Scan(&it.ID, &it.LibraryID, &it.ParentID, &it.ItemType, &it.Title,
		&it.CanonicalKey, &it.Path,
		&it.SeasonNumber, &it.EpisodeNumber, &it.Year, &it.Overview, &it.Rating,
		&it.PremiereDate, &it.RuntimeMinutes,
		&it.IDs.AniList, &it.IDs.MAL, &it.IDs.AniDB, &it.IDs.Kitsu, &it.IDs.TMDB, &it.IDs.IMDB,
		&it.MetadataComplete, &it.MetadataAttempts,
		&it.PosterPath, &it.PosterURL, &it.ThumbnailPath, &it.ThumbnailStatus, &it.ThumbnailAttempts,
		&it.FileSize, &it.DurationSeconds, &it.VideoCodec, &it.AudioCodec, &it.Resolution,
		&it.MissingSince, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (r *Repository) GetByID(id uuid.UUID) (*Item, error) {
	return scanItem(r.db.QueryRow(
		"SELECT "+itemColumns+" FROM media_items WHERE id=$1", id))
}

func (r *Repository) GetByPath(libraryID uuid.UUID, path string) (*Item, error) {
	return scanItem(r.db.QueryRow(
		"SELECT "+itemColumns+" FROM media_items WHERE library_id=$1 AND path=$2",
		libraryID, path))
}

func (r *Repository) CreateItem(it *Item) error {
	if it.ThumbnailStatus == "" {
		it.ThumbnailStatus = ThumbNone
	}
	return r.db.QueryRow(`
		INSERT INTO media_items (library_id, parent_id, item_type, title, canonical_key, path,
			season_number, episode_number, year, overview, rating, premiere_date, runtime_minutes,
			anilist_id, mal_id, anidb_id, kitsu_id, tmdb_id, imdb_id,
			metadata_complete, metadata_attempts, poster_path, poster_url,
			thumbnail_path, thumbnail_status, thumbnail_attempts,
			file_size, duration_seconds, video_codec, audio_codec, resolution)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,
			$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31)
		RETURNING id, created_at, updated_at`,
		it.LibraryID, it.ParentID, it.ItemType, it.Title, it.CanonicalKey, it.Path,
		it.SeasonNumber, it.EpisodeNumber, it.Year, it.Overview, it.Rating,
		it.PremiereDate, it.RuntimeMinutes,
		it.IDs.AniList, it.IDs.MAL, it.IDs.AniDB, it.IDs.Kitsu, it.IDs.TMDB, it.IDs.IMDB,
		it.MetadataComplete, it.MetadataAttempts, it.PosterPath, it.PosterURL,
		it.ThumbnailPath, it.ThumbnailStatus, it.ThumbnailAttempts,
		it.FileSize, it.DurationSeconds, it.VideoCodec, it.AudioCodec, it.Resolution,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
}

func (r *Repository) UpdateItem(it *Item) error {
	_, err := r.db.Exec(`
		UPDATE media_items SET title=$2, canonical_key=$3, season_number=$4, episode_number=$5,
			year=$6, overview=$7, rating=$8, premiere_date=$9, runtime_minutes=$10,
			anilist_id=$11, mal_id=$12, anidb_id=$13, kitsu_id=$14, tmdb_id=$15, imdb_id=$16,
			metadata_complete=$17, metadata_attempts=$18, poster_url=$19,
			file_size=$20, duration_seconds=$21, video_codec=$22, audio_codec=$23, resolution=$24,
			updated_at=NOW()
		WHERE id=$1`,
		it.ID, it.Title, it.CanonicalKey, it.SeasonNumber, it.EpisodeNumber,
		it.Year, it.Overview, it.Rating, it.PremiereDate, it.RuntimeMinutes,
		it.IDs.AniList, it.IDs.MAL, it.IDs.AniDB, it.IDs.Kitsu, it.IDs.TMDB, it.IDs.IMDB,
		it.MetadataComplete, it.MetadataAttempts, it.PosterURL,
		it.FileSize, it.DurationSeconds, it.VideoCodec, it.AudioCodec, it.Resolution)
	return err
}

func (r *Repository) ListPathsByLibrary(libraryID uuid.UUID) (map[string]uuid.UUID, error) {
	rows, err := r.db.Query(
		"SELECT path, id FROM media_items WHERE library_id=$1 AND path <> ''", libraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]uuid.UUID)
	for rows.Next() {
		var path string
		var id uuid.UUID
		if err := rows.Scan(&path, &id); err != nil {
			return nil, err
		}
		out[path] = id
	}
	return out, rows.Err()
}

func (r *Repository) ListChildren(parentID uuid.UUID) ([]Item, error) {
	return r.queryItems(
		"SELECT "+itemColumns+" FROM media_items WHERE parent_id=$1 ORDER BY season_number, episode_number",
		parentID)
}

func (r *Repository) MarkMissing(ids []uuid.UUID, since time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(`
		UPDATE media_items SET missing_since=$2, updated_at=NOW()
		WHERE id = ANY($1) AND missing_since IS NULL`,
		pq.Array(ids), since)
	return err
}

func (r *Repository) ClearMissing(id uuid.UUID) error {
	_, err := r.db.Exec(
		"UPDATE media_items SET missing_since=NULL, updated_at=NOW() WHERE id=$1", id)
	return err
}

func (r *Repository) DeleteMissingBefore(libraryID uuid.UUID, cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM media_items
		WHERE library_id=$1 AND missing_since IS NOT NULL AND missing_since < $2`,
		libraryID, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) ItemsMissingMetadata(libraryID uuid.UUID, includeComplete bool) ([]Item, error) {
	return r.queryItems(`
		SELECT `+itemColumns+` FROM media_items
		WHERE library_id=$1 AND item_type IN ('movie','series')
		  AND (NOT metadata_complete OR $2) AND missing_since IS NULL
		ORDER BY created_at`, libraryID, includeComplete)
}

func (r *Repository) DeleteItem(id uuid.UUID) error {
	_, err := r.db.Exec("DELETE FROM media_items WHERE id=$1", id)
	return err
}

func (r *Repository) ReparentChildren(from, to uuid.UUID) error {
	_, err := r.db.Exec(
		"UPDATE media_items SET parent_id=$2, updated_at=NOW() WHERE parent_id=$1", from, to)
	return err
}

func (r *Repository) FindSeriesByProviderIDs(libraryID uuid.UUID, ids ProviderIDs) (*Item, error) {
	if !ids.Any() {
		return nil, nil
	}
	return scanItem(r.db.QueryRow(`
		SELECT `+itemColumns+` FROM media_items
		WHERE library_id=$1 AND item_type='series' AND (
			(anilist_id IS NOT NULL AND anilist_id=$2) OR
			(mal_id     IS NOT NULL AND mal_id=$3) OR
			(anidb_id   IS NOT NULL AND anidb_id=$4) OR
			(kitsu_id   IS NOT NULL AND kitsu_id=$5) OR
			(tmdb_id    IS NOT NULL AND tmdb_id=$6) OR
			(imdb_id    IS NOT NULL AND imdb_id=$7))
		LIMIT 1`,
		libraryID, ids.AniList, ids.MAL, ids.AniDB, ids.Kitsu, ids.TMDB, ids.IMDB))
}

func (r *Repository) FindSeriesByKey(libraryID uuid.UUID, key string) (*Item, error) {
	if key == "" {
		return nil, nil
	}
	return scanItem(r.db.QueryRow(`
		SELECT `+itemColumns+` FROM media_items
		WHERE library_id=$1 AND item_type='series' AND canonical_key=$2
		LIMIT 1`, libraryID, key))
}

// ──────── Thumbnails ────────

func (r *Repository) SetThumbnail(id uuid.UUID, path string) error {
	_, err := r.db.Exec(`
		UPDATE media_items SET thumbnail_path=$2, thumbnail_status=$3, updated_at=NOW()
		WHERE id=$1`, id, path, ThumbDone)
	return err
}

func (r *Repository) SetThumbnailPending(id uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE media_items SET thumbnail_status=$2, updated_at=NOW()
		WHERE id=$1 AND thumbnail_status IN ($3, $4)`,
		id, ThumbPending, ThumbNone, ThumbFailed)
	return err
}

func (r *Repository) MarkThumbnailFailed(id uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE media_items
		SET thumbnail_attempts = thumbnail_attempts + 1,
		    thumbnail_status = $2,
		    updated_at = NOW()
		WHERE id=$1`, id, ThumbFailed)
	return err
}

func (r *Repository) SetPoster(id uuid.UUID, path string) error {
	_, err := r.db.Exec(
		"UPDATE media_items SET poster_path=$2, updated_at=NOW() WHERE id=$1", id, path)
	return err
}

func (r *Repository) ItemsMissingThumbnails(includeFailed bool, limit int) ([]Item, error) {
	statuses := []string{ThumbNone}
	if includeFailed {
		statuses = append(statuses, ThumbFailed)
	}
	return r.queryItems(`
		SELECT `+itemColumns+` FROM media_items
		WHERE item_type IN ('movie','episode') AND missing_since IS NULL
		  AND thumbnail_status = ANY($1)
		ORDER BY created_at
		LIMIT $2`, pq.Array(statuses), limit)
}

func (r *Repository) ResetFailedThumbnails() (int64, error) {
	res, err := r.db.Exec(`
		UPDATE media_items SET thumbnail_status=$1, thumbnail_attempts=0, updated_at=NOW()
		WHERE thumbnail_status=$2`, ThumbNone, ThumbFailed)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) queryItems(query string, args ...interface{}) ([]Item, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media item: %w", err)
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}
