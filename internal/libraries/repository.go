package libraries

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(lib *Library) error {
	return r.db.QueryRow(`
		INSERT INTO libraries (name, library_type, folders, retrieve_metadata, prefer_anime, episode_metadata)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`,
		lib.Name, lib.LibraryType, pq.Array(lib.Folders),
		lib.RetrieveMetadata, lib.PreferAnime, lib.EpisodeMetadata,
	).Scan(&lib.ID, &lib.CreatedAt, &lib.UpdatedAt)
}

func (r *Repository) GetByID(id uuid.UUID) (*Library, error) {
	lib := &Library{}
	err := r.db.QueryRow(`
		SELECT id, name, library_type, folders, retrieve_metadata, prefer_anime, episode_metadata,
		       created_at, updated_at
		FROM libraries WHERE id=$1`, id,
	).Scan(&lib.ID, &lib.Name, &lib.LibraryType, pq.Array(&lib.Folders),
		&lib.RetrieveMetadata, &lib.PreferAnime, &lib.EpisodeMetadata,
		&lib.CreatedAt, &lib.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("library not found: %w", err)
	}
	return lib, nil
}

func (r *Repository) List() ([]Library, error) {
	rows, err := r.db.Query(`
		SELECT id, name, library_type, folders, retrieve_metadata, prefer_anime, episode_metadata,
		       created_at, updated_at
		FROM libraries ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Library
	for rows.Next() {
		var lib Library
		if err := rows.Scan(&lib.ID, &lib.Name, &lib.LibraryType, pq.Array(&lib.Folders),
			&lib.RetrieveMetadata, &lib.PreferAnime, &lib.EpisodeMetadata,
			&lib.CreatedAt, &lib.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, lib)
	}
	return out, rows.Err()
}

func (r *Repository) Update(lib *Library) error {
	_, err := r.db.Exec(`
		UPDATE libraries SET name=$2, folders=$3, retrieve_metadata=$4, prefer_anime=$5,
		       episode_metadata=$6, updated_at=NOW()
		WHERE id=$1`,
		lib.ID, lib.Name, pq.Array(lib.Folders),
		lib.RetrieveMetadata, lib.PreferAnime, lib.EpisodeMetadata)
	return err
}

func (r *Repository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec("DELETE FROM libraries WHERE id=$1", id)
	return err
}

// ──────── Scan state ────────

func (r *Repository) BeginScan(libraryID uuid.UUID) error {
	_, err := r.db.Exec(`
		INSERT INTO scan_state (library_id, last_scan_started, status)
		VALUES ($1, NOW(), 'scanning')
		ON CONFLICT (library_id) DO UPDATE SET last_scan_started=NOW(), status='scanning'`,
		libraryID)
	return err
}

func (r *Repository) FinishScan(libraryID uuid.UUID, st *ScanState) error {
	_, err := r.db.Exec(`
		UPDATE scan_state SET last_scan_completed=NOW(), files_seen=$2, items_added=$3,
		       items_missing=$4, items_removed=$5, items_resolved=$6, items_unresolved=$7,
		       status=$8
		WHERE library_id=$1`,
		libraryID, st.FilesSeen, st.ItemsAdded, st.ItemsMissing, st.ItemsRemoved,
		st.ItemsResolved, st.ItemsUnresolved, st.Status)
	return err
}

func (r *Repository) GetScanState(libraryID uuid.UUID) (*ScanState, error) {
	st := &ScanState{}
	err := r.db.QueryRow(`
		SELECT id, library_id, last_scan_started, last_scan_completed,
		       files_seen, items_added, items_missing, items_removed,
		       items_resolved, items_unresolved, status
		FROM scan_state WHERE library_id=$1`, libraryID,
	).Scan(&st.ID, &st.LibraryID, &st.LastScanStarted, &st.LastScanCompleted,
		&st.FilesSeen, &st.ItemsAdded, &st.ItemsMissing, &st.ItemsRemoved,
		&st.ItemsResolved, &st.ItemsUnresolved, &st.Status)
	if err != nil {
		return nil, fmt.Errorf("no scan state: %w", err)
	}
	return st, nil
}
