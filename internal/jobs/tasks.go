package jobs

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
	"github.com/tsukimi-media/tsukimi/internal/config"
	"github.com/tsukimi-media/tsukimi/internal/ffmpeg"
	"github.com/tsukimi-media/tsukimi/internal/libraries"
	"github.com/tsukimi-media/tsukimi/internal/scanner"
)

// ──────── Payloads ────────

type ScanPayload struct {
	LibraryID uuid.UUID `json:"library_id"`
	Mode      string    `json:"mode"`
}

type ThumbnailPayload struct {
	ItemID    uuid.UUID `json:"item_id"`
	VideoPath string    `json:"video_path"`
}

type ImagePayload struct {
	ItemID uuid.UUID `json:"item_id"`
	URL    string    `json:"url"`
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, sc *scanner.Scanner, libRepo *libraries.Repository,
	store catalog.Store, probe *ffmpeg.FFprobe, extractor *ffmpeg.Extractor, cfg *config.Config) {

	q.RegisterHandler(TaskScanLibrary, NewScanHandler(sc, libRepo))
	q.RegisterHandler(TaskThumbnail, NewThumbnailHandler(store, probe, extractor, cfg.DataDir))
	q.RegisterHandler(TaskImageDownload, NewImageHandler(store, cfg.DataDir))
}

// ──────── Scanner-facing adapter ────────

// EnqueueScan queues a library scan with per-library dedup; a second
// request while one is pending is a no-op.
func (q *Queue) EnqueueScan(libraryID uuid.UUID, mode string) error {
	_, err := q.EnqueueUnique(TaskScanLibrary,
		ScanPayload{LibraryID: libraryID, Mode: mode},
		fmt.Sprintf("scan-%s", libraryID),
		asynq.Queue("critical"), asynq.MaxRetry(2))
	return err
}

func (q *Queue) EnqueueThumbnail(itemID uuid.UUID, videoPath string) error {
	_, err := q.EnqueueUnique(TaskThumbnail,
		ThumbnailPayload{ItemID: itemID, VideoPath: videoPath},
		fmt.Sprintf("thumb-%s", itemID),
		asynq.Queue("low"), asynq.MaxRetry(2))
	return err
}

func (q *Queue) EnqueueImage(itemID uuid.UUID, url string) error {
	_, err := q.EnqueueUnique(TaskImageDownload,
		ImagePayload{ItemID: itemID, URL: url},
		fmt.Sprintf("image-%s", itemID),
		asynq.Queue("low"), asynq.MaxRetry(3))
	return err
}

var _ scanner.TaskQueue = (*Queue)(nil)
var _ scanner.ScanTrigger = (*Queue)(nil)

// SweepMissingThumbnails re-queues playable items without a thumbnail. When
// retryFailed is set, terminally failed items get their attempts reset and
// another chance; this sweep is the only path out of the failed state.
func (q *Queue) SweepMissingThumbnails(store catalog.Store, retryFailed bool) {
	if retryFailed {
		if n, err := store.ResetFailedThumbnails(); err != nil {
			log.Printf("Thumbs: reset failed thumbnails: %v", err)
		} else if n > 0 {
			log.Printf("Thumbs: reset %d failed thumbnails for retry", n)
		}
	}

	items, err := store.ItemsMissingThumbnails(false, 500)
	if err != nil {
		log.Printf("Thumbs: list items missing thumbnails: %v", err)
		return
	}
	queued := 0
	for _, item := range items {
		if item.Path == "" {
			continue
		}
		if err := store.SetThumbnailPending(item.ID); err != nil {
			continue
		}
		if err := q.EnqueueThumbnail(item.ID, item.Path); err != nil {
			log.Printf("Thumbs: enqueue %s: %v", item.ID, err)
			continue
		}
		queued++
	}
	if queued > 0 {
		log.Printf("Thumbs: sweep queued %d missing thumbnails", queued)
	}
}
