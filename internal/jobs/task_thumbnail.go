package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
	"github.com/tsukimi-media/tsukimi/internal/ffmpeg"
)

type ThumbnailHandler struct {
	store     catalog.Store
	probe     *ffmpeg.FFprobe
	extractor *ffmpeg.Extractor
	dataDir   string
}

func NewThumbnailHandler(store catalog.Store, probe *ffmpeg.FFprobe, extractor *ffmpeg.Extractor, dataDir string) *ThumbnailHandler {
	return &ThumbnailHandler{store: store, probe: probe, extractor: extractor, dataDir: dataDir}
}

// ProcessTask extracts one thumbnail frame. Failures are retried by asynq
// with backoff; once retries run out the item is marked failed and stays
// that way until the periodic sweep resets it.
func (h *ThumbnailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ThumbnailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("thumbnail payload: %w: %w", err, asynq.SkipRetry)
	}

	if err := h.generate(ctx, p); err != nil {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			if markErr := h.store.MarkThumbnailFailed(p.ItemID); markErr != nil {
				log.Printf("Thumbs: mark %s failed: %v", p.ItemID, markErr)
			}
			log.Printf("Thumbs: giving up on %s after %d attempts: %v", p.ItemID, retried+1, err)
		}
		return fmt.Errorf("thumbnail %s: %w", p.ItemID, err)
	}
	return nil
}

func (h *ThumbnailHandler) generate(ctx context.Context, p ThumbnailPayload) error {
	if _, err := os.Stat(p.VideoPath); err != nil {
		return fmt.Errorf("source missing: %w", err)
	}

	duration := 0
	if result, err := h.probe.Probe(ctx, p.VideoPath); err == nil {
		duration = result.GetDurationSeconds()
	}

	outPath := filepath.Join(h.dataDir, "thumbnails", p.ItemID.String()+".jpg")
	at := ffmpeg.ThumbnailTimestamp(duration)
	if err := h.extractor.ExtractFrame(ctx, p.VideoPath, outPath, at); err != nil {
		return err
	}
	return h.store.SetThumbnail(p.ItemID, outPath)
}
