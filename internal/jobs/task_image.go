package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tsukimi-media/tsukimi/internal/catalog"
)

type ImageHandler struct {
	store   catalog.Store
	dataDir string
	client  *http.Client
}

func NewImageHandler(store catalog.Store, dataDir string) *ImageHandler {
	return &ImageHandler{
		store:   store,
		dataDir: dataDir,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ProcessTask downloads provider artwork into the local image cache.
func (h *ImageHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ImagePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("image payload: %w: %w", err, asynq.SkipRetry)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("image request: %w: %w", err, asynq.SkipRetry)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", p.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden {
		// Gone from the provider; retrying will not help.
		return fmt.Errorf("download %s: status %d: %w", p.URL, resp.StatusCode, asynq.SkipRetry)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", p.URL, resp.StatusCode)
	}

	outPath := filepath.Join(h.dataDir, "images", p.ItemID.String()+filepath.Ext(p.URL))
	if filepath.Ext(outPath) == "" {
		outPath += ".jpg"
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(outPath)
		return fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	return h.store.SetPoster(p.ItemID, outPath)
}
