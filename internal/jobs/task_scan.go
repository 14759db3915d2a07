package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/tsukimi-media/tsukimi/internal/libraries"
	"github.com/tsukimi-media/tsukimi/internal/scanner"
)

type ScanHandler struct {
	scanner *scanner.Scanner
	libRepo *libraries.Repository
}

func NewScanHandler(sc *scanner.Scanner, libRepo *libraries.Repository) *ScanHandler {
	return &ScanHandler{scanner: sc, libRepo: libRepo}
}

func (h *ScanHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ScanPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("scan payload: %w: %w", err, asynq.SkipRetry)
	}
	mode, err := scanner.ParseMode(p.Mode)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	lib, err := h.libRepo.GetByID(p.LibraryID)
	if err != nil {
		// The library may have been deleted between enqueue and run.
		return fmt.Errorf("library %s: %w: %w", p.LibraryID, err, asynq.SkipRetry)
	}

	if err := h.libRepo.BeginScan(lib.ID); err != nil {
		log.Printf("Scan: record scan start for %s: %v", lib.Name, err)
	}

	sum, err := h.scanner.ScanLibrary(ctx, lib, mode)
	if errors.Is(err, scanner.ErrScanInProgress) {
		log.Printf("Scan: %s already scanning, dropping duplicate task", lib.Name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan %s: %w", lib.Name, err)
	}

	state := &libraries.ScanState{
		FilesSeen:       sum.FilesSeen,
		ItemsAdded:      sum.ItemsAdded,
		ItemsMissing:    sum.Missing,
		ItemsRemoved:    sum.Removed,
		ItemsResolved:   sum.Resolved,
		ItemsUnresolved: sum.Unresolved,
		Status:          "completed",
	}
	if sum.Aborted {
		state.Status = "aborted"
	}
	if err := h.libRepo.FinishScan(lib.ID, state); err != nil {
		log.Printf("Scan: record scan result for %s: %v", lib.Name, err)
	}
	return nil
}
