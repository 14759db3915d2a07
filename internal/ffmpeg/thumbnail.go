package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

type Extractor struct{ Path string }

func NewExtractor(path string) *Extractor { return &Extractor{Path: path} }

// ThumbnailTimestamp picks the grab point for a video: 10% into the file,
// clamped so short clips don't seek past the end and long features don't
// land in studio logos.
func ThumbnailTimestamp(durationSeconds int) time.Duration {
	if durationSeconds <= 0 {
		return 10 * time.Second
	}
	ts := durationSeconds / 10
	if ts < 5 {
		ts = durationSeconds / 2
	}
	if ts > 300 {
		ts = 300
	}
	return time.Duration(ts) * time.Second
}

// ExtractFrame writes a single scaled JPEG frame from videoPath at the
// given offset.
func (e *Extractor) ExtractFrame(ctx context.Context, videoPath, outPath string, at time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, e.Path,
		"-ss", fmt.Sprintf("%.0f", at.Seconds()),
		"-i", videoPath,
		"-vframes", "1",
		"-vf", "scale=640:-2",
		"-q:v", "3",
		"-y", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction failed: %w (%s)", err, tail(output, 200))
	}
	return nil
}

func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[len(b)-n:])
}
