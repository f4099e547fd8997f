package policy

import (
	"context"
	"fmt"
	"strconv"

	"compressy/internal/format"
)

// videoArgs builds the tool invocation for a video job: libx264 at the
// configured CRF and preset, AAC audio, source metadata carried over.
func (e *Engine) videoArgs(ctx context.Context, inPath, outPath string) ([]string, error) {
	args := []string{"-i", inPath}

	filter, err := e.videoScaleFilter(ctx, inPath)
	if err != nil {
		return nil, err
	}
	if filter != "" {
		args = append(args, "-vf", filter)
	}

	args = append(args,
		"-vcodec", "libx264",
		"-crf", strconv.Itoa(e.cfg.Video.CRF),
		"-preset", e.cfg.Video.Preset,
		"-acodec", "aac",
		"-b:a", "128k",
		"-map_metadata", "0",
		"-y",
		outPath,
	)
	return args, nil
}

// videoScaleFilter returns the scale filter for the configured target, or ""
// when no scaling is requested. An explicit resolution always carries both
// dimensions; percentage scaling reads the source dimensions via ffprobe and
// rounds the result down to even values, which the encoder requires.
func (e *Engine) videoScaleFilter(ctx context.Context, inPath string) (string, error) {
	if e.cfg.Video.Resolution != "" {
		w, h, err := format.ParseResolution(e.cfg.Video.Resolution)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("scale=%d:%d", w, h), nil
	}

	pct := e.cfg.Video.ResizePercent
	if pct <= 0 || pct >= 100 {
		return "", nil
	}

	dims, err := e.prober.Dimensions(ctx, inPath)
	if err != nil {
		return "", fmt.Errorf("read source dimensions: %w", err)
	}

	w := evenDown(dims.Width * pct / 100)
	h := evenDown(dims.Height * pct / 100)
	if w < 2 || h < 2 {
		return "", fmt.Errorf("resize to %d%% collapses %dx%d below the encoder minimum", pct, dims.Width, dims.Height)
	}
	return fmt.Sprintf("scale=%d:%d", w, h), nil
}

func evenDown(n int) int {
	return n &^ 1
}
