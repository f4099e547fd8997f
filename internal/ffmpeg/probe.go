package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Dimensions is the source width/height reported by ffprobe.
type Dimensions struct {
	Width  int
	Height int
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Prober inspects media files with ffprobe. The pipeline only needs it when
// percentage-based video scaling is requested, since the scale filter then
// depends on the source dimensions.
type Prober struct {
	Path string
}

// NewProber derives the ffprobe location from the resolved ffmpeg path,
// assuming the two live side by side as they do in every ffmpeg
// distribution. Falls back to PATH lookup.
func NewProber(ffmpegPath string) *Prober {
	dir := filepath.Dir(ffmpegPath)
	name := "ffprobe"
	if strings.HasSuffix(ffmpegPath, ".exe") {
		name = "ffprobe.exe"
	}
	candidate := filepath.Join(dir, name)
	if _, err := exec.LookPath(candidate); err == nil {
		return &Prober{Path: candidate}
	}
	if found, err := exec.LookPath(name); err == nil {
		return &Prober{Path: found}
	}
	return &Prober{Path: candidate}
}

// Dimensions returns the width and height of the first video stream.
func (p *Prober) Dimensions(ctx context.Context, path string) (Dimensions, error) {
	cmd := exec.CommandContext(ctx, p.Path,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_type,width,height",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Dimensions{}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Dimensions{}, fmt.Errorf("parse ffprobe output for %s: %w", filepath.Base(path), err)
	}

	for _, s := range parsed.Streams {
		if s.Width > 0 && s.Height > 0 {
			return Dimensions{Width: s.Width, Height: s.Height}, nil
		}
	}
	return Dimensions{}, fmt.Errorf("no video stream dimensions in %s", filepath.Base(path))
}
