// Package policy turns one discovered file plus the run configuration into a
// concrete compression job: output placement, tool arguments, and the swap
// target for in-place compression.
package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"compressy/internal/config"
	"compressy/internal/discover"
	"compressy/internal/ffmpeg"
)

// PlacementMode says where a job's output lands. Exactly one mode applies to
// a run; the legal combinations are enforced by config.Validate.
type PlacementMode int

const (
	// PlaceSubfolder writes under a "compressed" folder inside the source.
	PlaceSubfolder PlacementMode = iota
	// PlaceCustomDir mirrors the relative path under the configured output
	// directory.
	PlaceCustomDir
	// PlaceOverwrite encodes to a temporary sibling and swaps it over the
	// original on success.
	PlaceOverwrite
)

// Placement derives the output placement mode from the configuration.
func Placement(cfg *config.Config) PlacementMode {
	switch {
	case cfg.Overwrite:
		return PlaceOverwrite
	case cfg.OutputDir != "":
		return PlaceCustomDir
	default:
		return PlaceSubfolder
	}
}

// CompressedRoot returns the directory that receives outputs in the
// non-overwrite modes.
func CompressedRoot(cfg *config.Config) string {
	if cfg.OutputDir != "" {
		return cfg.OutputDir
	}
	return filepath.Join(cfg.SourceFolder, "compressed")
}

// Job is one planned tool invocation. It lives for the duration of a single
// pipeline step.
type Job struct {
	Input      discover.File
	OutputPath string // where the tool writes
	FinalPath  string // where the artifact ends up (differs in overwrite mode)
	Args       []string
}

// Overwriting reports whether this job encodes to a temporary path that must
// be swapped over the original on success.
func (j *Job) Overwriting() bool {
	return j.OutputPath != j.FinalPath
}

// Engine builds jobs. The prober is only consulted when percentage-based
// video scaling requires the source dimensions.
type Engine struct {
	cfg    *config.Config
	prober *ffmpeg.Prober
}

// NewEngine returns a policy engine for one run.
func NewEngine(cfg *config.Config, prober *ffmpeg.Prober) *Engine {
	return &Engine{cfg: cfg, prober: prober}
}

// BuildJob resolves the output path and tool arguments for one file.
func (e *Engine) BuildJob(ctx context.Context, file discover.File) (*Job, error) {
	finalPath, outputPath := e.resolvePaths(file)

	var args []string
	var err error
	switch file.Kind {
	case discover.KindVideo:
		args, err = e.videoArgs(ctx, file.Path, outputPath)
	case discover.KindImage:
		args = e.imageArgs(file.Path, outputPath)
	default:
		err = fmt.Errorf("unsupported file kind for %s", file.Path)
	}
	if err != nil {
		return nil, err
	}

	return &Job{
		Input:      file,
		OutputPath: outputPath,
		FinalPath:  finalPath,
		Args:       args,
	}, nil
}

// resolvePaths computes the final artifact location and the path the tool
// writes to. Overwrite mode encodes to a uuid-suffixed sibling so concurrent
// runs can never collide, then the caller swaps it over the original.
func (e *Engine) resolvePaths(file discover.File) (finalPath, outputPath string) {
	ext := filepath.Ext(file.Path)
	targetExt := ext
	if file.Kind == discover.KindImage && !e.cfg.PreserveFormat && !isJPEGExt(ext) {
		targetExt = ".jpg"
	}

	if Placement(e.cfg) == PlaceOverwrite {
		stem := strings.TrimSuffix(filepath.Base(file.Path), ext)
		dir := filepath.Dir(file.Path)
		finalPath = filepath.Join(dir, stem+targetExt)
		outputPath = filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, uuid.NewString()[:8], targetExt))
		return finalPath, outputPath
	}

	rel := filepath.Join(file.RelDir, filepath.Base(file.Path))
	rel = strings.TrimSuffix(rel, ext) + targetExt
	finalPath = filepath.Join(CompressedRoot(e.cfg), rel)
	return finalPath, finalPath
}

func isJPEGExt(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".jpg" || ext == ".jpeg"
}
