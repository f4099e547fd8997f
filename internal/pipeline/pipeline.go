// Package pipeline sequences a compression run: discover files, build one
// job per file, drive the external tool, and decide the fate of each output.
// Files are processed one at a time in discovery order; a per-file failure is
// recorded and never stops the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"compressy/internal/backup"
	"compressy/internal/config"
	"compressy/internal/discover"
	"compressy/internal/ffmpeg"
	"compressy/internal/format"
	"compressy/internal/logger"
	"compressy/internal/policy"
)

// ProgressFunc receives batch-level progress. Updates arrive from the
// goroutine running the pipeline and must not block.
type ProgressFunc func(p Progress)

// Runner executes one compression run over a validated configuration.
type Runner struct {
	cfg    *config.Config
	log    *logrus.Logger
	exec   *ffmpeg.Executor
	engine *policy.Engine
	backup *backup.Manager

	onProgress ProgressFunc
}

// NewRunner wires a runner from a validated configuration and a resolved
// ffmpeg path.
func NewRunner(cfg *config.Config, ffmpegPath string, log *logrus.Logger) *Runner {
	exec := &ffmpeg.Executor{
		Path:             ffmpegPath,
		ProgressInterval: time.Duration(cfg.ProgressInterval * float64(time.Second)),
	}

	var bm *backup.Manager
	if cfg.BackupDir != "" {
		bm = backup.NewManager(cfg.BackupDir)
	}

	return &Runner{
		cfg:    cfg,
		log:    log,
		exec:   exec,
		engine: policy.NewEngine(cfg, ffmpeg.NewProber(ffmpegPath)),
		backup: bm,
	}
}

// SetProgressFunc registers a batch progress callback. Must be called before
// Run.
func (r *Runner) SetProgressFunc(fn ProgressFunc) {
	r.onProgress = fn
}

// Run processes every discovered file and returns the ordered per-file
// results. The returned error is non-nil only for run-level failures
// (unreadable source tree, unwritable output root, cancellation); individual
// file failures land in the result list instead.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	started := time.Now()

	files, err := discover.Discover(r.cfg)
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	if len(files) == 0 {
		r.log.WithField("source", r.cfg.SourceFolder).Info("No matching files found")
		return &RunResult{Started: started, Elapsed: time.Since(started)}, nil
	}

	if policy.Placement(r.cfg) != policy.PlaceOverwrite {
		root := policy.CompressedRoot(r.cfg)
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", root, err)
		}
	}

	r.log.WithFields(logrus.Fields{
		"source": r.cfg.SourceFolder,
		"files":  len(files),
	}).Info("Starting compression run")

	run := &RunResult{Started: started}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			run.Elapsed = time.Since(started)
			return run, err
		}

		r.report(Progress{Index: i + 1, Total: len(files), Path: file.Path})
		results := r.processFile(ctx, i+1, len(files), file)
		run.Results = append(run.Results, results...)
	}

	run.Elapsed = time.Since(started)
	compressed, skipped, failed := run.Counts()
	r.log.WithFields(logrus.Fields{
		"compressed": compressed,
		"skipped":    skipped,
		"failed":     failed,
		"elapsed":    run.Elapsed.Round(time.Millisecond).String(),
	}).Info("Compression run finished")

	return run, nil
}

// processFile runs one file through backup, job construction, encoding and
// output verification. It usually yields one result; a failed backup adds a
// second entry since compression still proceeds.
func (r *Runner) processFile(ctx context.Context, index, total int, file discover.File) []Result {
	var results []Result
	log := r.log.WithFields(logrus.Fields{
		"file":  file.Path,
		"index": fmt.Sprintf("%d/%d", index, total),
	})

	if r.backup != nil {
		if _, err := r.backup.BackupFile(file.Path, file.RelDir); err != nil {
			log.WithError(err).Warn("Backup failed, continuing with compression")
			results = append(results, Result{
				InputPath:    file.Path,
				Kind:         file.Kind,
				RelDir:       file.RelDir,
				OriginalSize: file.Size,
				Outcome:      OutcomeBackupFailed,
				Detail:       err.Error(),
			})
		}
	}

	res := r.compressFile(ctx, index, total, file)
	switch res.Outcome {
	case OutcomeCompressed:
		log.WithFields(logrus.Fields{
			"original":   format.FormatSize(res.OriginalSize),
			"compressed": format.FormatSize(res.CompressedSize),
			"saved":      format.FormatSize(res.SpaceSaved()),
			"elapsed":    res.Elapsed.Round(time.Millisecond).String(),
		}).Info("Compressed")
	case OutcomeSkippedExisting:
		log.Info("Skipped, output already exists")
	case OutcomeSkippedLarger:
		log.WithFields(logrus.Fields{
			"original":  format.FormatSize(res.OriginalSize),
			"attempted": format.FormatSize(res.CompressedSize),
		}).Info("Skipped, compressed output was not smaller")
	case OutcomeFailed:
		log.WithField("reason", res.Detail).Error("Compression failed")
	}
	return append(results, res)
}

func (r *Runner) compressFile(ctx context.Context, index, total int, file discover.File) Result {
	res := Result{
		InputPath:    file.Path,
		Kind:         file.Kind,
		RelDir:       file.RelDir,
		OriginalSize: file.Size,
	}

	// Captured before encoding; the overwrite swap destroys the original's
	// metadata.
	var srcTime time.Time
	if info, err := os.Stat(file.Path); err == nil {
		srcTime = info.ModTime()
	}

	job, err := r.engine.BuildJob(ctx, file)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		return res
	}
	res.OutputPath = job.FinalPath

	if !job.Overwriting() {
		if info, err := os.Stat(job.FinalPath); err == nil {
			res.CompressedSize = info.Size()
			res.Outcome = OutcomeSkippedExisting
			return res
		}
		if err := os.MkdirAll(filepath.Dir(job.FinalPath), 0755); err != nil {
			res.Outcome = OutcomeFailed
			res.Detail = fmt.Sprintf("create output directory: %v", err)
			return res
		}
	}

	start := time.Now()
	_, runErr := r.exec.Run(ctx, job.Args, func(p *ffmpeg.Progress) {
		r.report(Progress{Index: index, Total: total, Path: file.Path, Percent: p.String()})
		logger.WithFile(r.log, file.Path).Debug(p.String())
	})
	res.Elapsed = time.Since(start)

	if runErr != nil {
		removeIfExists(job.OutputPath)
		res.Outcome = OutcomeFailed
		switch {
		case errors.Is(runErr, ffmpeg.ErrTimedOut):
			res.Detail = "encoding timed out"
		case errors.Is(runErr, context.Canceled):
			res.Detail = "cancelled"
		default:
			res.Detail = runErr.Error()
		}
		return res
	}

	info, err := os.Stat(job.OutputPath)
	if err != nil || info.Size() == 0 {
		removeIfExists(job.OutputPath)
		res.Outcome = OutcomeFailed
		res.Detail = "tool reported success but produced no output"
		return res
	}
	res.CompressedSize = info.Size()

	if res.CompressedSize >= res.OriginalSize && !r.cfg.KeepIfLarger {
		return r.discardLarger(job, res, srcTime)
	}

	return r.finalize(job, res, srcTime)
}

// discardLarger handles an output that did not shrink: the encoded artifact
// is removed and, outside overwrite mode, the original is copied to the
// output location so the destination tree stays complete.
func (r *Runner) discardLarger(job *policy.Job, res Result, srcTime time.Time) Result {
	removeIfExists(job.OutputPath)
	res.Outcome = OutcomeSkippedLarger
	res.Detail = "compressed output not smaller than original"

	if !job.Overwriting() {
		if err := copyFile(job.Input.Path, job.FinalPath); err != nil {
			res.Outcome = OutcomeFailed
			res.Detail = fmt.Sprintf("copy original to output: %v", err)
			return res
		}
		r.carryTimestamps(job.FinalPath, srcTime)
	}
	return res
}

// finalize moves a kept artifact into place and carries source timestamps
// over when configured.
func (r *Runner) finalize(job *policy.Job, res Result, srcTime time.Time) Result {
	if job.Overwriting() {
		if err := os.Rename(job.OutputPath, job.FinalPath); err != nil {
			removeIfExists(job.OutputPath)
			res.Outcome = OutcomeFailed
			res.Detail = fmt.Sprintf("replace original: %v", err)
			return res
		}
		// Format conversion in overwrite mode leaves the old file behind
		// under its original extension.
		if job.FinalPath != job.Input.Path {
			removeIfExists(job.Input.Path)
		}
	}

	r.carryTimestamps(job.FinalPath, srcTime)
	res.Outcome = OutcomeCompressed
	return res
}

func (r *Runner) carryTimestamps(dst string, srcTime time.Time) {
	if !r.cfg.PreserveTimestamps || srcTime.IsZero() {
		return
	}
	if err := os.Chtimes(dst, srcTime, srcTime); err != nil {
		r.log.WithError(err).WithField("file", dst).Warn("Could not preserve timestamps")
	}
}

func (r *Runner) report(p Progress) {
	if r.onProgress != nil {
		r.onProgress(p)
	}
}

func removeIfExists(path string) {
	if _, err := os.Stat(path); err == nil {
		os.Remove(path)
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}
