// Package statistics aggregates per-run compression results and persists
// cumulative totals and run history across invocations.
package statistics

import (
	"fmt"
	"sync"
	"time"

	"compressy/internal/discover"
	"compressy/internal/format"
	"compressy/internal/pipeline"
)

// Statistics contains the aggregated numbers for one compression run.
type Statistics struct {
	FilesFound      int64
	FilesCompressed int64
	FilesSkipped    int64
	FilesFailed     int64
	BackupFailures  int64

	VideosCompressed int64
	ImagesCompressed int64

	OriginalBytes   int64
	CompressedBytes int64
	BytesSaved      int64

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// FolderStats breaks totals down by source subfolder in recursive runs.
	FolderStats map[string]*FolderStat

	Entries []FileEntry

	mutex sync.RWMutex
}

// FolderStat holds the per-subfolder totals for a recursive run.
type FolderStat struct {
	Files           int64
	Compressed      int64
	OriginalBytes   int64
	CompressedBytes int64
}

// FileEntry is one file's line in the run report.
type FileEntry struct {
	Path           string
	RelDir         string
	Outcome        string
	OriginalSize   int64
	CompressedSize int64
	Elapsed        time.Duration
	Detail         string
}

// NewStatistics returns a tracker stamped with the current time.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime:   time.Now(),
		FolderStats: make(map[string]*FolderStat),
	}
}

// Record folds one pipeline result into the run totals.
func (s *Statistics) Record(res pipeline.Result) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Entries = append(s.Entries, FileEntry{
		Path:           res.InputPath,
		RelDir:         res.RelDir,
		Outcome:        res.Outcome.String(),
		OriginalSize:   res.OriginalSize,
		CompressedSize: res.CompressedSize,
		Elapsed:        res.Elapsed,
		Detail:         res.Detail,
	})

	switch res.Outcome {
	case pipeline.OutcomeBackupFailed:
		// Bookkeeping entry; the file's compression result follows separately.
		s.BackupFailures++
		return
	case pipeline.OutcomeCompressed:
		s.FilesCompressed++
		if res.Kind == discover.KindVideo {
			s.VideosCompressed++
		} else {
			s.ImagesCompressed++
		}
		s.OriginalBytes += res.OriginalSize
		s.CompressedBytes += res.CompressedSize
		s.BytesSaved += res.SpaceSaved()
	case pipeline.OutcomeSkippedLarger, pipeline.OutcomeSkippedExisting:
		s.FilesSkipped++
	case pipeline.OutcomeFailed:
		s.FilesFailed++
	}
	s.FilesFound++

	folder := s.FolderStats[res.RelDir]
	if folder == nil {
		folder = &FolderStat{}
		s.FolderStats[res.RelDir] = folder
	}
	folder.Files++
	if res.Outcome == pipeline.OutcomeCompressed {
		folder.Compressed++
		folder.OriginalBytes += res.OriginalSize
		folder.CompressedBytes += res.CompressedSize
	}
}

// RecordRun folds a whole run result in at once.
func (s *Statistics) RecordRun(run *pipeline.RunResult) {
	for _, res := range run.Results {
		s.Record(res)
	}
}

// Finalize stamps the end time and computes the run duration.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SavingsPercent returns the size reduction over compressed files as a
// percentage of their original bytes.
func (s *Statistics) SavingsPercent() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.OriginalBytes == 0 {
		return 0
	}
	return float64(s.BytesSaved) / float64(s.OriginalBytes) * 100
}

// GetSummary returns a formatted summary of the run.
func (s *Statistics) GetSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	saved := format.FormatSize(s.BytesSaved)
	var pct float64
	if s.OriginalBytes > 0 {
		pct = float64(s.BytesSaved) / float64(s.OriginalBytes) * 100
	}

	return fmt.Sprintf(`Compression Summary:

Files:
		Found: %d
		Compressed: %d (%d videos, %d images)
		Skipped: %d
		Failed: %d
		Backup Failures: %d

Size:
		Original: %s
		Compressed: %s
		Saved: %s (%.1f%%)

Performance:
		Duration: %v`,
		s.FilesFound,
		s.FilesCompressed, s.VideosCompressed, s.ImagesCompressed,
		s.FilesSkipped,
		s.FilesFailed,
		s.BackupFailures,
		format.FormatSize(s.OriginalBytes),
		format.FormatSize(s.CompressedBytes),
		saved, pct,
		s.Duration.Round(time.Millisecond),
	)
}
