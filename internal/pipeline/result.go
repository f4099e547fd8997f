package pipeline

import (
	"time"

	"compressy/internal/discover"
)

// Outcome classifies how one file's journey through the pipeline ended.
type Outcome int

const (
	// OutcomeCompressed means the compressed artifact was kept.
	OutcomeCompressed Outcome = iota
	// OutcomeSkippedLarger means the output grew and was discarded.
	OutcomeSkippedLarger
	// OutcomeSkippedExisting means an output already existed and the tool
	// was never spawned.
	OutcomeSkippedExisting
	// OutcomeBackupFailed records a failed pre-compression backup; the
	// file's compression still proceeds and produces its own result.
	OutcomeBackupFailed
	// OutcomeFailed means the job could not produce a usable artifact.
	OutcomeFailed
)

// String returns the report label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompressed:
		return "compressed"
	case OutcomeSkippedLarger:
		return "skipped-larger"
	case OutcomeSkippedExisting:
		return "skipped-existing"
	case OutcomeBackupFailed:
		return "backup-failed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the record of one pipeline step. Entries are append-only for the
// run's duration and handed to the statistics and report collaborators
// wholesale at run end.
type Result struct {
	InputPath      string
	OutputPath     string
	Kind           discover.Kind
	RelDir         string
	OriginalSize   int64
	CompressedSize int64
	Elapsed        time.Duration
	Outcome        Outcome
	Detail         string
}

// SpaceSaved returns the byte reduction for a kept artifact, zero otherwise.
func (r *Result) SpaceSaved() int64 {
	if r.Outcome != OutcomeCompressed {
		return 0
	}
	return r.OriginalSize - r.CompressedSize
}

// RunResult is the complete, ordered, immutable outcome of one run.
type RunResult struct {
	Results []Result
	Started time.Time
	Elapsed time.Duration
}

// Counts tallies results by outcome class.
func (r *RunResult) Counts() (compressed, skipped, failed int) {
	for i := range r.Results {
		switch r.Results[i].Outcome {
		case OutcomeCompressed:
			compressed++
		case OutcomeSkippedLarger, OutcomeSkippedExisting:
			skipped++
		case OutcomeFailed, OutcomeBackupFailed:
			failed++
		}
	}
	return compressed, skipped, failed
}

// Progress summarizes batch advancement for the caller's progress callback.
type Progress struct {
	Index   int    // 1-based index of the file in flight
	Total   int    // total files in the run
	Path    string // file currently processed
	Percent string // tool-reported position within the current file
}
