// Package ffmpeg spawns the external compression tool, streams its
// diagnostic output, and reports progress and completion to the pipeline.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// ErrTimedOut is returned when a job exceeds its configured timeout and the
// process was forcibly terminated.
var ErrTimedOut = errors.New("ffmpeg timed out")

// ExecError is a failed tool invocation. It carries the exit code and the
// tail of the captured diagnostic stream so per-file failures can be
// itemized in the final report.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	tail := stderrTail(e.Stderr, 5)
	if tail == "" {
		return fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.ExitCode, tail)
}

// ProgressFunc receives rate-limited progress updates while the tool runs.
// It must not block; it is invoked from the goroutine draining the tool's
// diagnostic stream.
type ProgressFunc func(p *Progress)

// Executor runs ffmpeg invocations with streaming progress observation.
type Executor struct {
	// Path is the resolved ffmpeg executable.
	Path string
	// ProgressInterval is the minimum delay between onProgress callbacks.
	ProgressInterval time.Duration
	// Timeout bounds a single invocation; zero means no limit.
	Timeout time.Duration
}

// Result describes a completed invocation.
type Result struct {
	ExitCode int
	Elapsed  time.Duration
	Stderr   string
}

// Run invokes ffmpeg with the given arguments. The tool's stderr is drained
// incrementally: each line is scanned for progress markers, and onProgress
// (when non-nil) is invoked at most once per ProgressInterval. Cancelling ctx
// or exceeding Timeout kills the process.
func (e *Executor) Run(ctx context.Context, args []string, onProgress ProgressFunc) (*Result, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if e.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.Path, args...)

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("attach stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", e.Path, err)
	}

	// Drain stderr line by line; ffmpeg terminates progress lines with \r.
	var captured bytes.Buffer
	scanner := bufio.NewScanner(stderrPipe)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanCRLines)

	var lastUpdate time.Time
	for scanner.Scan() {
		line := scanner.Text()
		captured.WriteString(line)
		captured.WriteByte('\n')

		if onProgress == nil {
			continue
		}
		p := ParseProgress(line)
		if p == nil {
			continue
		}
		if time.Since(lastUpdate) >= e.ProgressInterval {
			onProgress(p)
			lastUpdate = time.Now()
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		// A line beyond the buffer limit stops the scanner; keep draining so
		// the process never blocks on a full stderr pipe, and surface the
		// aborted read in the captured diagnostics.
		io.Copy(io.Discard, stderrPipe)
		fmt.Fprintf(&captured, "diagnostic stream read aborted: %v\n", scanErr)
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	stderr := captured.String()

	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return nil, ErrTimedOut
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, &ExecError{ExitCode: exitErr.ExitCode(), Stderr: stderr}
		}
		return nil, fmt.Errorf("wait for %s: %w", e.Path, waitErr)
	}

	return &Result{ExitCode: 0, Elapsed: elapsed, Stderr: stderr}, nil
}

// scanCRLines is a bufio.SplitFunc that treats both \n and \r as line
// terminators, so ffmpeg's carriage-return progress updates arrive as
// individual lines instead of one giant buffer at exit.
func scanCRLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func stderrTail(stderr string, n int) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, strings.TrimSpace(l))
		}
	}
	if len(kept) == 0 {
		return ""
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "; ")
}
