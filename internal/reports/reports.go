// Package reports writes per-run CSV reports next to the compression output.
// A run always gets an aggregated report; recursive runs additionally get one
// report per source subfolder.
package reports

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"compressy/internal/statistics"
)

const reportBase = "compression_report"

// Writer generates the CSV reports for one run.
type Writer struct {
	dir string
}

// NewWriter returns a writer that places reports in dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write emits the aggregated report and, for recursive runs, one report per
// subfolder. It returns the paths of every report written.
func (w *Writer) Write(s *statistics.Statistics, recursive bool) ([]string, error) {
	if len(s.Entries) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("create report directory %s: %w", w.dir, err)
	}

	written := make(map[string]bool)
	var paths []string

	path := w.uniquePath(reportBase+".csv", written)
	if err := writeReport(path, s.Entries); err != nil {
		return paths, err
	}
	paths = append(paths, path)

	if !recursive {
		return paths, nil
	}

	byFolder := make(map[string][]statistics.FileEntry)
	var order []string
	for _, e := range s.Entries {
		if _, seen := byFolder[e.RelDir]; !seen {
			order = append(order, e.RelDir)
		}
		byFolder[e.RelDir] = append(byFolder[e.RelDir], e)
	}
	if len(order) < 2 {
		// Everything lived in one folder; the aggregated report covers it.
		return paths, nil
	}

	for _, folder := range order {
		name := fmt.Sprintf("%s_%s.csv", reportBase, sanitizeFolder(folder))
		path := w.uniquePath(name, written)
		if err := writeReport(path, byFolder[folder]); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// uniquePath reserves a report path that collides with nothing written this
// run, suffixing a counter when two folders sanitize to the same name.
func (w *Writer) uniquePath(name string, written map[string]bool) string {
	path := filepath.Join(w.dir, name)
	base := strings.TrimSuffix(name, ".csv")
	for i := 2; written[path]; i++ {
		path = filepath.Join(w.dir, fmt.Sprintf("%s_%d.csv", base, i))
	}
	written[path] = true
	return path
}

func writeReport(path string, entries []statistics.FileEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{
		"file", "outcome", "original_bytes", "compressed_bytes", "saved_bytes",
		"elapsed_seconds", "detail",
	}); err != nil {
		return err
	}
	for _, e := range entries {
		saved := int64(0)
		if e.Outcome == "compressed" {
			saved = e.OriginalSize - e.CompressedSize
		}
		if err := cw.Write([]string{
			e.Path,
			e.Outcome,
			strconv.FormatInt(e.OriginalSize, 10),
			strconv.FormatInt(e.CompressedSize, 10),
			strconv.FormatInt(saved, 10),
			strconv.FormatFloat(e.Elapsed.Seconds(), 'f', 3, 64),
			e.Detail,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// sanitizeFolder turns a relative directory into a filename-safe fragment.
func sanitizeFolder(rel string) string {
	if rel == "." || rel == "" {
		return "root"
	}
	var b strings.Builder
	for _, r := range rel {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
