package statistics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"compressy/internal/format"
)

const (
	cumulativeFile = "statistics.csv"
	historyFile    = "run_history.csv"
)

// Cumulative holds the all-time totals accumulated across runs.
type Cumulative struct {
	Runs            int64
	FilesCompressed int64
	OriginalBytes   int64
	CompressedBytes int64
	BytesSaved      int64
	LastRun         time.Time
}

// HistoryEntry is one run's row in the history log.
type HistoryEntry struct {
	Timestamp       time.Time
	FilesFound      int64
	FilesCompressed int64
	FilesSkipped    int64
	FilesFailed     int64
	OriginalBytes   int64
	CompressedBytes int64
	BytesSaved      int64
	Duration        time.Duration
}

// Manager reads and writes the cumulative statistics and run history files
// under the state directory.
type Manager struct {
	dir string
}

// NewManager returns a manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// RecordRun folds a finished run into the cumulative totals and appends a row
// to the run history.
func (m *Manager) RecordRun(s *Statistics) error {
	cum, err := m.LoadCumulative()
	if err != nil {
		return err
	}

	cum.Runs++
	cum.FilesCompressed += s.FilesCompressed
	cum.OriginalBytes += s.OriginalBytes
	cum.CompressedBytes += s.CompressedBytes
	cum.BytesSaved += s.BytesSaved
	cum.LastRun = s.EndTime
	if cum.LastRun.IsZero() {
		cum.LastRun = time.Now()
	}

	if err := m.saveCumulative(cum); err != nil {
		return err
	}
	return m.appendHistory(HistoryEntry{
		Timestamp:       cum.LastRun,
		FilesFound:      s.FilesFound,
		FilesCompressed: s.FilesCompressed,
		FilesSkipped:    s.FilesSkipped,
		FilesFailed:     s.FilesFailed,
		OriginalBytes:   s.OriginalBytes,
		CompressedBytes: s.CompressedBytes,
		BytesSaved:      s.BytesSaved,
		Duration:        s.Duration,
	})
}

// LoadCumulative reads the all-time totals; a missing file yields zeroes.
func (m *Manager) LoadCumulative() (*Cumulative, error) {
	path := filepath.Join(m.dir, cumulativeFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Cumulative{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 2 || len(rows[1]) < 6 {
		// Header only or truncated; start over rather than fail the run.
		return &Cumulative{}, nil
	}

	r := rows[1]
	cum := &Cumulative{
		Runs:            parseInt(r[0]),
		FilesCompressed: parseInt(r[1]),
		OriginalBytes:   parseInt(r[2]),
		CompressedBytes: parseInt(r[3]),
		BytesSaved:      parseInt(r[4]),
	}
	if ts, err := time.Parse(time.RFC3339, r[5]); err == nil {
		cum.LastRun = ts
	}
	return cum, nil
}

func (m *Manager) saveCumulative(cum *Cumulative) error {
	path := filepath.Join(m.dir, cumulativeFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	records := [][]string{
		{"runs", "files_compressed", "original_bytes", "compressed_bytes", "bytes_saved", "last_run"},
		{
			strconv.FormatInt(cum.Runs, 10),
			strconv.FormatInt(cum.FilesCompressed, 10),
			strconv.FormatInt(cum.OriginalBytes, 10),
			strconv.FormatInt(cum.CompressedBytes, 10),
			strconv.FormatInt(cum.BytesSaved, 10),
			cum.LastRun.Format(time.RFC3339),
		},
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return w.Error()
}

func (m *Manager) appendHistory(e HistoryEntry) error {
	path := filepath.Join(m.dir, historyFile)
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if os.IsNotExist(statErr) {
		if err := w.Write([]string{
			"timestamp", "files_found", "compressed", "skipped", "failed",
			"original_bytes", "compressed_bytes", "bytes_saved", "duration_seconds",
		}); err != nil {
			return err
		}
	}
	if err := w.Write([]string{
		e.Timestamp.Format(time.RFC3339),
		strconv.FormatInt(e.FilesFound, 10),
		strconv.FormatInt(e.FilesCompressed, 10),
		strconv.FormatInt(e.FilesSkipped, 10),
		strconv.FormatInt(e.FilesFailed, 10),
		strconv.FormatInt(e.OriginalBytes, 10),
		strconv.FormatInt(e.CompressedBytes, 10),
		strconv.FormatInt(e.BytesSaved, 10),
		strconv.FormatFloat(e.Duration.Seconds(), 'f', 3, 64),
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// LoadHistory returns the recorded runs, oldest first.
func (m *Manager) LoadHistory() ([]HistoryEntry, error) {
	path := filepath.Join(m.dir, historyFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var entries []HistoryEntry
	for i, r := range rows {
		if i == 0 || len(r) < 9 {
			continue
		}
		e := HistoryEntry{
			FilesFound:      parseInt(r[1]),
			FilesCompressed: parseInt(r[2]),
			FilesSkipped:    parseInt(r[3]),
			FilesFailed:     parseInt(r[4]),
			OriginalBytes:   parseInt(r[5]),
			CompressedBytes: parseInt(r[6]),
			BytesSaved:      parseInt(r[7]),
		}
		if ts, err := time.Parse(time.RFC3339, r[0]); err == nil {
			e.Timestamp = ts
		}
		if secs, err := strconv.ParseFloat(r[8], 64); err == nil {
			e.Duration = time.Duration(secs * float64(time.Second))
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FormatCumulative renders the all-time totals for terminal display.
func (m *Manager) FormatCumulative() (string, error) {
	cum, err := m.LoadCumulative()
	if err != nil {
		return "", err
	}
	if cum.Runs == 0 {
		return "No compression runs recorded yet.", nil
	}

	lastRun := "never"
	if !cum.LastRun.IsZero() {
		lastRun = cum.LastRun.Format("2006-01-02 15:04:05")
	}
	var pct float64
	if cum.OriginalBytes > 0 {
		pct = float64(cum.BytesSaved) / float64(cum.OriginalBytes) * 100
	}

	return fmt.Sprintf(`Cumulative Statistics:

		Runs: %d
		Files Compressed: %d
		Original Size: %s
		Compressed Size: %s
		Space Saved: %s (%.1f%%)
		Last Run: %s`,
		cum.Runs,
		cum.FilesCompressed,
		format.FormatSize(cum.OriginalBytes),
		format.FormatSize(cum.CompressedBytes),
		format.FormatSize(cum.BytesSaved), pct,
		lastRun,
	), nil
}

// FormatHistory renders the most recent limit runs, newest last. A limit of
// zero renders everything.
func (m *Manager) FormatHistory(limit int) (string, error) {
	entries, err := m.LoadHistory()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No compression runs recorded yet.", nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	var b strings.Builder
	b.WriteString("Run History:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%s  found=%d compressed=%d skipped=%d failed=%d saved=%s (%s)",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.FilesFound, e.FilesCompressed, e.FilesSkipped, e.FilesFailed,
			format.FormatSize(e.BytesSaved),
			e.Duration.Round(time.Second),
		)
	}
	return b.String(), nil
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}
