// Package backup copies originals into a backup directory before they are
// touched by a compression run.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Manager copies files into backupDir, mirroring their relative layout under
// the source root.
type Manager struct {
	backupDir string
}

// NewManager returns a manager writing into backupDir.
func NewManager(backupDir string) *Manager {
	return &Manager{backupDir: backupDir}
}

// BackupFile copies one original into the backup directory before its job
// runs. relDir is the file's directory relative to the source root; the
// backup tree mirrors it. Timestamps and permissions are carried over.
func (m *Manager) BackupFile(path, relDir string) (string, error) {
	destDir := filepath.Join(m.backupDir, relDir)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory %s: %w", destDir, err)
	}

	dest := filepath.Join(destDir, filepath.Base(path))
	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("backup %s: %w", filepath.Base(path), err)
	}

	if info, err := os.Stat(path); err == nil {
		_ = os.Chtimes(dest, info.ModTime(), info.ModTime())
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
