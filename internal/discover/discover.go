// Package discover walks a source directory and classifies media files for
// the compression pipeline.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"compressy/internal/config"
)

// Kind classifies a discovered file.
type Kind int

const (
	KindVideo Kind = iota
	KindImage
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if k == KindVideo {
		return "video"
	}
	return "image"
}

// File is one discovered media file. Instances are created once per run and
// never mutated afterwards.
type File struct {
	Path   string // absolute path
	Size   int64  // on-disk size at discovery time
	Kind   Kind
	RelDir string // directory relative to the source root ("." for the root)
}

// Discover collects the media files under root, applying the configured size
// filters. Non-recursive mode visits only the root's direct children. Results
// are sorted lexicographically by path so repeated runs on an unchanged tree
// produce the identical sequence.
func Discover(cfg *config.Config) ([]File, error) {
	root, err := filepath.Abs(cfg.SourceFolder)
	if err != nil {
		return nil, fmt.Errorf("resolve source folder: %w", err)
	}

	// The destination tree must never feed back into discovery when it lives
	// under the source.
	excluded := ""
	if !cfg.Overwrite {
		if cfg.OutputDir != "" {
			if abs, err := filepath.Abs(cfg.OutputDir); err == nil {
				excluded = abs
			}
		} else {
			excluded = filepath.Join(root, "compressed")
		}
	}

	var files []File

	appendFile := func(path string, info fs.FileInfo) {
		ext := strings.ToLower(filepath.Ext(path))
		var kind Kind
		switch {
		case cfg.IsVideoExtension(ext):
			kind = KindVideo
		case cfg.IsImageExtension(ext):
			kind = KindImage
		default:
			return // unsupported, excluded silently
		}

		size := info.Size()
		if cfg.MinSizeBytes > 0 && size < cfg.MinSizeBytes {
			return
		}
		if cfg.MaxSizeBytes > 0 && size > cfg.MaxSizeBytes {
			return
		}

		relDir := "."
		if rel, err := filepath.Rel(root, filepath.Dir(path)); err == nil {
			relDir = rel
		}

		files = append(files, File{
			Path:   path,
			Size:   size,
			Kind:   kind,
			RelDir: relDir,
		})
	}

	if cfg.Recursive {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				return nil // inaccessible entries below the root are skipped
			}
			if d.IsDir() {
				if excluded != "" && path == excluded {
					return fs.SkipDir
				}
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			appendFile(path, info)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk source folder: %w", err)
		}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("read source folder: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			appendFile(filepath.Join(root, entry.Name()), info)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
