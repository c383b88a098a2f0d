// Package source discovers scan targets on disk and reads them with a size cap.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/snipscan/internal/logging"
	"go.uber.org/zap"
)

// DefaultMaxFileSize caps how much of a single file is read (5 MiB).
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// StdinPath is the target name that reads from standard input.
const StdinPath = "-"

var (
	// ErrTooLarge is returned when a file exceeds the configured size cap.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrBinary is returned for files that look like binary data.
	ErrBinary = errors.New("binary file")
)

// DefaultExcludedDirs are directory names skipped while walking.
var DefaultExcludedDirs = []string{
	"node_modules",
	"vendor",
	"dist",
	"build",
	"target",
	"__pycache__",
	".venv",
	"venv",
}

// Skipped records a path that was found but will not be scanned.
type Skipped struct {
	Path   string
	Reason string
}

// Walker expands targets (files, directories or "-") into a list of paths.
type Walker struct {
	MaxFileSize int64
	Exclude     []string
	Logger      *zap.SugaredLogger
}

// Collect walks every target and returns the unique file paths to scan,
// sorted lexically, plus the files skipped for size. A target that does not
// exist is an error.
func (w Walker) Collect(targets []string) ([]string, []Skipped, error) {
	log := logging.OrNop(w.Logger)
	maxSize := w.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	excluded := make(map[string]bool, len(w.Exclude))
	for _, name := range w.Exclude {
		excluded[name] = true
	}

	seen := map[string]struct{}{}
	var paths []string
	var skipped []Skipped
	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}

	for _, target := range targets {
		if target == StdinPath {
			add(StdinPath)
			continue
		}

		info, err := os.Stat(target)
		if err != nil {
			return nil, nil, fmt.Errorf("target %s: %w", target, err)
		}
		if !info.IsDir() {
			if info.Size() > maxSize {
				skipped = append(skipped, Skipped{Path: target, Reason: ErrTooLarge.Error()})
				continue
			}
			add(filepath.Clean(target))
			continue
		}

		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warnw("skipping unreadable path", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			name := d.Name()
			if d.IsDir() {
				if path != target && (strings.HasPrefix(name, ".") || excluded[name]) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || strings.HasPrefix(name, ".") {
				return nil
			}

			fi, err := d.Info()
			if err != nil {
				log.Warnw("skipping file without stat info", "path", path, "error", err)
				return nil
			}
			if fi.Size() > maxSize {
				log.Debugw("skipping large file", "path", path, "size", fi.Size())
				skipped = append(skipped, Skipped{Path: path, Reason: ErrTooLarge.Error()})
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("walk %s: %w", target, err)
		}
	}

	sort.Strings(paths)
	return paths, skipped, nil
}

// Reader loads file contents, refusing oversized and binary files.
type Reader struct {
	MaxFileSize int64
	Stdin       io.Reader
}

// Read returns the text of path. "-" reads from Stdin.
func (r Reader) Read(path string) (string, error) {
	maxSize := r.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var src io.Reader
	if path == StdinPath {
		src = r.Stdin
		if src == nil {
			src = os.Stdin
		}
	} else {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return "", err
		}
		defer f.Close()
		src = f
	}

	data, err := io.ReadAll(io.LimitReader(src, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	if looksBinary(data) {
		return "", fmt.Errorf("%s: %w", path, ErrBinary)
	}
	return string(data), nil
}

// looksBinary treats a NUL byte in the first 8000 bytes as a binary marker.
func looksBinary(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}
