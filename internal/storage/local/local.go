package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dev-tams/cronkit/internal/storage/prunable"
)

// tmpPattern names in-flight writes; List never reports them.
const tmpPattern = ".cronkit-*.tmp"

var ErrInvalidKey = errors.New("invalid object key")

// Storage keeps objects as files under a base directory. Keys use forward
// slashes and map to nested directories.
type Storage struct {
	name string
	base string
}

func New(name, basePath string) *Storage {
	return &Storage{name: name, base: basePath}
}

func (s *Storage) Name() string     { return s.name }
func (s *Storage) BasePath() string { return s.base }

// resolve maps key to a path inside the base directory. Keys that would
// escape it are rejected.
func (s *Storage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.base, filepath.FromSlash(clean)), nil
}

func (s *Storage) OpenWriter(_ context.Context, key string) (io.WriteCloser, string, error) {
	dest, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, "", fmt.Errorf("create directory for %s: %w", key, err)
	}

	f, err := os.CreateTemp(filepath.Dir(dest), tmpPattern)
	if err != nil {
		return nil, "", fmt.Errorf("create temp file for %s: %w", key, err)
	}
	return &fileWriter{File: f, dest: dest}, dest, nil
}

// fileWriter publishes its temp file with a rename on Close, so a reader
// sees either the whole object or nothing.
type fileWriter struct {
	*os.File
	dest     string
	finished bool
}

func (w *fileWriter) Close() error {
	if w.finished {
		return nil
	}
	w.finished = true

	tmp := w.File.Name()
	err := w.File.Sync()
	if cerr := w.File.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp, w.dest)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", w.dest, err)
	}
	return nil
}

// Abort discards everything written so far.
func (w *fileWriter) Abort(error) error {
	if w.finished {
		return nil
	}
	w.finished = true

	_ = w.File.Close()
	if err := os.Remove(w.File.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Storage) OpenReader(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: %w", key, prunable.ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return f, nil
}

// List returns the files directly under prefix, sorted by key. A missing
// directory lists as empty.
func (s *Storage) List(_ context.Context, prefix string) ([]prunable.ObjectInfo, error) {
	dir, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	out := make([]prunable.ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || isTemp(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		out = append(out, prunable.ObjectInfo{
			Key:     path.Join(prefix, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	slices.SortFunc(out, func(a, b prunable.ObjectInfo) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func isTemp(name string) bool {
	ok, _ := filepath.Match(tmpPattern, name)
	return ok
}

// Delete removes key. Deleting a missing object is not an error.
func (s *Storage) Delete(_ context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
