// Package snapshot persists command output as timestamped files inside a
// per-key directory under ~/.watch-cmd.
package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// RootDirName is the directory under the home directory holding all keys.
const RootDirName = ".watch-cmd"

// LabelFormat is the sortable UTC timestamp layout used for file names.
const LabelFormat = "20060102T150405Z"

// ErrInvalidKey is returned for keys that cannot name a directory below the
// snapshot root.
var ErrInvalidKey = errors.New("invalid key")

// Label formats t as a snapshot file name with one second resolution.
func Label(t time.Time) string {
	return t.UTC().Format(LabelFormat)
}

// Dir returns the snapshot directory for key.
func Dir(home, key string) string {
	return filepath.Join(home, RootDirName, key)
}

// Store is an append-only directory of snapshot files.
type Store struct {
	fs     afero.Fs
	dir    string
	perm   os.FileMode
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPermissions overrides the default snapshot file permissions (0644).
func WithPermissions(perm os.FileMode) StoreOption {
	return func(s *Store) {
		s.perm = perm
	}
}

// WithLogger sets a logger for the Store.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open ensures the directory for key exists below home and returns a Store
// rooted there. It is safe to call when the directory already exists.
func Open(fs afero.Fs, home, key string, opts ...StoreOption) (*Store, error) {
	if !filepath.IsLocal(key) || filepath.Clean(key) == "." {
		return nil, fmt.Errorf("%w %q: must be a relative path inside %s", ErrInvalidKey, key, RootDirName)
	}

	s := &Store{
		fs:     fs,
		dir:    Dir(home, key),
		perm:   0o644,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.fs.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating snapshot directory %s: %w", s.dir, err)
	}

	info, err := s.fs.Stat(s.dir)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot directory %s: %w", s.dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("creating snapshot directory %s: not a directory", s.dir)
	}

	return s, nil
}

// Dir returns the directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Persist writes content verbatim to a file named label and returns its path.
// An existing file with the same label is overwritten.
func (s *Store) Persist(label, content string) (string, error) {
	path := filepath.Join(s.dir, label)

	if _, err := s.fs.Stat(path); err == nil {
		s.logger.Warn("overwriting snapshot from the same second", slog.String("path", path))
	}

	if err := afero.WriteFile(s.fs, path, []byte(content), s.perm); err != nil {
		return "", fmt.Errorf("writing snapshot %s: %w", path, err)
	}

	return path, nil
}

// Read returns the content of the snapshot at path.
func (s *Store) Read(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	return string(data), nil
}

// List returns the labels of all snapshots in the directory, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots in %s: %w", s.dir, err)
	}

	labels := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		labels = append(labels, e.Name())
	}

	sort.Strings(labels)

	return labels, nil
}
