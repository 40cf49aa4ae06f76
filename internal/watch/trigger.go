package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a trigger wakes the loop.
const DefaultDebounce = 200 * time.Millisecond

// Trigger watches paths with fsnotify and signals C when any of them change.
// Directories are watched recursively; hidden subdirectories are skipped.
type Trigger struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewTrigger starts watching paths. A non-positive debounce uses
// DefaultDebounce.
func NewTrigger(paths []string, debounce time.Duration, logger *slog.Logger) (*Trigger, error) {
	if len(paths) == 0 {
		return nil, errors.New("no trigger paths given")
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	for _, p := range paths {
		if err := addPath(watcher, p); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	t := &Trigger{
		watcher: watcher,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	t.debouncer = NewDebouncer(debounce, t.notify)

	go t.loop()

	return t, nil
}

// C delivers one value per debounced burst of changes. Bursts that arrive
// while a previous signal is still pending are merged.
func (t *Trigger) C() <-chan struct{} {
	return t.wake
}

// Close stops watching and releases the underlying watcher.
func (t *Trigger) Close() error {
	var err error

	t.closeOnce.Do(func() {
		t.debouncer.Stop()
		err = t.watcher.Close()
		<-t.done
	})

	return err
}

func (t *Trigger) notify(path string, events int) {
	t.logger.Debug("trigger fired", slog.String("path", path), slog.Int("events", events))

	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Trigger) loop() {
	defer close(t.done)

	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}

			if !isRelevant(event) {
				continue
			}

			// Watch directories created below a watched tree.
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = addRecursive(t.watcher, event.Name)
				}
			}

			t.debouncer.Trigger(event.Name)

		case watchErr, ok := <-t.watcher.Errors:
			if !ok {
				return
			}

			t.logger.Error("trigger watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func addPath(watcher *fsnotify.Watcher, p string) error {
	abs, err := filepath.Abs(p)
	if err != nil {
		return fmt.Errorf("resolving trigger path %q: %w", p, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watching trigger path %q: %w", p, err)
	}

	if info.IsDir() {
		if err := addRecursive(watcher, abs); err != nil {
			return fmt.Errorf("watching trigger directory %q: %w", p, err)
		}

		return nil
	}

	if err := watcher.Add(abs); err != nil {
		return fmt.Errorf("watching trigger file %q: %w", p, err)
	}

	return nil
}

// addRecursive walks root and adds all non-hidden directories.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}

// isRelevant drops chmod-only events and editor scratch files.
func isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	name := filepath.Base(event.Name)

	return !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, "~") &&
		!strings.HasSuffix(name, ".swp") && !strings.HasPrefix(name, "#")
}
