package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/watch-cmd/internal/snapshot"
)

// DefaultInterval is the pause between two polls.
const DefaultInterval = time.Second

// Runner executes the watched command line and returns its output.
type Runner interface {
	Run(ctx context.Context, line string) (string, error)
}

// Store persists a snapshot under label and returns its path.
type Store interface {
	Persist(label, content string) (string, error)
}

// Differ renders the difference between two snapshot files.
type Differ interface {
	Diff(ctx context.Context, oldPath, newPath string) error
}

// Options configures the watch loop.
type Options struct {
	// Command is the shell command line to poll.
	Command string

	// Interval is the pause between polls.
	Interval time.Duration

	Runner Runner
	Store  Store
	Differ Differ

	// Wake, when non-nil, makes the loop poll immediately on receive.
	Wake <-chan struct{}

	// Now is the clock used for snapshot labels.
	Now func() time.Time

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out receives the user-facing "changed at" notices.
	Out io.Writer
}

// State is the last persisted output and the path of its snapshot.
type State struct {
	Output string
	Path   string
}

func (o Options) withDefaults() (Options, error) {
	if o.Runner == nil || o.Store == nil || o.Differ == nil {
		return o, errors.New("watch: runner, store and differ are required")
	}

	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}

	if o.Now == nil {
		o.Now = time.Now
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	if o.Out == nil {
		o.Out = os.Stderr
	}

	return o, nil
}

// Run takes the initial snapshot and then polls until a component fails or
// ctx is cancelled. Cancellation is not an error.
func Run(ctx context.Context, opts Options) error {
	opts, err := opts.withDefaults()
	if err != nil {
		return err
	}

	state, err := initialize(ctx, opts)
	if err != nil {
		return stopped(ctx, err)
	}

	for {
		if !wait(ctx, opts.Interval, opts.Wake) {
			opts.Logger.Debug("watch loop cancelled", slog.String("last", state.Path))
			return nil
		}

		state, err = poll(ctx, opts, state)
		if err != nil {
			return stopped(ctx, err)
		}
	}
}

// initialize runs the command once and persists its output as the first
// snapshot.
func initialize(ctx context.Context, opts Options) (State, error) {
	out, err := opts.Runner.Run(ctx, opts.Command)
	if err != nil {
		return State{}, err
	}

	path, err := opts.Store.Persist(snapshot.Label(opts.Now()), out)
	if err != nil {
		return State{}, err
	}

	opts.Logger.Debug("initial snapshot", slog.String("path", path), slog.Int("bytes", len(out)))

	return State{Output: out, Path: path}, nil
}

// poll runs one cycle. The returned state differs from prev only when the
// command output changed.
func poll(ctx context.Context, opts Options, prev State) (State, error) {
	out, err := opts.Runner.Run(ctx, opts.Command)
	if err != nil {
		return prev, err
	}

	now := snapshot.Label(opts.Now())

	if out == prev.Output {
		opts.Logger.Debug("output unchanged", slog.String("at", now))

		return prev, nil
	}

	_, _ = fmt.Fprintf(opts.Out, "changed at %s\n", now)

	path, err := opts.Store.Persist(now, out)
	if err != nil {
		return prev, err
	}

	if err := opts.Differ.Diff(ctx, prev.Path, path); err != nil {
		return prev, err
	}

	return State{Output: out, Path: path}, nil
}

func wait(ctx context.Context, d time.Duration, wake <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-wake:
		return true
	}
}

// stopped hides errors caused by the loop being cancelled mid-cycle.
func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}

	return err
}
