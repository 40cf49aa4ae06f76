package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/hupe1980/watch-cmd/internal/config"
	"github.com/hupe1980/watch-cmd/internal/diff"
	"github.com/hupe1980/watch-cmd/internal/logging"
	"github.com/hupe1980/watch-cmd/internal/runner"
	"github.com/hupe1980/watch-cmd/internal/snapshot"
	"github.com/hupe1980/watch-cmd/internal/watch"
)

func runWatch(ctx context.Context, cmd *cobra.Command, key, line string) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("no home directory: %w", err)
	}

	fs := afero.NewOsFs()

	store, err := snapshot.Open(fs, home, key, snapshot.WithLogger(logger))
	if err != nil {
		if errors.Is(err, snapshot.ErrInvalidKey) {
			return &ExitError{Code: 2, Err: err}
		}

		return err
	}

	if labels, listErr := store.List(); listErr == nil && len(labels) > 0 {
		logger.Debug("resuming key with existing snapshots",
			slog.String("dir", store.Dir()),
			slog.Int("count", len(labels)),
			slog.String("latest", labels[len(labels)-1]),
		)
	}

	opts := watch.Options{
		Command:  line,
		Interval: cfg.Interval,
		Runner:   runner.New(runner.WithShell(cfg.Shell), runner.WithStderr(cmd.ErrOrStderr())),
		Store:    store,
		Differ:   newDiffer(cfg, fs, cmd.OutOrStdout(), cmd.ErrOrStderr()),
		Logger:   logger,
		Out:      cmd.ErrOrStderr(),
	}

	if len(cfg.Triggers) > 0 {
		trigger, err := watch.NewTrigger(cfg.Triggers, cfg.Debounce, logger)
		if err != nil {
			return err
		}
		defer trigger.Close()

		opts.Wake = trigger.C()
	}

	return watch.Run(ctx, opts)
}

// newDiffer selects the external diff tool when one is configured and the
// built-in renderer otherwise.
func newDiffer(cfg *config.Config, fs afero.Fs, stdout, stderr io.Writer) watch.Differ {
	if cfg.DiffTool != "" {
		return diff.NewTool(cfg.DiffTool, stdout, stderr)
	}

	return diff.NewUnified(fs, diff.WithOutput(stdout), diff.WithColor(!cfg.NoColor))
}
