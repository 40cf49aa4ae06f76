// Package cli implements the cobra command for watch-cmd.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hupe1980/watch-cmd/internal/config"
	"github.com/hupe1980/watch-cmd/internal/logging"
	"github.com/hupe1980/watch-cmd/internal/version"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command, runs it, and returns the exit code.
func Execute() int {
	return execute(NewRootCommand())
}

// execute runs cmd and prints any failure as "Error: <message>".
func execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return 1
}

// NewRootCommand constructs the watch-cmd command.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "watch-cmd <key> <cmd>",
		Short: "Run a command repeatedly and record every change in its output",
		Long: `watch-cmd runs <cmd> through the shell once per interval and compares
its standard output with the previous run. Every distinct output is stored
as a timestamped snapshot in ~/.watch-cmd/<key>/ and a unified diff against
the previous snapshot is printed to stdout.

The command's stderr passes through unchanged. Any failure (non-zero exit
of the command, write error, diff error) stops watch-cmd immediately.

<key> must be a relative name such as "build" or "api/health"; empty
keys, ".", absolute paths and keys escaping ~/.watch-cmd with ".." are
rejected.

Flags must come before <key>; quote <cmd> as a single argument.`,
		Example: `  watch-cmd build 'make 2>&1 | tail -n 20'
  watch-cmd --interval 10s api 'curl -s https://example.com/health'`,
		Version:       version.GetInfo().String(),
		Args:          usageArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			logger := logging.Setup(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.Duration("interval", cfg.Interval),
				slog.String("configFile", cfg.ConfigFile),
			)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, args[0], args[1])
		},
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .watch-cmd.yaml)")
	pf.String("log-level", config.LogLevelInfo, "log level: debug, info, warn, error")
	pf.String("log-format", config.LogFormatText, "log format: text, json")
	pf.Bool("no-color", false, "disable colored diff output")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	f := cmd.Flags()
	f.Duration("interval", config.DefaultInterval, "pause between two runs of the command")
	f.String("shell", config.DefaultShell, "shell used to run the command line")
	f.String("diff-tool", "", "external diff binary (default: built-in unified diff)")
	f.StringSlice("trigger", nil, "path whose changes trigger an immediate run (repeatable)")
	f.Duration("debounce", config.DefaultDebounce, "quiet period for --trigger events")

	// Everything after <key> belongs to the watched command.
	f.SetInterspersed(false)

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	return cmd
}

func usageArgs(_ *cobra.Command, args []string) error {
	if len(args) != 2 {
		return &ExitError{Code: 2, Err: fmt.Errorf("Usage: %s <key> <cmd>", programName())} //nolint:staticcheck
	}

	return nil
}

// programName is the name the binary was invoked as.
func programName() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "watch-cmd"
	}

	return filepath.Base(os.Args[0])
}
