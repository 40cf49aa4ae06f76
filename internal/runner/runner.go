// Package runner executes a command line through a shell and captures its
// standard output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"unicode/utf8"
)

// DefaultShell is the interpreter used when none is configured.
const DefaultShell = "sh"

var (
	// ErrCommandFailed is matched by every non-zero exit of the watched command.
	ErrCommandFailed = errors.New("command failed")

	// ErrInvalidOutput is returned when stdout is not valid UTF-8 text.
	ErrInvalidOutput = errors.New("command output is not valid UTF-8")
)

// ExitStatusError reports a non-zero exit status of the watched command.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("%s (exit status %d)", ErrCommandFailed, e.Code)
}

// Is makes errors.Is(err, ErrCommandFailed) hold.
func (e *ExitStatusError) Is(target error) bool { return target == ErrCommandFailed }

// Shell runs command lines with "<shell> -ec <line>". The line is never
// tokenized, so globs, pipes and redirects keep their shell meaning.
type Shell struct {
	name   string
	stderr io.Writer
}

// Option configures a Shell.
type Option func(*Shell)

// WithShell overrides the interpreter (default "sh").
func WithShell(name string) Option {
	return func(s *Shell) {
		if name != "" {
			s.name = name
		}
	}
}

// WithStderr sets where the child's stderr is streamed (default os.Stderr).
func WithStderr(w io.Writer) Option {
	return func(s *Shell) {
		s.stderr = w
	}
}

// New creates a Shell runner.
func New(opts ...Option) *Shell {
	s := &Shell{
		name:   DefaultShell,
		stderr: os.Stderr,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the interpreter binary.
func (s *Shell) Name() string {
	return s.name
}

// Run executes line in a fresh subprocess and returns its captured stdout.
func (s *Shell) Run(ctx context.Context, line string) (string, error) {
	var stdout bytes.Buffer

	cmd := exec.CommandContext(ctx, s.name, "-ec", line) //nolint:gosec
	// A nil Stdin reads from the null device, so the command cannot block on input.
	cmd.Stdin = nil
	cmd.Stdout = &stdout
	cmd.Stderr = s.stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting command: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitStatusError{Code: exitErr.ExitCode()}
		}

		return "", fmt.Errorf("waiting for command: %w", err)
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", ErrInvalidOutput
	}

	return stdout.String(), nil
}
