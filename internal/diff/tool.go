package diff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// ErrNoExitCode is returned when the diff tool ended without an exit code,
// e.g. because it was killed by a signal.
var ErrNoExitCode = errors.New("diff terminated without an exit code")

// ToolError reports an exit status other than 0 (identical) or 1 (differ).
type ToolError struct {
	Tool string
	Code int
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s exited with status %d", filepath.Base(e.Tool), e.Code)
}

// Tool is a Differ that runs an external "diff -u" compatible binary. It
// reads the snapshot paths directly, so it only works with files on disk.
type Tool struct {
	name   string
	stdout io.Writer
	stderr io.Writer
}

// NewTool creates a Differ invoking the binary name. Nil writers default to
// the process stdout and stderr.
func NewTool(name string, stdout, stderr io.Writer) *Tool {
	if stdout == nil {
		stdout = os.Stdout
	}

	if stderr == nil {
		stderr = os.Stderr
	}

	return &Tool{name: name, stdout: stdout, stderr: stderr}
}

// Diff implements Differ. Exit status 1 ("files differ") is the expected
// outcome and is not an error.
func (t *Tool) Diff(ctx context.Context, oldPath, newPath string) error {
	cmd := exec.CommandContext(ctx, t.name, "-u", "-L", OldLabel, "-L", NewLabel, oldPath, newPath) //nolint:gosec
	cmd.Stdin = nil
	cmd.Stdout = t.stdout
	cmd.Stderr = t.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", t.name, err)
	}

	err := cmd.Wait()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("waiting for %s: %w", t.name, err)
	}

	switch code := exitErr.ExitCode(); code {
	case -1:
		return ErrNoExitCode
	case 0, 1:
		return nil
	default:
		return &ToolError{Tool: t.name, Code: code}
	}
}
