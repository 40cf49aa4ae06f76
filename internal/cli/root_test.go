package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/watch-cmd/internal/runner"
)

// executeCommand runs the CLI with args and a private HOME, capturing both
// stdout and stderr.
func executeCommand(t *testing.T, ctx context.Context, args ...string) (home, stdout, stderr string, err error) {
	t.Helper()

	home = t.TempDir()
	t.Setenv("HOME", home)

	cmd := NewRootCommand()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(ctx)

	return home, outBuf.String(), errBuf.String(), err
}

func snapshotFiles(t *testing.T, home, key string) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(home, ".watch-cmd", key))
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

// ---------------------------------------------------------------------------
// Help / version
// ---------------------------------------------------------------------------

func TestRootCommand_Help(t *testing.T) {
	_, stdout, _, err := executeCommand(t, context.Background(), "--help")
	require.NoError(t, err)

	assert.Contains(t, stdout, "watch-cmd <key> <cmd>")

	for _, flag := range []string{
		"--config", "--log-level", "--log-format", "--no-color", "--quiet",
		"--interval", "--shell", "--diff-tool", "--trigger", "--debounce",
	} {
		assert.Contains(t, stdout, flag, "help should mention %q flag", flag)
	}
}

func TestRootCommand_Version(t *testing.T) {
	_, stdout, _, err := executeCommand(t, context.Background(), "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "watch-cmd ")
	assert.Contains(t, stdout, "commit:")
}

// ---------------------------------------------------------------------------
// Argument validation → exit code 2, nothing created
// ---------------------------------------------------------------------------

func TestRootCommand_Usage(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"build"},
		{"build", "echo", "hello"},
	} {
		home, _, _, err := executeCommand(t, context.Background(), args...)
		require.Error(t, err, "args=%v", args)

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 2, exitErr.Code)
		assert.Equal(t, "Usage: "+filepath.Base(os.Args[0])+" <key> <cmd>", err.Error())

		_, statErr := os.Stat(filepath.Join(home, ".watch-cmd"))
		assert.True(t, os.IsNotExist(statErr), "no directory may be created on usage errors")
	}
}

func TestRootCommand_FlagsAfterKeyBelongToCommand(t *testing.T) {
	_, _, _, err := executeCommand(t, context.Background(), "build", "ls", "--interval", "1s")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, err.Error(), "Usage:")
}

func TestRootCommand_UnknownFlag(t *testing.T) {
	_, _, stderr, err := executeCommand(t, context.Background(), "--nonexistent", "k", "true")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Empty(t, stderr, "cobra should not print errors itself")
}

func TestRootCommand_InvalidKey(t *testing.T) {
	for _, key := range []string{"../escape", ".", "", "/abs"} {
		home, _, _, err := executeCommand(t, context.Background(), key, "true")

		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr, "key=%q", key)
		assert.Equal(t, 2, exitErr.Code, "key=%q", key)
		assert.Contains(t, err.Error(), "invalid key")

		entries, readErr := os.ReadDir(filepath.Join(home, ".watch-cmd"))
		if readErr == nil {
			assert.Empty(t, entries, "key=%q must not write snapshots into the root", key)
		}
	}
}

func TestProgramName(t *testing.T) {
	prev := os.Args
	t.Cleanup(func() { os.Args = prev })

	os.Args = []string{"/usr/local/bin/wc2"}
	assert.Equal(t, "wc2", programName())

	os.Args = nil
	assert.Equal(t, "watch-cmd", programName())
}

// ---------------------------------------------------------------------------
// Configuration errors → exit code 2
// ---------------------------------------------------------------------------

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, _, _, err := executeCommand(t, context.Background(), "--config", "/nonexistent/path.yaml", "k", "true")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestRootCommand_InvalidInterval(t *testing.T) {
	_, _, _, err := executeCommand(t, context.Background(), "--interval", "0s", "k", "true")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "invalid interval")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, _, _, err := executeCommand(t, context.Background(), "--log-level", "trace", "k", "true")

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, err.Error(), "invalid log level")
}

// ---------------------------------------------------------------------------
// Watch behaviour
// ---------------------------------------------------------------------------

func TestRootCommand_CommandFailure(t *testing.T) {
	home, _, _, err := executeCommand(t, context.Background(), "build", "exit 2")
	require.Error(t, err)
	assert.ErrorIs(t, err, runner.ErrCommandFailed)
	assert.Empty(t, snapshotFiles(t, home, "build"))
}

func TestRootCommand_ConstantOutput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	home, stdout, stderr, err := executeCommand(t, ctx, "--interval", "20ms", "build", "echo hello")
	require.NoError(t, err)

	files := snapshotFiles(t, home, "build")
	require.Len(t, files, 1)
	assert.Regexp(t, `^\d{8}T\d{6}Z$`, files[0])

	data, err := os.ReadFile(filepath.Join(home, ".watch-cmd", "build", files[0]))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	assert.Empty(t, stdout)
	assert.NotContains(t, stderr, "changed at")
}

func TestRootCommand_ChangingOutput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	counter := filepath.Join(t.TempDir(), "counter")
	line := `n=$(cat ` + counter + ` 2>/dev/null || echo 0); echo $((n+1)) > ` + counter + `; echo $n`

	_, stdout, stderr, err := executeCommand(t, ctx, "--interval", "20ms", "--no-color", "count", line)
	require.NoError(t, err)

	assert.Contains(t, stderr, "changed at ")
	assert.NotEmpty(t, stdout)
}

func TestRootCommand_ResumesExistingKey(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".watch-cmd", "build")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20000101T000000Z"), []byte("old\n"), 0o600))

	cmd := NewRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	errBuf := new(bytes.Buffer)
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{"--log-level", "debug", "--interval", "20ms", "build", "echo new"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, errBuf.String(), "resuming key with existing snapshots")

	// The first snapshot of a run is always written, even if the directory
	// already holds earlier ones.
	assert.Len(t, snapshotFiles(t, home, "build"), 2)
}

// ---------------------------------------------------------------------------
// execute
// ---------------------------------------------------------------------------

func TestExecute_PrintsErrorAndExitCode(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := NewRootCommand()
	errBuf := new(bytes.Buffer)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{"only-key"})

	assert.Equal(t, 2, execute(cmd))
	assert.Equal(t, "Error: Usage: "+filepath.Base(os.Args[0])+" <key> <cmd>\n", errBuf.String())
}

func TestExecute_RuntimeFailureExitsOne(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cmd := NewRootCommand()
	errBuf := new(bytes.Buffer)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(errBuf)
	cmd.SetArgs([]string{"k", "exit 3"})

	assert.Equal(t, 1, execute(cmd))
	assert.Contains(t, errBuf.String(), "Error: command failed (exit status 3)")
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit code 4", (&ExitError{Code: 4}).Error())
}
