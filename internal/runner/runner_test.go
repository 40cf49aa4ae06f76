package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesStdout(t *testing.T) {
	r := New(WithStderr(new(bytes.Buffer)))

	out, err := r.Run(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestRun_PreservesTrailingWhitespace(t *testing.T) {
	r := New(WithStderr(new(bytes.Buffer)))

	out, err := r.Run(context.Background(), `printf 'a  \n\n  '`)
	require.NoError(t, err)
	assert.Equal(t, "a  \n\n  ", out)
}

func TestRun_ShellSemantics(t *testing.T) {
	r := New(WithStderr(new(bytes.Buffer)))

	out, err := r.Run(context.Background(), "printf 'b\\na\\n' | sort")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)
}

func TestRun_StdinIsEmpty(t *testing.T) {
	r := New(WithStderr(new(bytes.Buffer)))

	out, err := r.Run(context.Background(), "cat")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_StderrPassesThrough(t *testing.T) {
	var stderr bytes.Buffer
	r := New(WithStderr(&stderr))

	out, err := r.Run(context.Background(), "echo visible >&2; echo captured")
	require.NoError(t, err)
	assert.Equal(t, "captured\n", out)
	assert.Equal(t, "visible\n", stderr.String())
}

func TestRun_NonZeroExit(t *testing.T) {
	r := New(WithStderr(new(bytes.Buffer)))

	_, err := r.Run(context.Background(), "exit 2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandFailed))

	var statusErr *ExitStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 2, statusErr.Code)
	assert.Equal(t, "command failed (exit status 2)", err.Error())
}

func TestRun_ErrexitStopsScript(t *testing.T) {
	r := New(WithStderr(new(bytes.Buffer)))

	_, err := r.Run(context.Background(), "false; echo unreachable")
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestRun_InvalidUTF8(t *testing.T) {
	r := New(WithStderr(new(bytes.Buffer)))

	_, err := r.Run(context.Background(), `printf '\377\376'`)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestRun_MissingShell(t *testing.T) {
	r := New(WithShell("/nonexistent/shell"), WithStderr(new(bytes.Buffer)))

	_, err := r.Run(context.Background(), "echo hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting command")
	assert.False(t, errors.Is(err, ErrCommandFailed))
}

func TestNew_Defaults(t *testing.T) {
	r := New(WithShell(""))
	assert.Equal(t, DefaultShell, r.Name())
}
