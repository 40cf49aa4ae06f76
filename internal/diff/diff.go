// Package diff renders unified diffs between two snapshot files, either
// in-process with go-difflib or by invoking an external diff tool.
package diff

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"
)

// Labels used in the diff header instead of the real snapshot paths.
const (
	OldLabel = "old"
	NewLabel = "new"
)

const noNewlineMarker = "\\ No newline at end of file\n"

// Differ writes a unified diff between the files at oldPath and newPath.
type Differ interface {
	Diff(ctx context.Context, oldPath, newPath string) error
}

// Result holds the result of a unified diff computation.
type Result struct {
	Unified        string
	HasDifferences bool
}

// Options configures diff computation.
type Options struct {
	OldLabel string
	NewLabel string
	Context  int
}

// DefaultOptions returns the options used for snapshot diffs.
func DefaultOptions() Options {
	return Options{
		OldLabel: OldLabel,
		NewLabel: NewLabel,
		Context:  3,
	}
}

// Compute computes a unified diff between two texts.
func Compute(oldText, newText string, opts Options) (*Result, error) {
	ud := difflib.UnifiedDiff{
		A:        splitLines(oldText),
		B:        splitLines(newText),
		FromFile: opts.OldLabel,
		ToFile:   opts.NewLabel,
		Context:  opts.Context,
	}

	unified, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	return &Result{
		Unified:        unified,
		HasDifferences: unified != "",
	}, nil
}

// Write writes a formatted diff to w, coloring lines when colorize is set
// and the color package has not been globally disabled.
func Write(w io.Writer, result *Result, colorize bool) {
	if !result.HasDifferences {
		_, _ = fmt.Fprintln(w, "No differences found.")
		return
	}

	p := newPalette(colorize)

	for i, line := range strings.Split(strings.TrimSuffix(result.Unified, "\n"), "\n") {
		// The "---"/"+++" file header is always the first two lines.
		if i < 2 {
			_, _ = p.header.Fprintln(w, line)
			continue
		}

		p.writeLine(w, line)
	}
}

// Unified is the built-in Differ. It reads both snapshots from fs.
type Unified struct {
	fs    afero.Fs
	out   io.Writer
	color bool
	opts  Options
}

// UnifiedOption configures a Unified differ.
type UnifiedOption func(*Unified)

// WithOutput sets the diff destination (default os.Stdout).
func WithOutput(w io.Writer) UnifiedOption {
	return func(u *Unified) {
		u.out = w
	}
}

// WithColor enables or disables colored output.
func WithColor(enabled bool) UnifiedOption {
	return func(u *Unified) {
		u.color = enabled
	}
}

// WithContext sets the number of context lines around each change.
func WithContext(lines int) UnifiedOption {
	return func(u *Unified) {
		u.opts.Context = lines
	}
}

// NewUnified creates the built-in differ.
func NewUnified(fs afero.Fs, opts ...UnifiedOption) *Unified {
	u := &Unified{
		fs:    fs,
		out:   os.Stdout,
		color: true,
		opts:  DefaultOptions(),
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Diff implements Differ.
func (u *Unified) Diff(_ context.Context, oldPath, newPath string) error {
	oldText, err := afero.ReadFile(u.fs, oldPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", oldPath, err)
	}

	newText, err := afero.ReadFile(u.fs, newPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", newPath, err)
	}

	result, err := Compute(string(oldText), string(newText), u.opts)
	if err != nil {
		return err
	}

	Write(u.out, result, u.color)

	return nil
}

type palette struct {
	header, hunk, removed, added *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header:  color.New(color.Bold),
		hunk:    color.New(color.FgCyan),
		removed: color.New(color.FgRed),
		added:   color.New(color.FgGreen),
	}

	if !enabled {
		for _, c := range []*color.Color{p.header, p.hunk, p.removed, p.added} {
			c.DisableColor()
		}
	}

	return p
}

func (p palette) writeLine(w io.Writer, line string) {
	switch {
	case strings.HasPrefix(line, "@@"):
		_, _ = p.hunk.Fprintln(w, line)
	case strings.HasPrefix(line, "-"):
		_, _ = p.removed.Fprintln(w, line)
	case strings.HasPrefix(line, "+"):
		_, _ = p.added.Fprintln(w, line)
	default:
		_, _ = fmt.Fprintln(w, line)
	}
}

// splitLines splits s into lines that keep their trailing newline, as
// difflib expects. A final line without a newline carries the GNU diff
// marker so that "a" and "a\n" still compare as different.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}

	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}

	lines[len(lines)-1] += "\n" + noNewlineMarker

	return lines
}
