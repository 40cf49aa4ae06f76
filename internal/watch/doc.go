// Package watch implements the poll/compare/snapshot/diff loop of watch-cmd.
// Each cycle runs the watched command, compares its output byte for byte
// with the last persisted snapshot, and on change persists the new output
// and renders a diff against the previous snapshot. The loop can optionally
// be woken early by file-system events on trigger paths.
package watch
