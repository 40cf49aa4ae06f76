// watch-cmd runs a shell command periodically and records every change in
// its output as a snapshot, printing a diff between consecutive snapshots.
package main

import (
	"os"

	"github.com/hupe1980/watch-cmd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
