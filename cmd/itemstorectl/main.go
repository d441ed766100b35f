// Command itemstorectl is a small command-line client for inspecting and
// manipulating an itemstore store from the shell.
package main

import (
	"os"

	"github.com/arlowood/itemstore/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Stdout, os.Stderr, os.Args[1:]))
}
