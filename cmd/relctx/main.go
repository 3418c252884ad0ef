package main

import (
	"os"

	"github.com/relctx/relctx/internal/cli"
)

// Version information, set during build time via -ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	cli.SetVersion(version, buildDate, gitCommit)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
