package cli

import (
	"fmt"
	"os"
)

// stderrLogger implements internal/engine.Logger by writing to stderr,
// gated by the --verbose flag for debug-level lines.
type stderrLogger struct{}

func (stderrLogger) Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warn: "+format+"\n", args...)
}

func (stderrLogger) Debugf(format string, args ...any) {
	if verbose() {
		fmt.Fprintf(os.Stderr, "debug: "+format+"\n", args...)
	}
}
