// # cmd/molgraph/main.go
package main

import (
	"fmt"
	"os"

	"molgraph/internal/shared/logger"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

func main() {
	err := newRootCommand().Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
