package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/example/snipscan/internal/cli"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// Size GOMAXPROCS to the container CPU quota before the worker pool starts.
	_, _ = maxprocs.Set()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "snipscan:", err)
		if errors.Is(err, cli.ErrFindingsOverThreshold) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
