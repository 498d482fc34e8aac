package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"lawfeed/internal/runlock"
)

// Exit codes. exitBusy (EX_TEMPFAIL) tells schedulers the pass can be
// retried once the other holder of the lane lock finishes.
const (
	exitOK      = 0
	exitFailure = 1
	exitBusy    = 75
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return exitOK
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, err)
	}
	if errors.Is(err, runlock.ErrLocked) {
		return exitBusy
	}
	return exitFailure
}
