package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitInterrupted is the conventional status for a SIGINT-terminated run.
const exitInterrupted = 130

func main() {
	cmd := newRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(exitInterrupted)
		}
		fmt.Fprintln(os.Stderr, "zestsync:", err)
		os.Exit(1)
	}
}
