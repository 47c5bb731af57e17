// Command ternc is the command line driver for the tern compiler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "ternc: %s\n", msg)
		}
		stop()
		os.Exit(GetExitCode(err))
	}
}
