// Package sigctx provides a context that's canceled on the first SIGINT or
// SIGTERM.
package sigctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// New returns a context that is canceled when the process is interrupted. A
// second signal gets the default behavior, which kills the process.
func New() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		signal.Stop(c)
	}()
	return ctx
}
