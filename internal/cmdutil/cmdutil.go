// Package cmdutil provides context helpers for CLI commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ProviderTimeout bounds launching a definition provider and reading its
// description.
const ProviderTimeout = 30 * time.Second

// ShortTimeout is used for quick operations such as dialing a monitor.
const ShortTimeout = 10 * time.Second

// SignalContext returns a context cancelled on SIGINT or SIGTERM. A note
// is written to notice when that happens. Call the returned function to
// release the signal handler.
func SignalContext(parent context.Context, notice io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-signalChan:
			if notice != nil {
				fmt.Fprintf(notice, "\nInterrupted, shutting down...\n")
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(signalChan)
		cancel()
	}
}

// ContextWithTimeout is SignalContext with a deadline.
func ContextWithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	ctx, stop := SignalContext(ctx, os.Stderr)
	return ctx, func() {
		stop()
		cancel()
	}
}
