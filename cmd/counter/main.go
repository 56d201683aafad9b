// Command counter runs the demo counter plugin. Installed on PATH or in
// $TPSDK_HOME/plugins as tpsdk-provider-counter, the same binary also
// serves its definition to the tpsdk CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/prysmsh/tpsdk/internal/logging"
	"github.com/prysmsh/tpsdk/pkg/protocol"
	"github.com/prysmsh/tpsdk/pkg/provider"
	"github.com/prysmsh/tpsdk/pkg/session"
	"github.com/prysmsh/tpsdk/plugins/counter"
)

func main() {
	if os.Getenv(provider.Handshake.MagicCookieKey) == provider.Handshake.MagicCookieValue {
		provider.Serve(provider.Func(counter.Description))
		return
	}

	addr := pflag.String("addr", protocol.DefaultAddr, "Touch Portal host address")
	logFormat := pflag.String("log-format", "text", "log format: text or json")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := counter.Run(ctx, *addr, counter.NewHandler(logger), session.WithLogger(logger)); err != nil && ctx.Err() == nil {
		logger.Error("counter stopped", "error", err)
		os.Exit(1)
	}
}
