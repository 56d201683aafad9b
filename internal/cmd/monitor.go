package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/prysmsh/tpsdk/internal/cmdutil"
	"github.com/prysmsh/tpsdk/internal/monitor"
	"github.com/prysmsh/tpsdk/internal/util"
	"github.com/prysmsh/tpsdk/pkg/mockhost"
)

func newMonitorCommand() *cobra.Command {
	var (
		direction string
		width     int
	)
	cmd := &cobra.Command{
		Use:   "monitor [address]",
		Short: "Tail the traffic of a running mock host",
		Long: `Connect to the websocket traffic monitor of a running ` + "`tpsdk mock`" + ` and print
every frame exchanged with the plugin. ">>>" marks host to plugin, "<<<"
plugin to host.`,
		Example: `  tpsdk monitor
  tpsdk monitor 127.0.0.1:12137 --direction fromPlugin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := MustApp()
			addr := a.Config.MonitorAddr
			if len(args) == 1 {
				addr = args[0]
			}
			var opts []monitor.Option
			switch mockhost.Direction(direction) {
			case "":
			case mockhost.DirectionToPlugin, mockhost.DirectionFromPlugin:
				opts = append(opts, monitor.WithDirection(mockhost.Direction(direction)))
			default:
				return fmt.Errorf("unknown direction %q (want %s or %s)", direction, mockhost.DirectionToPlugin, mockhost.DirectionFromPlugin)
			}
			opts = append(opts,
				monitor.WithHandshakeTimeout(cmdutil.ShortTimeout),
				monitor.WithHeader(http.Header{"User-Agent": {"tpsdk/" + version}}),
			)

			if !cmd.Flags().Changed("width") {
				width = util.TerminalWidth(os.Stdout, 0)
			}
			ctx, stop := cmdutil.SignalContext(cmd.Context(), nil)
			defer stop()

			printer := monitor.NewPrinter(cmd.OutOrStdout(), width)
			printDebug(cmd.ErrOrStderr(), "connecting to %s", monitor.URL(addr))
			err := monitor.NewClient(addr, opts...).Run(ctx, printer.Print)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "", "only show frames going toPlugin or fromPlugin")
	cmd.Flags().IntVar(&width, "width", 0, "truncate lines to this many columns (default terminal width)")
	return cmd
}
