package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/prysmsh/tpsdk/internal/cmdutil"
	"github.com/prysmsh/tpsdk/internal/monitor"
	"github.com/prysmsh/tpsdk/internal/output"
	"github.com/prysmsh/tpsdk/internal/util"
	"github.com/prysmsh/tpsdk/pkg/mockhost"
	"github.com/prysmsh/tpsdk/pkg/protocol"
)

type mockOptions struct {
	listen      string
	monitorAddr string
	scenario    string
	settings    map[string]string
	noStore     bool
	tui         bool
}

func newMockCommand() *cobra.Command {
	var opts mockOptions
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a mock Touch Portal host for one plugin connection",
		Long: `Listen where Touch Portal would, pair with the first plugin that connects
and record everything it sends. With --scenario the host plays a YAML script
of actions, connector moves and settings against the plugin and checks the
state updates it expects; the run ends with closePlugin.

Settings the plugin writes with settingUpdate are kept in $TPSDK_HOME/mockhost.db
and reported again on the next pairing.`,
		Example: `  tpsdk mock
  tpsdk mock --scenario counter.yaml --listen 127.0.0.1:0
  tpsdk mock --tui --setting "Start Value=5"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := MustApp()
			if !cmd.Flags().Changed("listen") {
				opts.listen = a.Config.Host
			}
			if !cmd.Flags().Changed("monitor-addr") {
				opts.monitorAddr = a.Config.MonitorAddr
			}
			return runMock(cmd, a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", protocol.DefaultAddr, "address to accept the plugin on")
	cmd.Flags().StringVar(&opts.monitorAddr, "monitor-addr", "127.0.0.1:12137", `websocket traffic monitor address ("" disables)`)
	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "YAML scenario to play once the plugin paired")
	cmd.Flags().StringToStringVar(&opts.settings, "setting", nil, "setting reported in the info reply (name=value, repeatable)")
	cmd.Flags().BoolVar(&opts.noStore, "no-store", false, "do not persist or replay settings")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "show live traffic in a full-screen view")
	_ = cmd.MarkFlagFilename("scenario", "yaml", "yml")

	cmd.AddCommand(newMockSettingsCommand(), newMockResetCommand())
	return cmd
}

func runMock(cmd *cobra.Command, a *App, opts mockOptions) error {
	w := a.Writer(cmd)
	ctx, stop := cmdutil.SignalContext(cmd.Context(), cmd.ErrOrStderr())
	defer stop()

	var sf *scenarioFile
	if opts.scenario != "" {
		var err error
		if sf, err = loadScenario(opts.scenario); err != nil {
			return err
		}
	}

	hostOpts := []mockhost.Option{mockhost.WithListenAddr(opts.listen), mockhost.WithLogger(a.Logger)}
	settings := protocol.SettingValues{}
	if sf != nil {
		for k, v := range sf.Settings {
			settings[k] = v
		}
	}
	for k, v := range opts.settings {
		settings[k] = v
	}
	if len(settings) > 0 {
		hostOpts = append(hostOpts, mockhost.WithSettings(settings))
	}
	if !opts.noStore {
		store, err := mockhost.OpenStore(a.Config.StorePath())
		if err != nil {
			return err
		}
		defer store.Close()
		hostOpts = append(hostOpts, mockhost.WithStore(store))
	}
	mon := mockhost.NewMonitor()
	hostOpts = append(hostOpts, mockhost.WithMonitor(mon))

	if opts.monitorAddr != "" {
		shutdown, err := serveMonitor(opts.monitorAddr, mon)
		if err != nil {
			return err
		}
		defer shutdown()
		printDebug(cmd.ErrOrStderr(), "traffic monitor on ws://%s/", opts.monitorAddr)
	}

	host, err := mockhost.New(hostOpts...)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- host.Serve(ctx) }()

	var playErr chan error
	if sf != nil {
		playErr = make(chan error, 1)
		go func() {
			err := host.Play(ctx, sf.scenarios()...)
			if err == nil {
				err = mockhost.AwaitClosed(ctx, host.Done(), a.Config.GracePeriod)
			}
			playErr <- err
		}()
	}

	if opts.tui {
		err = runMockTUI(ctx, stop, host, mon, playErr)
	} else {
		w.Info("waiting for a plugin on %s", host.Addr())
		printed := make(chan struct{})
		if w.Format() == output.FormatTable {
			printer := monitor.NewPrinter(cmd.OutOrStdout(), util.TerminalWidth(os.Stdout, 0))
			go func() {
				defer close(printed)
				for f := range mon.Subscribe(ctx) {
					printer.Print(f)
				}
			}()
		} else {
			close(printed)
		}
		err = waitMock(ctx, host.Done(), playErr)
		stop()
		<-printed
	}

	stop()
	if serr := <-serveErr; serr != nil && !errors.Is(serr, context.Canceled) && err == nil {
		err = serr
	}
	if rerr := reportMock(w, host); rerr != nil && err == nil {
		err = rerr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// waitMock returns the scenario result, or waits for the plugin to
// disconnect when no scenario runs.
func waitMock(ctx context.Context, hostDone <-chan struct{}, playErr <-chan error) error {
	if playErr != nil {
		select {
		case err := <-playErr:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-hostDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func runMockTUI(ctx context.Context, stop context.CancelFunc, host *mockhost.Host, mon *mockhost.Monitor, playErr <-chan error) error {
	p := tea.NewProgram(monitor.NewModel("tpsdk mock · "+host.Addr()), tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		for f := range mon.Subscribe(ctx) {
			p.Send(monitor.FrameMsg(f))
		}
	}()
	go func() {
		p.Send(monitor.StatusMsg("waiting for a plugin on " + host.Addr()))
		select {
		case <-host.Paired():
			p.Send(monitor.StatusMsg("paired with " + host.PluginID()))
		case <-ctx.Done():
			return
		}
		if playErr != nil {
			status := "scenario passed"
			if err := <-playErr; err != nil {
				status = "scenario failed: " + err.Error()
			}
			p.Send(monitor.StatusMsg(status))
		}
		<-host.Done()
		p.Send(monitor.StatusMsg("plugin disconnected · q to quit"))
	}()
	_, err := p.Run()
	stop()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func serveMonitor(addr string, mon *mockhost.Monitor) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("traffic monitor listen: %w", err)
	}
	srv := &http.Server{Handler: mon, ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

type commandCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type mockReport struct {
	PluginID string         `json:"pluginId"`
	Status   string         `json:"status"`
	Commands []commandCount `json:"commands"`
}

func reportMock(w *output.Writer, host *mockhost.Host) error {
	counts := map[string]int{}
	for _, c := range host.Commands() {
		counts[c.CommandType()]++
	}
	report := mockReport{PluginID: host.PluginID(), Status: "running", Commands: []commandCount{}}
	select {
	case <-host.Done():
		report.Status = "closed"
	default:
	}
	for typ, n := range counts {
		report.Commands = append(report.Commands, commandCount{typ, n})
	}
	sort.Slice(report.Commands, func(i, j int) bool { return report.Commands[i].Type < report.Commands[j].Type })
	if report.PluginID == "" && w.Format() == output.FormatTable {
		w.Warning("no plugin paired")
		return nil
	}
	return w.Render(report, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "PLUGIN\t%s\t%s\n", report.PluginID, output.StatusColor(report.Status))
		for _, c := range report.Commands {
			fmt.Fprintf(tw, "%s\t%d\n", c.Type, c.Count)
		}
	})
}

func newMockSettingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "settings <plugin-id>",
		Short: "Show the settings the mock host stored for a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := MustApp()
			store, err := mockhost.OpenStore(a.Config.StorePath())
			if err != nil {
				return err
			}
			defer store.Close()
			values, err := store.Settings(args[0])
			if err != nil {
				return err
			}
			names := make([]string, 0, len(values))
			for name := range values {
				names = append(names, name)
			}
			sort.Strings(names)
			return a.Writer(cmd).Render(values, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "NAME\tVALUE")
				for _, name := range names {
					fmt.Fprintf(tw, "%s\t%s\n", name, values[name])
				}
			})
		},
	}
}

func newMockResetCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset <plugin-id>",
		Short: "Forget the settings the mock host stored for a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := MustApp()
			if !yes {
				ok, err := util.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Forget stored settings of "+args[0]+"?", false)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			store, err := mockhost.OpenStore(a.Config.StorePath())
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Reset(args[0]); err != nil {
				return err
			}
			a.Writer(cmd).Success("settings of %s cleared", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
