// Package cmd implements the tpsdk command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prysmsh/tpsdk/internal/config"
	"github.com/prysmsh/tpsdk/internal/logging"
	"github.com/prysmsh/tpsdk/internal/output"
	"github.com/prysmsh/tpsdk/internal/plugin"
	"github.com/prysmsh/tpsdk/internal/style"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tpsdk",
		Short: "Build, check and exercise Touch Portal plugins",
		Long: `tpsdk validates Touch Portal plugin definitions, generates the entry.tp
description and a typed Go handler interface from them, and runs a mock host
to exercise plugins without Touch Portal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initApp(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if app != nil {
				app.Providers.Shutdown()
			}
		},
	}

	cfgFile        string
	activeProfile  string
	overrideFormat output.Format
	overrideHost   string
	overrideLog    string
	debugEnabled   bool

	appOnce sync.Once
	app     *App
)

var version = "dev"

// App carries global CLI state shared across commands.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Providers *plugin.Manager
	Debug     bool
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// MustApp returns the initialized application context.
func MustApp() *App {
	if app == nil {
		panic("cli not initialized")
	}
	return app
}

// Writer returns an output writer for cmd's streams in the configured format.
func (a *App) Writer(cmd *cobra.Command) *output.Writer {
	return output.NewWriterTo(a.Config.OutputFormat, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $TPSDK_HOME/config.yaml)")
	flags.StringVar(&activeProfile, "profile", "", "configuration profile (default is $TPSDK_PROFILE or default)")
	flags.Var(&overrideFormat, "format", "output format: table, json, yaml or quiet")
	flags.StringVar(&overrideHost, "host", "", "Touch Portal host address (default 127.0.0.1:12136)")
	flags.StringVar(&overrideLog, "log-format", "", "log format: text or json")
	flags.BoolVar(&debugEnabled, "debug", false, "enable debug logging")

	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(
		newCompletionCommand(),
		newVersionCommand(),
		newValidateCommand(),
		newGenerateCommand(),
		newDescribeCommand(),
		newMockCommand(),
		newMonitorCommand(),
		newPluginCommand(),
	)
}

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion code for bash, zsh or fish.

To load in current session:
  . <(tpsdk completion bash)   # bash
  . <(tpsdk completion zsh)    # zsh
  tpsdk completion fish | source`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tpsdk version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := MustApp().Writer(cmd)
			if w.Format() == output.FormatTable {
				w.Println(style.RenderVersion("tpsdk", version))
				return nil
			}
			return w.Render(map[string]string{"version": version}, nil)
		},
	}
}

// isCompletionCommand reports whether cmd is shell completion, which needs
// no config.
func isCompletionCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "completion" || c.Name() == cobra.ShellCompRequestCmd {
			return true
		}
	}
	return false
}

func initApp(cmd *cobra.Command) error {
	if isCompletionCommand(cmd) {
		return nil
	}
	var initErr error
	appOnce.Do(func() {
		cfgPath := cfgFile
		if cfgPath == "" {
			home := os.Getenv("TPSDK_HOME")
			if home == "" {
				var err error
				if home, err = config.DefaultHomeDir(); err != nil {
					initErr = fmt.Errorf("determine config directory: %w", err)
					return
				}
			}
			cfgPath = filepath.Join(home, "config.yaml")
		}

		cfg, err := config.Load(cfgPath, activeProfile)
		if err != nil {
			initErr = err
			return
		}
		if overrideFormat != "" {
			cfg.OutputFormat = string(overrideFormat)
		}
		if h := strings.TrimSpace(overrideHost); h != "" {
			cfg.Host = h
		}
		if overrideLog != "" {
			cfg.LogFormat = overrideLog
		}
		if cfg.HomeDir == "" {
			cfg.HomeDir, _ = config.DefaultHomeDir()
		}
		if err := os.MkdirAll(cfg.HomeDir, 0o700); err != nil {
			initErr = fmt.Errorf("ensure tpsdk home: %w", err)
			return
		}

		debug := debugEnabled || viper.GetBool("debug")
		logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogFormat, debug)
		if err != nil {
			initErr = err
			return
		}

		providers := plugin.NewManager(cfg.PluginDir(), logging.Plugin(cmd.ErrOrStderr(), "provider", debug))
		plugin.RegisterBuiltins(providers)
		providers.DiscoverExternalProviders()

		app = &App{
			Config:    cfg,
			Logger:    logger,
			Providers: providers,
			Debug:     debug,
		}
	})

	if initErr != nil {
		return initErr
	}
	if app == nil {
		return fmt.Errorf("failed to initialize cli")
	}
	return nil
}

func printDebug(w io.Writer, format string, args ...any) {
	if app == nil || !app.Debug {
		return
	}
	color.New(color.FgHiBlack).Fprintln(w, "[debug]", fmt.Sprintf(format, args...))
}
