package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prysmsh/tpsdk/internal/cmdutil"
	"github.com/prysmsh/tpsdk/internal/plugin"
	"github.com/prysmsh/tpsdk/pkg/definition"
	"github.com/prysmsh/tpsdk/pkg/provider"
)

// source is where a command reads its plugin definition from.
type source struct {
	file     string
	provider string
}

func (s *source) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "read the definition from an entry.tp file")
	cmd.Flags().StringVarP(&s.provider, "plugin", "p", "", "ask a definition provider (name or path) for the definition")
	cmd.MarkFlagsMutuallyExclusive("file", "plugin")
	_ = cmd.RegisterFlagCompletionFunc("plugin", completeProviders)
	_ = cmd.MarkFlagFilename("file", "tp", "json")
}

func (s *source) load(ctx context.Context, a *App) (*definition.Description, error) {
	switch {
	case s.file != "":
		data, err := os.ReadFile(s.file)
		if err != nil {
			return nil, fmt.Errorf("read definition: %w", err)
		}
		return definition.Parse(data)
	case s.provider != "":
		return describeProvider(ctx, a, s.provider)
	}
	return nil, errors.New("no definition given: use --file <entry.tp> or --plugin <provider>")
}

// describeProvider asks a provider for its definition within
// ProviderTimeout.
func describeProvider(ctx context.Context, a *App, ref string) (*definition.Description, error) {
	ctx, cancel := cmdutil.ContextWithTimeout(ctx, cmdutil.ProviderTimeout)
	defer cancel()

	type result struct {
		d   *definition.Description
		err error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := a.Providers.Resolve(ref)
		if err != nil {
			ch <- result{err: err}
			return
		}
		d, err := provider.Describe(ctx, p)
		ch <- result{d, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("provider %s: %w", ref, r.err)
		}
		return r.d, nil
	case <-ctx.Done():
		a.Providers.Shutdown()
		return nil, fmt.Errorf("provider %s: %w", ref, ctx.Err())
	}
}

func completeProviders(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	m := plugin.NewManager("", nil)
	if app != nil {
		m = app.Providers
	} else {
		plugin.RegisterBuiltins(m)
	}
	var names []string
	for _, info := range m.List() {
		names = append(names, info.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
