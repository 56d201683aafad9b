// Package provider lets a Go program serve its plugin definition to the
// tpsdk CLI as a go-plugin subprocess. Definitions built with the
// builder API never have to be written to disk by hand: `tpsdk validate`,
// `tpsdk generate` and `tpsdk describe` launch the provider, ask it for
// its description and work from the answer.
//
//	func main() {
//		provider.Serve(provider.Func(buildDefinition))
//	}
package provider

import (
	"context"
	"os"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/hashicorp/go-hclog"

	"github.com/prysmsh/tpsdk/pkg/definition"
)

// Handshake is shared by tpsdk and every definition provider.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "TPSDK_PROVIDER",
	MagicCookieValue: "tpsdk-definition-v1",
}

// PluginKey is the name the definition plugin is dispensed under.
const PluginKey = "definition"

// Provider produces a plugin definition.
type Provider interface {
	Description() (*definition.Description, error)
}

// Func adapts a plain function to Provider.
type Func func() (*definition.Description, error)

// Description calls f.
func (f Func) Description() (*definition.Description, error) { return f() }

// Static serves an already built definition.
func Static(d *definition.Description) Provider {
	return Func(func() (*definition.Description, error) { return d, nil })
}

// Plugins is the plugin set for both ends of the connection. Impl is only
// needed on the provider side.
func Plugins(impl Provider) goplugin.PluginSet {
	return goplugin.PluginSet{PluginKey: &DefinitionPlugin{Impl: impl}}
}

// Serve runs p as a go-plugin server. It blocks until the host kills the
// process.
func Serve(p Provider) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         Plugins(p),
		GRPCServer:      goplugin.DefaultGRPCServer,
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "provider",
			Output: os.Stderr,
			Level:  hclog.Info,
		}),
	})
}

// DescriptionContext is implemented by providers that honour cancellation.
// The gRPC client satisfies it.
type DescriptionContext interface {
	DescriptionContext(ctx context.Context) (*definition.Description, error)
}

// Describe asks p for its definition, passing ctx along when p accepts it.
func Describe(ctx context.Context, p Provider) (*definition.Description, error) {
	if pc, ok := p.(DescriptionContext); ok {
		return pc.DescriptionContext(ctx)
	}
	return p.Description()
}
