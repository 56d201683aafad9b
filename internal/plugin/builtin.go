package plugin

import (
	"github.com/prysmsh/tpsdk/pkg/provider"
	"github.com/prysmsh/tpsdk/plugins/counter"
)

// ExampleName is the builtin provider every tpsdk binary ships with.
const ExampleName = "example"

// Example returns the builtin counter definition used by `tpsdk describe`
// when no provider is named.
func Example() provider.Provider {
	return provider.Func(counter.Description)
}

// RegisterBuiltins adds the providers compiled into the CLI.
func RegisterBuiltins(m *Manager) {
	m.RegisterBuiltin(ExampleName, Example())
}
