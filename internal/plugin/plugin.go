// Package plugin finds and launches the definition providers the tpsdk
// CLI works from. Providers are builtin (in-process) or external: a
// binary that calls provider.Serve, spoken to over gRPC.
package plugin

import (
	"errors"
	"os/exec"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/hashicorp/go-hclog"

	"github.com/prysmsh/tpsdk/pkg/provider"
)

// ErrNotFound is returned for a provider name nothing registered or discovered.
var ErrNotFound = errors.New("provider not found")

// Kind says where a provider comes from.
type Kind string

const (
	KindBuiltin  Kind = "builtin"
	KindExternal Kind = "external"
)

// Info describes a registered provider.
type Info struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Path string `json:"path,omitempty"` // only for external
}

// clientConfig is the go-plugin client setup for one provider binary.
func clientConfig(path string, logger hclog.Logger) *goplugin.ClientConfig {
	return &goplugin.ClientConfig{
		HandshakeConfig:  provider.Handshake,
		Plugins:          provider.Plugins(nil),
		Cmd:              exec.Command(path),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolGRPC},
		Logger:           logger,
	}
}
