package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	goplugin "github.com/hashicorp/go-plugin"
	"github.com/hashicorp/go-hclog"

	"github.com/prysmsh/tpsdk/pkg/provider"
)

// Manager resolves provider names to running providers and owns the
// subprocesses it starts.
type Manager struct {
	builtins  map[string]provider.Provider
	externals map[string]Discovered
	pluginDir string
	logger    hclog.Logger

	mu      sync.Mutex
	loaded  map[string]provider.Provider
	clients []*goplugin.Client // for cleanup
}

// NewManager creates a manager looking for external providers in
// pluginDir. A nil logger discards go-plugin output.
func NewManager(pluginDir string, logger hclog.Logger) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Manager{
		builtins:  make(map[string]provider.Provider),
		externals: make(map[string]Discovered),
		pluginDir: pluginDir,
		logger:    logger,
		loaded:    make(map[string]provider.Provider),
	}
}

// RegisterBuiltin registers an in-process provider.
func (m *Manager) RegisterBuiltin(name string, p provider.Provider) {
	m.builtins[name] = p
}

// DiscoverExternalProviders scans for provider binaries. Names taken by a
// builtin are skipped.
func (m *Manager) DiscoverExternalProviders() {
	for _, d := range DiscoverExternal(m.pluginDir) {
		if _, exists := m.builtins[d.Name]; exists {
			m.logger.Debug("skipping external provider, conflicts with builtin", "name", d.Name, "path", d.Path)
			continue
		}
		m.externals[d.Name] = d
	}
}

// List returns every known provider sorted by name.
func (m *Manager) List() []Info {
	var list []Info
	for name := range m.builtins {
		list = append(list, Info{Name: name, Kind: KindBuiltin})
	}
	for name, d := range m.externals {
		list = append(list, Info{Name: name, Kind: KindExternal, Path: d.Path})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Resolve returns the provider for ref: a path to a provider binary when
// ref contains a path separator, a registered name otherwise.
func (m *Manager) Resolve(ref string) (provider.Provider, error) {
	if strings.ContainsRune(ref, '/') || strings.ContainsRune(ref, filepath.Separator) {
		if _, err := os.Stat(ref); err != nil {
			return nil, fmt.Errorf("provider %q: %w", ref, err)
		}
		return m.Launch(ref)
	}
	return m.Get(ref)
}

// Get returns a named provider, starting it if it is external.
func (m *Manager) Get(name string) (provider.Provider, error) {
	if p, ok := m.builtins[name]; ok {
		return p, nil
	}
	d, ok := m.externals[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	m.mu.Lock()
	p, ok := m.loaded[name]
	m.mu.Unlock()
	if ok {
		return p, nil
	}
	p, err := m.Launch(d.Path)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.loaded[name] = p
	m.mu.Unlock()
	return p, nil
}

// Launch starts the provider binary at path and connects to it.
func (m *Manager) Launch(path string) (provider.Provider, error) {
	client := goplugin.NewClient(clientConfig(path, m.logger.Named(filepath.Base(path))))

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("connect to provider %q: %w", path, err)
	}
	raw, err := rpcClient.Dispense(provider.PluginKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense provider %q: %w", path, err)
	}
	p, ok := raw.(provider.Provider)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("provider %q returned unexpected type %T", path, raw)
	}

	m.mu.Lock()
	m.clients = append(m.clients, client)
	m.mu.Unlock()
	return p, nil
}

// Shutdown kills all provider subprocesses.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		c.Kill()
	}
	m.clients = nil
	clear(m.loaded)
}
