package plugin

import (
	"os"
	"path/filepath"
	"strings"
)

const providerPrefix = "tpsdk-provider-"

// Discovered is an external provider binary found on disk.
type Discovered struct {
	Name string // without prefix (e.g. "mixer")
	Path string
}

// DiscoverExternal scans for executables named `tpsdk-provider-*` in
// pluginDir and then each directory of $PATH. The first binary found for
// a name wins.
func DiscoverExternal(pluginDir string) []Discovered {
	var found []Discovered
	seen := make(map[string]bool)

	if pluginDir != "" {
		scanDir(pluginDir, &found, seen)
	}
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		scanDir(dir, &found, seen)
	}
	return found
}

func scanDir(dir string, found *[]Discovered, seen map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".exe")
		if !strings.HasPrefix(name, providerPrefix) {
			continue
		}
		short := strings.TrimPrefix(name, providerPrefix)
		if short == "" || seen[short] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Mode()&0o111 == 0 {
			continue
		}
		seen[short] = true
		*found = append(*found, Discovered{
			Name: short,
			Path: filepath.Join(dir, entry.Name()),
		})
	}
}
