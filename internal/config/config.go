package config

import (
	"bytes"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prysmsh/tpsdk/pkg/protocol"
	"github.com/prysmsh/tpsdk/pkg/session"
)

// Config represents CLI configuration sourced from config files, environment variables, and flags.
type Config struct {
	Profile      string        `mapstructure:"-"`
	ConfigFile   string        `mapstructure:"-"`
	Host         string        `mapstructure:"host" yaml:"host"`
	HomeDir      string        `mapstructure:"home" yaml:"home"`
	OutputFormat string        `mapstructure:"format" yaml:"format"`
	Package      string        `mapstructure:"package" yaml:"package"`
	OutDir       string        `mapstructure:"out_dir" yaml:"out_dir"`
	GracePeriod  time.Duration `mapstructure:"grace_period" yaml:"grace_period"`
	MonitorAddr  string        `mapstructure:"monitor_addr" yaml:"monitor_addr"`
	LogFormat    string        `mapstructure:"log_format" yaml:"log_format"`
}

type fileConfig struct {
	Config   Config            `mapstructure:",squash"`
	Profiles map[string]Config `mapstructure:"profiles"`
}

// DefaultHomeDir returns the default configuration directory. When running as root
// via sudo (SUDO_USER set), uses the invoking user's home so the mock host's
// settings store is shared with the unprivileged user.
func DefaultHomeDir() (string, error) {
	base := ""
	if os.Geteuid() == 0 {
		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			if u, err := user.Lookup(sudoUser); err == nil && u.HomeDir != "" {
				base = u.HomeDir
			}
		}
	}
	if base == "" {
		var err error
		base, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
	}
	return filepath.Join(base, ".tpsdk"), nil
}

// Load reads configuration from config file, environment variables, and defaults.
func Load(path, profile string) (*Config, error) {
	cfg := defaultConfig()
	cfg.ConfigFile = path

	fc, err := readFileConfig(path)
	if err != nil {
		return nil, err
	}

	cfg.merge(fc.Config)

	if profile == "" {
		profile = os.Getenv("TPSDK_PROFILE")
	}
	if profile == "" {
		profile = "default"
	}
	if profile != "default" {
		profileCfg, ok := fc.Profiles[profile]
		if !ok {
			return nil, fmt.Errorf("profile %q not defined in %s", profile, path)
		}
		cfg.merge(profileCfg)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	cfg.Profile = profile

	return &cfg, nil
}

// StorePath is the mock host's settings database.
func (c *Config) StorePath() string {
	return filepath.Join(c.HomeDir, "mockhost.db")
}

// PluginDir is where definition providers are discovered.
func (c *Config) PluginDir() string {
	return filepath.Join(c.HomeDir, "plugins")
}

func defaultConfig() Config {
	home, _ := DefaultHomeDir()
	return Config{
		Host:         protocol.DefaultAddr,
		HomeDir:      home,
		OutputFormat: "table",
		Package:      "plugin",
		OutDir:       ".",
		GracePeriod:  session.DefaultGracePeriod,
		MonitorAddr:  "127.0.0.1:12137",
		LogFormat:    "text",
	}
}

func readFileConfig(path string) (*fileConfig, error) {
	if path == "" {
		return &fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	return &fc, nil
}

func (c *Config) merge(other Config) {
	if other.Host != "" {
		c.Host = strings.TrimSpace(other.Host)
	}
	if other.HomeDir != "" {
		c.HomeDir = other.HomeDir
	}
	if other.OutputFormat != "" {
		c.OutputFormat = other.OutputFormat
	}
	if other.Package != "" {
		c.Package = other.Package
	}
	if other.OutDir != "" {
		c.OutDir = other.OutDir
	}
	if other.GracePeriod != 0 {
		c.GracePeriod = other.GracePeriod
	}
	if other.MonitorAddr != "" {
		c.MonitorAddr = other.MonitorAddr
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
}

func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("TPSDK_HOST"); val != "" {
		cfg.Host = strings.TrimSpace(val)
	}
	if val := os.Getenv("TPSDK_HOME"); val != "" {
		cfg.HomeDir = val
	}
	if val := os.Getenv("TPSDK_FORMAT"); val != "" {
		cfg.OutputFormat = val
	}
	if val := os.Getenv("TPSDK_PACKAGE"); val != "" {
		cfg.Package = val
	}
	if val := os.Getenv("TPSDK_OUT_DIR"); val != "" {
		cfg.OutDir = val
	}
	if val := os.Getenv("TPSDK_GRACE_PERIOD"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("TPSDK_GRACE_PERIOD: %w", err)
		}
		cfg.GracePeriod = d
	}
	if val := os.Getenv("TPSDK_MONITOR_ADDR"); val != "" {
		cfg.MonitorAddr = val
	}
	if val := os.Getenv("TPSDK_LOG_FORMAT"); val != "" {
		cfg.LogFormat = val
	}
	return nil
}
