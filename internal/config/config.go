// Package config provides reading and writing of vpnutils configuration.
// Supports both global (~/.vpnutils/config.yaml) and local (.vpnutils/config.yaml).
// Reading: uses local if it exists, otherwise global.
// Writing: defaults to global, use --local for local.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jpl-au/vpnutils/internal/cipher"
	"github.com/jpl-au/vpnutils/internal/ipam"
)

var (
	// ErrNoConfigPath is returned when the config path cannot be determined.
	ErrNoConfigPath = errors.New("cannot determine config path")
	// ErrUnknownKey is returned when getting/setting an unknown config key.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned when a config value is invalid.
	ErrInvalidValue = errors.New("invalid config value")
)

// Scope represents the configuration scope (global or local).
type Scope int

const (
	// ScopeGlobal is user-wide config in ~/.vpnutils/config.yaml (default)
	ScopeGlobal Scope = iota
	// ScopeLocal is directory-specific config in .vpnutils/config.yaml
	ScopeLocal
)

// Database holds store location settings.
type Database struct {
	// Path is the encrypted store used when --database is not given.
	Path string `yaml:"path,omitempty"`
}

// Cipher holds encryption settings.
type Cipher struct {
	WorkFactor *int `yaml:"work_factor,omitempty"`
}

// Allocation holds subnet sizes for automatically allocated VPNs.
type Allocation struct {
	VpnPrefixV4 *int `yaml:"vpn_prefix_v4,omitempty"`
	VpnPrefixV6 *int `yaml:"vpn_prefix_v6,omitempty"`
}

// Validation bounds for configuration values.
const (
	MinVpnPrefixV4 = 1
	MaxVpnPrefixV4 = 30
	MinVpnPrefixV6 = 1
	MaxVpnPrefixV6 = 126
)

// Config contains configuration for vpnutils.
type Config struct {
	Database   Database   `yaml:"database,omitempty"`
	Cipher     Cipher     `yaml:"cipher,omitempty"`
	Allocation Allocation `yaml:"allocation,omitempty"`

	// path is the file this config was loaded from (for Save)
	path  string
	scope Scope
}

// Validate checks that all configured values are within acceptable bounds.
// Returns nil if all values are valid or not set (defaults will be used).
func (c *Config) Validate() error {
	if c.Cipher.WorkFactor != nil {
		v := *c.Cipher.WorkFactor
		if v < cipher.MinWorkFactor || v > cipher.MaxWorkFactor {
			return fmt.Errorf("%w: cipher.work_factor must be between %d and %d, got %d",
				ErrInvalidValue, cipher.MinWorkFactor, cipher.MaxWorkFactor, v)
		}
	}
	if c.Allocation.VpnPrefixV4 != nil {
		v := *c.Allocation.VpnPrefixV4
		if v < MinVpnPrefixV4 || v > MaxVpnPrefixV4 {
			return fmt.Errorf("%w: allocation.vpn_prefix_v4 must be between %d and %d, got %d",
				ErrInvalidValue, MinVpnPrefixV4, MaxVpnPrefixV4, v)
		}
	}
	if c.Allocation.VpnPrefixV6 != nil {
		v := *c.Allocation.VpnPrefixV6
		if v < MinVpnPrefixV6 || v > MaxVpnPrefixV6 {
			return fmt.Errorf("%w: allocation.vpn_prefix_v6 must be between %d and %d, got %d",
				ErrInvalidValue, MinVpnPrefixV6, MaxVpnPrefixV6, v)
		}
	}
	return nil
}

// DatabasePath returns the configured store path, or "" when unset.
func (c *Config) DatabasePath() string {
	return c.Database.Path
}

// WorkFactor returns the scrypt work factor for new encryptions (defaults to 18).
func (c *Config) WorkFactor() int {
	if c.Cipher.WorkFactor == nil {
		return cipher.DefaultWorkFactor
	}
	return *c.Cipher.WorkFactor
}

// VpnPrefixV4 returns the IPv4 prefix length of auto-allocated VPNs (defaults to 24).
func (c *Config) VpnPrefixV4() int {
	if c.Allocation.VpnPrefixV4 == nil {
		return ipam.DefaultVpnPrefixV4
	}
	return *c.Allocation.VpnPrefixV4
}

// VpnPrefixV6 returns the IPv6 prefix length of auto-allocated VPNs (defaults to 64).
func (c *Config) VpnPrefixV6() int {
	if c.Allocation.VpnPrefixV6 == nil {
		return ipam.DefaultVpnPrefixV6
	}
	return *c.Allocation.VpnPrefixV6
}

// LocalPath returns the path to the local config file.
func LocalPath() string {
	return filepath.Join(".vpnutils", "config.yaml")
}

// GlobalPath returns the path to the global (user) config file: ~/.vpnutils/config.yaml
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vpnutils", "config.yaml")
}

// Load reads configuration: uses local if it exists, otherwise global.
func Load() (*Config, error) {
	if _, err := os.Stat(LocalPath()); err == nil {
		return LoadScope(ScopeLocal)
	}
	return LoadScope(ScopeGlobal)
}

// LoadScope reads configuration from a specific scope.
func LoadScope(scope Scope) (*Config, error) {
	path := pathForScope(scope)
	if path == "" {
		return &Config{scope: scope}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{path: path, scope: scope}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config file %s: %w\n\nTo fix: edit the file to correct the YAML syntax, or delete it to use defaults", path, err)
	}
	cfg.path = path
	cfg.scope = scope

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Scope returns which scope this config was loaded from.
func (c *Config) Scope() Scope {
	return c.scope
}

// Save writes the configuration to its original location.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = pathForScope(c.scope)
	}
	if c.path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(c.path)
}

// SaveScope writes the configuration to the specified scope.
func (c *Config) SaveScope(scope Scope) error {
	path := pathForScope(scope)
	if path == "" {
		return ErrNoConfigPath
	}
	return c.saveToPath(path)
}

// saveToPath writes configuration to a specific filesystem path.
func (c *Config) saveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func pathForScope(scope Scope) string {
	switch scope {
	case ScopeLocal:
		return LocalPath()
	case ScopeGlobal:
		return GlobalPath()
	default:
		return ""
	}
}
