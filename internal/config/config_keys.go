// config_keys.go provides key-value access to configuration settings.
//
// Separated from config.go to isolate the key enumeration and string-based
// get/set logic used by the config command (e.g., "cipher.work_factor").
//
// Pointers are used for optional fields so "not set" (nil) differs from an
// explicit value; defaults apply only when unset.

package config

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/jpl-au/vpnutils/internal/cipher"
)

// ValidKeys returns all valid configuration keys.
func ValidKeys() []string {
	return []string{
		"database.path",
		"cipher.work_factor",
		"allocation.vpn_prefix_v4", "allocation.vpn_prefix_v6",
	}
}

// IsValidKey returns true if the key is a valid configuration key.
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys(), key)
}

// Get returns the value of a configuration key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "database.path":
		return c.Database.Path, nil
	case "cipher.work_factor":
		return strconv.Itoa(c.WorkFactor()), nil
	case "allocation.vpn_prefix_v4":
		return strconv.Itoa(c.VpnPrefixV4()), nil
	case "allocation.vpn_prefix_v6":
		return strconv.Itoa(c.VpnPrefixV6()), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// intInRange parses value and checks it against [lo, hi].
func intInRange(key, value string, lo, hi int) (*int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < lo || n > hi {
		return nil, fmt.Errorf("%w: %s must be an integer between %d and %d", ErrInvalidValue, key, lo, hi)
	}
	return &n, nil
}

// Set sets the value of a configuration key.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "database.path":
		c.Database.Path = value
	case "cipher.work_factor":
		c.Cipher.WorkFactor, err = intInRange(key, value, cipher.MinWorkFactor, cipher.MaxWorkFactor)
	case "allocation.vpn_prefix_v4":
		c.Allocation.VpnPrefixV4, err = intInRange(key, value, MinVpnPrefixV4, MaxVpnPrefixV4)
	case "allocation.vpn_prefix_v6":
		c.Allocation.VpnPrefixV6, err = intInRange(key, value, MinVpnPrefixV6, MaxVpnPrefixV6)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return err
}

// All returns all configuration values as a map.
func (c *Config) All() map[string]string {
	return map[string]string{
		"database.path":            c.Database.Path,
		"cipher.work_factor":       strconv.Itoa(c.WorkFactor()),
		"allocation.vpn_prefix_v4": strconv.Itoa(c.VpnPrefixV4()),
		"allocation.vpn_prefix_v6": strconv.Itoa(c.VpnPrefixV6()),
	}
}

// IsSet returns true if the key has an explicit value (not just defaults).
func (c *Config) IsSet(key string) bool {
	switch key {
	case "database.path":
		return c.Database.Path != ""
	case "cipher.work_factor":
		return c.Cipher.WorkFactor != nil
	case "allocation.vpn_prefix_v4":
		return c.Allocation.VpnPrefixV4 != nil
	case "allocation.vpn_prefix_v6":
		return c.Allocation.VpnPrefixV6 != nil
	default:
		return false
	}
}
