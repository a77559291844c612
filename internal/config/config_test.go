package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := &Config{}
	assert.Equal(t, "", c.DatabasePath())
	assert.Equal(t, 18, c.WorkFactor())
	assert.Equal(t, 24, c.VpnPrefixV4())
	assert.Equal(t, 64, c.VpnPrefixV6())
	for _, k := range ValidKeys() {
		assert.False(t, c.IsSet(k), k)
	}
}

func TestSetGet(t *testing.T) {
	c := &Config{}
	require.NoError(t, c.Set("database.path", "/srv/wg.db"))
	require.NoError(t, c.Set("cipher.work_factor", "12"))
	require.NoError(t, c.Set("allocation.vpn_prefix_v4", "16"))
	require.NoError(t, c.Set("allocation.vpn_prefix_v6", "48"))

	all := c.All()
	assert.Equal(t, "/srv/wg.db", all["database.path"])
	assert.Equal(t, "12", all["cipher.work_factor"])
	assert.Equal(t, "16", all["allocation.vpn_prefix_v4"])
	assert.Equal(t, "48", all["allocation.vpn_prefix_v6"])
	assert.True(t, c.IsSet("cipher.work_factor"))

	v, err := c.Get("allocation.vpn_prefix_v6")
	require.NoError(t, err)
	assert.Equal(t, "48", v)
}

func TestSet_Invalid(t *testing.T) {
	c := &Config{}
	tests := []struct{ key, value string }{
		{"cipher.work_factor", "9"},
		{"cipher.work_factor", "23"},
		{"cipher.work_factor", "abc"},
		{"allocation.vpn_prefix_v4", "31"},
		{"allocation.vpn_prefix_v6", "0"},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, c.Set(tt.key, tt.value), ErrInvalidValue, "%s=%s", tt.key, tt.value)
	}
	assert.Nil(t, c.Cipher.WorkFactor)

	assert.ErrorIs(t, c.Set("limits.max_path", "1"), ErrUnknownKey)
	_, err := c.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestLoadScope_LocalWins(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", filepath.Join(dir, "home"))

	global := &Config{}
	require.NoError(t, global.Set("cipher.work_factor", "14"))
	require.NoError(t, global.SaveScope(ScopeGlobal))

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ScopeGlobal, c.Scope())
	assert.Equal(t, 14, c.WorkFactor())

	local := &Config{}
	require.NoError(t, local.Set("cipher.work_factor", "11"))
	require.NoError(t, local.SaveScope(ScopeLocal))

	c, err = Load()
	require.NoError(t, err)
	assert.Equal(t, ScopeLocal, c.Scope())
	assert.Equal(t, 11, c.WorkFactor())

	info, err := os.Stat(LocalPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadScope_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(".vpnutils", 0700))

	require.NoError(t, os.WriteFile(LocalPath(), []byte("cipher: ["), 0600))
	_, err := LoadScope(ScopeLocal)
	assert.ErrorContains(t, err, "malformed config file")

	require.NoError(t, os.WriteFile(LocalPath(), []byte("cipher:\n  work_factor: 40\n"), 0600))
	_, err = LoadScope(ScopeLocal)
	assert.ErrorIs(t, err, ErrInvalidValue)
}
