package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	t.Run("creates an encrypted store", func(t *testing.T) {
		env := newTestEnv(t)
		data, err := os.ReadFile(env.storePath())
		require.NoError(t, err)
		assert.Contains(t, string(data), "age-encryption.org/v1")
		assert.NotContains(t, string(data), "SQLite format 3")
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		env := newTestEnv(t)
		before, err := os.ReadFile(env.storePath())
		require.NoError(t, err)

		out, err := env.runErr("create")
		assert.Error(t, err)
		env.contains(out, "already exists")

		after, err := os.ReadFile(env.storePath())
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("needs a store path", func(t *testing.T) {
		env := newBareEnv(t)
		env.store = ""

		out, err := env.runErr("create")
		assert.Error(t, err)
		env.contains(out, "no store given")
	})
}

func TestOpen_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.password = "wrong"

	out, err := env.runErr("status")
	assert.Error(t, err)
	env.contains(out, "invalid password or corrupt file")
}

func TestOpen_MissingStore(t *testing.T) {
	env := newBareEnv(t)

	out, err := env.runErr("status")
	assert.Error(t, err)
	env.contains(out, "vpnutils create")
	assert.NoFileExists(t, env.storePath())
}

func TestOpen_DatabaseFlag(t *testing.T) {
	env := newTestEnv(t)
	env.run("-d", "other.vpn", "create")
	env.run("-d", "other.vpn", "network", "add", "lab", "-4", "172.16.0.0/12", "-6", "fd01::/16")

	env.contains(env.run("-d", "other.vpn", "network", "list"), "lab")
	assert.NotContains(t, env.run("network", "list"), "lab")
}

func TestOneShotSavesChanges(t *testing.T) {
	env := newTestEnv(t)
	before, err := os.ReadFile(env.storePath())
	require.NoError(t, err)

	env.run("network", "add", "corp", "-4", "10.0.0.0/8", "-6", "fd00::/8")

	after, err := os.ReadFile(env.storePath())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	env.contains(env.run("network", "list"), "corp")
}

func TestReadOnlyCommandKeepsFile(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	before, err := os.ReadFile(env.storePath())
	require.NoError(t, err)

	env.run("network", "list")
	env.run("status")

	after, err := os.ReadFile(env.storePath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFailedCommandLeavesStore(t *testing.T) {
	env := newTestEnv(t)
	env.seed()
	before, err := os.ReadFile(env.storePath())
	require.NoError(t, err)

	_, err = env.runErr("vpn", "add", "corp", "clash", "-4", "10.0.0.0/16")
	assert.Error(t, err)

	after, err := os.ReadFile(env.storePath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out := env.run("status")
	env.contains(out, "Networks:       1")
	env.contains(out, "Peers:          2 (2 active)")
	env.contains(out, "Unsaved changes: no")

	var st struct {
		Path    string `json:"path"`
		Unsaved bool   `json:"unsaved"`
		Peers   int64  `json:"peers"`
		Schema  int    `json:"schema_version"`
	}
	env.runJSON(&st, "status")
	assert.Equal(t, testStore, st.Path)
	assert.False(t, st.Unsaved)
	assert.Equal(t, int64(2), st.Peers)
	assert.Positive(t, st.Schema)
}

func TestPath(t *testing.T) {
	env := newTestEnv(t)
	env.equals(env.run("path"), testStore)
}

func TestVersionNeedsNoStore(t *testing.T) {
	env := newBareEnv(t)
	out := env.run("version")
	env.contains(out, "Build Tag:")
	env.contains(out, "Schema:")
}

func TestGuide(t *testing.T) {
	env := newBareEnv(t)
	env.contains(env.run("guide"), "# vpnutils")
	env.contains(env.run("guide", "keys"), "Fingerprints")

	out, err := env.runErr("guide", "nope")
	assert.Error(t, err)
	env.contains(out, "allocation")
}

func TestConfig(t *testing.T) {
	env := newBareEnv(t)

	env.contains(env.run("config", "allocation.vpn_prefix_v4", "26"), "allocation.vpn_prefix_v4 = 26 (local)")
	env.equals(env.run("config", "allocation.vpn_prefix_v4"), "26")
	env.contains(env.run("config"), "cipher.work_factor: 10")

	_, err := env.runErr("config", "allocation.vpn_prefix_v4", "31")
	assert.Error(t, err)
	_, err = env.runErr("config", "nope", "1")
	assert.Error(t, err)

	// the configured size applies to allocation
	env.run("create")
	env.run("network", "add", "corp", "-4", "10.0.0.0/8", "-6", "fd00::/8")
	env.run("vpn", "add", "corp", "a")
	env.contains(env.run("vpn", "add", "corp", "b"), "10.0.0.64/26")
}

func TestJSONErrors(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.runErr("network", "show", "nope", "-o", "json")
	assert.Error(t, err)
	env.contains(out, `{"error":`)
	assert.NotContains(t, out, "Error:")
}

func TestAuditLog(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	var rs []struct {
		Source  string `json:"source"`
		Action  string `json:"action"`
		Success bool   `json:"success"`
		Detail  string `json:"detail"`
	}
	env.runJSON(&rs, "log", "--limit", "0")
	require.NotEmpty(t, rs)

	var sources []string
	for _, r := range rs {
		sources = append(sources, r.Source)
		assert.NotContains(t, r.Detail, "corp")
	}
	assert.Contains(t, sources, "vault:create")
	assert.Contains(t, sources, "network")
	assert.Contains(t, sources, "vault:save")

	t.Run("other store is separate", func(t *testing.T) {
		out := env.run("log", "-d", "elsewhere.vpn")
		assert.Empty(t, strings.TrimSpace(out))
		assert.NoFileExists(t, filepath.Join(env.dir, "elsewhere.vpn"))
	})

	t.Run("prune", func(t *testing.T) {
		env.contains(env.run("log", "prune", "--older-than", "1d", "--dry-run"), "would prune 0 entries")
		_, err := env.runErr("log", "prune")
		assert.Error(t, err)
		_, err = env.runErr("log", "prune", "--older-than", "soon")
		assert.Error(t, err)
	})
}

func TestVersionFlag(t *testing.T) {
	env := newBareEnv(t)
	env.contains(env.run("--version"), "vpnutils version dev")
}
