package cmd

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type networkJSON struct {
	Name      string `json:"name"`
	AddressV4 string `json:"address_v4"`
	AddressV6 string `json:"address_v6"`
	Vpns      []struct {
		Name string `json:"name"`
	} `json:"vpns"`
}

type peerJSON struct {
	Vpn           string   `json:"vpn"`
	Name          string   `json:"name"`
	PublicKey     string   `json:"public_key"`
	AddressV4     string   `json:"address_v4"`
	AddressV6     string   `json:"address_v6"`
	Endpoint      string   `json:"endpoint"`
	DNS           string   `json:"dns"`
	Status        string   `json:"status"`
	HasPrivateKey bool     `json:"has_private_key"`
	AllowedIPs    []string `json:"allowed_ips"`
}

func TestNetwork(t *testing.T) {
	env := newTestEnv(t)

	env.contains(env.run("network", "add", "corp", "-4", "10.0.0.0/8", "-6", "fd00::/8"), "added network corp (10.0.0.0/8, fd00::/8)")

	t.Run("list", func(t *testing.T) {
		out := env.run("network", "list")
		env.contains(out, "NAME")
		env.contains(out, "corp")

		var ns []networkJSON
		env.runJSON(&ns, "network", "list")
		require.Len(t, ns, 1)
		assert.Equal(t, "10.0.0.0/8", ns[0].AddressV4)
	})

	t.Run("both prefixes required", func(t *testing.T) {
		_, err := env.runErr("network", "add", "lab", "-4", "172.16.0.0/12")
		assert.Error(t, err)
	})

	t.Run("invalid prefix", func(t *testing.T) {
		out, err := env.runErr("network", "add", "lab", "-4", "172.16.0.1/12", "-6", "fd01::/16")
		assert.Error(t, err)
		env.contains(out, "invalid address")
	})

	t.Run("duplicate", func(t *testing.T) {
		out, err := env.runErr("network", "add", "corp", "-4", "172.16.0.0/12", "-6", "fd01::/16")
		assert.Error(t, err)
		env.contains(out, "already exists")
	})

	t.Run("show", func(t *testing.T) {
		env.run("vpn", "add", "corp", "office")
		out := env.run("network", "show", "corp")
		env.contains(out, "# Network `corp`")
		env.contains(out, "office")

		var n networkJSON
		env.runJSON(&n, "network", "show", "corp")
		require.Len(t, n.Vpns, 1)
		assert.Equal(t, "office", n.Vpns[0].Name)
	})

	t.Run("update", func(t *testing.T) {
		_, err := env.runErr("network", "update", "corp")
		assert.Error(t, err)

		env.contains(env.run("network", "update", "corp", "--new-name", "hq"), "updated network hq")
		env.contains(env.run("vpn", "list", "hq"), "office")

		out, err := env.runErr("network", "update", "hq", "-4", "192.168.0.0/16")
		assert.Error(t, err)
		env.contains(out, "office")
	})

	t.Run("remove", func(t *testing.T) {
		out, err := env.runErr("network", "remove", "hq")
		assert.Error(t, err)
		env.contains(out, "--cascade")

		env.equals(env.run("network", "remove", "hq", "--cascade"), "removed 1 network, 1 vpn")
		env.equals(env.run("network", "list"), "")
	})
}

func TestVpn(t *testing.T) {
	env := newTestEnv(t)
	env.run("network", "add", "corp", "-4", "10.0.0.0/8", "-6", "fd00::/8")
	env.run("network", "add", "lab", "-4", "172.16.0.0/12", "-6", "fd01::/16")

	env.contains(env.run("vpn", "add", "corp", "office"), "(10.0.0.0/24, fd00::/64)")
	env.contains(env.run("vpn", "add", "corp", "branch"), "(10.0.1.0/24, fd00:0:0:1::/64)")
	env.contains(env.run("vpn", "add", "lab", "bench", "-4", "172.16.8.0/22"), "172.16.8.0/22")

	t.Run("list", func(t *testing.T) {
		out := env.run("vpn", "list")
		for _, name := range []string{"office", "branch", "bench"} {
			env.contains(out, name)
		}
		out = env.run("vpn", "list", "lab")
		env.contains(out, "bench")
		assert.NotContains(t, out, "office")

		_, err := env.runErr("vpn", "list", "nope")
		assert.Error(t, err)
	})

	t.Run("overlap", func(t *testing.T) {
		out, err := env.runErr("vpn", "add", "corp", "clash", "-4", "10.0.1.128/25")
		assert.Error(t, err)
		env.contains(out, "overlaps")
	})

	t.Run("update", func(t *testing.T) {
		env.contains(env.run("vpn", "update", "branch", "-n", "remote", "-4", "10.0.2.0/24"), "updated vpn remote (10.0.2.0/24")
	})

	t.Run("remove", func(t *testing.T) {
		env.run("peer", "add", "office", "alice")
		_, err := env.runErr("vpn", "remove", "office")
		assert.Error(t, err)
		env.equals(env.run("vpn", "rm", "office", "--cascade"), "removed 1 vpn, 1 peer")
		env.equals(env.run("vpn", "remove", "remote"), "removed 1 vpn")
	})
}

func TestPeer(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	t.Run("list never shows private keys", func(t *testing.T) {
		out := env.run("peer", "list", "office")
		env.contains(out, "alice")
		env.contains(out, "10.0.0.2")
		assert.NotContains(t, out, "private")

		var ps []peerJSON
		env.runJSON(&ps, "peer", "list", "office")
		require.Len(t, ps, 2)
		assert.Equal(t, "fd00::1", ps[0].AddressV6)
		assert.Equal(t, "active", ps[0].Status)
	})

	t.Run("add with fields", func(t *testing.T) {
		var p peerJSON
		env.runJSON(&p, "peer", "add", "office", "gw",
			"--endpoint", "vpn.example.com:51820", "--dns", "10.0.0.1", "-s", "disabled", "-4", "10.0.0.200")
		assert.Equal(t, "10.0.0.200", p.AddressV4)
		assert.Equal(t, "vpn.example.com:51820", p.Endpoint)
		assert.Equal(t, "disabled", p.Status)
		assert.Len(t, p.PublicKey, 44)
	})

	t.Run("add with public key only", func(t *testing.T) {
		var alice peerJSON
		env.runJSON(&alice, "peer", "show", "office", "alice")
		env.run("peer", "add", "office", "phone", "--pubkey", alice.PublicKey)
		_, err := env.runErr("peer", "add", "office", "phone2", "--pubkey", "bad")
		assert.Error(t, err)

		var phone peerJSON
		env.runJSON(&phone, "peer", "show", "office", "phone")
		assert.False(t, phone.HasPrivateKey)
		assert.True(t, alice.HasPrivateKey)
	})

	t.Run("bad inputs", func(t *testing.T) {
		for _, args := range [][]string{
			{"peer", "add", "office", "x", "-s", "paused"},
			{"peer", "add", "office", "x", "--endpoint", "nohost"},
			{"peer", "add", "office", "x", "-4", "192.168.0.1"},
			{"peer", "add", "office", "alice"},
			{"peer", "add", "nope", "x"},
		} {
			_, err := env.runErr(args...)
			assert.Error(t, err, strings.Join(args, " "))
		}
	})

	t.Run("update", func(t *testing.T) {
		var before, after peerJSON
		env.runJSON(&before, "peer", "show", "office", "bob")
		out := env.run("peer", "update", "office", "bob", "--regenerate-keys")
		env.contains(out, "public key:")
		env.runJSON(&after, "peer", "show", "office", "bob")
		assert.NotEqual(t, before.PublicKey, after.PublicKey)

		env.run("peer", "update", "office", "bob", "-e", "1.2.3.4:51820")
		env.run("peer", "update", "office", "bob", "-e", "")
		env.runJSON(&after, "peer", "show", "office", "bob")
		assert.Empty(t, after.Endpoint)

		_, err := env.runErr("peer", "update", "office", "bob")
		assert.Error(t, err)
	})

	t.Run("show", func(t *testing.T) {
		out := env.run("peer", "show", "office", "alice")
		env.contains(out, "# Peer `alice` in `office`")
	})

	t.Run("remove", func(t *testing.T) {
		env.run("allowed-ip", "add", "office", "phone", "192.168.9.0/24")
		env.run("psk", "set", "office", "phone", "alice")
		env.equals(env.run("peer", "remove", "office", "phone"), "removed 1 peer, 1 allowed ip, 1 preshared key")
	})
}

func TestAllowedIP(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	env.contains(env.run("allowed-ip", "add", "office", "alice", "192.168.1.7"), "added 192.168.1.7/32 to office/alice")
	env.run("allowed-ip", "add", "office", "bob", "192.168.2.0/24")

	out := env.run("allowed-ip", "list", "office")
	env.contains(out, "192.168.1.7/32")
	env.contains(out, "192.168.2.0/24")
	assert.NotContains(t, env.run("allowed-ip", "list", "office", "alice"), "192.168.2.0/24")

	_, err := env.runErr("allowed-ip", "add", "office", "alice", "192.168.1.7/32")
	assert.Error(t, err)
	_, err = env.runErr("allowed-ip", "add", "office", "alice", "192.168.3.1/24")
	assert.Error(t, err)

	env.equals(env.run("allowed-ip", "remove", "office", "alice", "192.168.1.7"), "removed 1 allowed ip")
	_, err = env.runErr("allowed-ip", "remove", "office", "alice", "192.168.1.7")
	assert.Error(t, err)

	var show peerJSON
	env.runJSON(&show, "peer", "show", "office", "bob")
	assert.Equal(t, []string{"192.168.2.0/24"}, show.AllowedIPs)
}

func TestPSK(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	out := env.run("psk", "set", "office", "bob", "alice")
	env.contains(out, "for alice <-> bob")

	var ks []struct {
		Peer1       string `json:"peer1"`
		Peer2       string `json:"peer2"`
		Fingerprint string `json:"fingerprint"`
		Key         string `json:"key"`
	}
	env.runJSON(&ks, "psk", "list", "office")
	require.Len(t, ks, 1)
	assert.Equal(t, "alice", ks[0].Peer1)
	assert.NotEmpty(t, ks[0].Fingerprint)
	assert.Empty(t, ks[0].Key)

	_, err := env.runErr("psk", "set", "office", "alice", "alice")
	assert.Error(t, err)
	_, err = env.runErr("psk", "set", "office", "alice", "bob", "--key", "nope")
	assert.Error(t, err)

	env.equals(env.run("psk", "remove", "office", "alice", "bob"), "removed 1 preshared key")
	_, err = env.runErr("psk", "remove", "office", "alice", "bob")
	assert.Error(t, err)
}

func TestNoPlaintextLeftBehind(t *testing.T) {
	env := newTestEnv(t)
	env.seed()

	entries, err := os.ReadDir(env.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{".vpnutils", testStore}, names)
}
