package inventory_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/config"
	"github.com/jpl-au/vpnutils/internal/inventory"
	"github.com/jpl-au/vpnutils/internal/ipam"
	"github.com/jpl-au/vpnutils/internal/service"
	"github.com/jpl-au/vpnutils/internal/store"
	"github.com/jpl-au/vpnutils/internal/validate"
	"github.com/jpl-au/vpnutils/internal/wgkey"
)

// recorder collects change events fired by the service.
type recorder struct {
	mu     sync.Mutex
	events []extension.ChangeEvent
}

func (r *recorder) Name() string               { return "test-recorder" }
func (r *recorder) Commands() []*cobra.Command { return nil }
func (r *recorder) HandleEvent(_ extension.Context, e extension.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, extension.ChangeEvent{Type: e.EventType(), Rows: e.EventRows()})
	return nil
}

func (r *recorder) take() []extension.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

var events = &recorder{}

func init() {
	extension.Register(events)
}

type nopVault struct{}

func (nopVault) Path() string                   { return "test.vpn" }
func (nopVault) Save(ctx context.Context) error { return nil }

// setupService returns a service over a migrated temporary store.
func setupService(t *testing.T) *inventory.Service {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	_, err = st.Migrate(ctx)
	require.NoError(t, err)

	svc := inventory.New(st, inventory.Options{})
	t.Cleanup(func() { svc.Close() })

	ext, err := extension.NewContext(ctx, svc, nopVault{}, &config.Config{})
	require.NoError(t, err)
	svc.SetExtensionContext(ext)
	events.take()
	return svc
}

func ptr[T any](v T) *T { return &v }

// corp adds the network used by most tests.
func corp(t *testing.T, svc *inventory.Service) {
	t.Helper()
	_, err := svc.AddNetwork(context.Background(), service.NetworkSpec{Name: "corp", V4: "10.0.0.0/8", V6: "fd00::/8"})
	require.NoError(t, err)
}

// --- Networks ---

func TestAddNetwork(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	n, err := svc.AddNetwork(ctx, service.NetworkSpec{Name: "corp", V4: "10.0.0.0/8", V6: "fd00::/8"})
	require.NoError(t, err)
	assert.Equal(t, "corp", n.Name)
	assert.Equal(t, "10.0.0.0/8", n.AddressV4)
	assert.Equal(t, "fd00::/8", n.AddressV6)

	got, err := svc.GetNetwork(ctx, "corp")
	require.NoError(t, err)
	assert.Equal(t, n, got)

	assert.Equal(t, []extension.ChangeEvent{{Type: extension.EventNetworkAdd, Rows: 1}}, events.take())
}

func TestAddNetwork_Invalid(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		spec service.NetworkSpec
		want error
	}{
		{"bad name", service.NetworkSpec{Name: "", V4: "10.0.0.0/8", V6: "fd00::/8"}, validate.ErrInvalidName},
		{"v6 as v4", service.NetworkSpec{Name: "x", V4: "fd00::/8", V6: "fd00::/8"}, validate.ErrInvalidAddress},
		{"v4 as v6", service.NetworkSpec{Name: "x", V4: "10.0.0.0/8", V6: "10.0.0.0/8"}, validate.ErrInvalidAddress},
		{"host bits", service.NetworkSpec{Name: "x", V4: "10.0.0.1/8", V6: "fd00::/8"}, validate.ErrInvalidAddress},
		{"not cidr", service.NetworkSpec{Name: "x", V4: "10.0.0.0", V6: "fd00::/8"}, validate.ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddNetwork(ctx, tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, events.take())
}

func TestAddNetwork_Duplicate(t *testing.T) {
	svc := setupService(t)
	corp(t, svc)

	_, err := svc.AddNetwork(context.Background(), service.NetworkSpec{Name: "corp", V4: "192.168.0.0/16", V6: "fd01::/16"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUpdateNetwork(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)

	t.Run("rename carries vpns", func(t *testing.T) {
		n, err := svc.UpdateNetwork(ctx, "corp", service.NetworkChange{NewName: ptr("hq")})
		require.NoError(t, err)
		assert.Equal(t, "hq", n.Name)

		v, err := svc.GetVpn(ctx, "office")
		require.NoError(t, err)
		assert.Equal(t, "hq", v.NetworkName)
	})

	t.Run("prefix that still holds vpns", func(t *testing.T) {
		n, err := svc.UpdateNetwork(ctx, "hq", service.NetworkChange{V4: ptr("10.0.0.0/16")})
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.0/16", n.AddressV4)
	})

	t.Run("prefix that drops a vpn", func(t *testing.T) {
		_, err := svc.UpdateNetwork(ctx, "hq", service.NetworkChange{V4: ptr("192.168.0.0/16")})
		assert.ErrorIs(t, err, ipam.ErrOutOfRange)

		n, err := svc.GetNetwork(ctx, "hq")
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.0/16", n.AddressV4)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.UpdateNetwork(ctx, "nope", service.NetworkChange{NewName: ptr("x")})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRemoveNetwork(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)
	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "alice"})
	require.NoError(t, err)
	events.take()

	_, err = svc.RemoveNetwork(ctx, "corp", false)
	assert.ErrorIs(t, err, store.ErrHasChildren)
	assert.Empty(t, events.take())

	r, err := svc.RemoveNetwork(ctx, "corp", true)
	require.NoError(t, err)
	assert.Equal(t, store.Removal{Networks: 1, Vpns: 1, Peers: 1}, r)
	assert.Equal(t, []extension.ChangeEvent{{Type: extension.EventNetworkRemove, Rows: 3}}, events.take())

	ns, err := svc.ListNetworks(ctx)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

// --- VPNs ---

func TestAddVpn_Allocates(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)

	a, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/24", a.AddressV4)
	assert.Equal(t, "fd00::/64", a.AddressV6)
	require.NotNil(t, a.IndexInNetwork)
	assert.Equal(t, int64(0), *a.IndexInNetwork)

	b, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.0/24", b.AddressV4)
	assert.Equal(t, "fd00:0:0:1::/64", b.AddressV6)
	assert.Equal(t, int64(1), *b.IndexInNetwork)
}

func TestAddVpn_ConfiguredPrefix(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	_, err = st.Migrate(ctx)
	require.NoError(t, err)
	svc := inventory.New(st, inventory.Options{PrefixV4: 28, PrefixV6: 120})
	defer svc.Close()

	_, err = svc.AddNetwork(ctx, service.NetworkSpec{Name: "corp", V4: "10.0.0.0/24", V6: "fd00::/112"})
	require.NoError(t, err)
	_, err = svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "a"})
	require.NoError(t, err)
	b, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "b"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.16/28", b.AddressV4)
	assert.Equal(t, "fd00::100/120", b.AddressV6)
}

func TestAddVpn_Explicit(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)

	v, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "lab", V4: "10.0.0.0/16"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/16", v.AddressV4)
	assert.Equal(t, "fd00::/64", v.AddressV6)
	assert.Nil(t, v.IndexInNetwork, "index is only kept for fully allocated vpns")

	// the explicit /16 covers slots 0..255
	next, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "next"})
	require.NoError(t, err)
	assert.Equal(t, "10.1.0.0/24", next.AddressV4)

	_, err = svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "clash", V4: "10.0.5.0/24"})
	assert.ErrorIs(t, err, ipam.ErrOverlap)

	_, err = svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "outside", V4: "192.168.0.0/24"})
	assert.ErrorIs(t, err, ipam.ErrOutOfRange)
}

func TestAddVpn_MissingNetwork(t *testing.T) {
	svc := setupService(t)
	_, err := svc.AddVpn(context.Background(), service.VpnSpec{Network: "nope", Name: "a"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListVpns(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddNetwork(ctx, service.NetworkSpec{Name: "lab", V4: "172.16.0.0/12", V6: "fd01::/16"})
	require.NoError(t, err)
	for _, v := range []service.VpnSpec{{Network: "corp", Name: "a"}, {Network: "lab", Name: "b"}} {
		_, err := svc.AddVpn(ctx, v)
		require.NoError(t, err)
	}

	all, err := svc.ListVpns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	lab, err := svc.ListVpns(ctx, "lab")
	require.NoError(t, err)
	require.Len(t, lab, 1)
	assert.Equal(t, "b", lab[0].Name)

	_, err = svc.ListVpns(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateVpn(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "a"})
	require.NoError(t, err)
	_, err = svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "b"})
	require.NoError(t, err)
	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "a", Name: "alice"})
	require.NoError(t, err)

	t.Run("shrink keeps peers", func(t *testing.T) {
		v, err := svc.UpdateVpn(ctx, "a", service.VpnChange{V4: ptr("10.0.0.0/25")})
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.0/25", v.AddressV4)
	})

	t.Run("overlapping sibling", func(t *testing.T) {
		_, err := svc.UpdateVpn(ctx, "a", service.VpnChange{V4: ptr("10.0.0.0/23")})
		assert.ErrorIs(t, err, ipam.ErrOverlap)
	})

	t.Run("would strand a peer", func(t *testing.T) {
		_, err := svc.UpdateVpn(ctx, "a", service.VpnChange{V4: ptr("10.0.9.0/24")})
		assert.ErrorIs(t, err, ipam.ErrOutOfRange)
	})

	t.Run("rename moves peers", func(t *testing.T) {
		v, err := svc.UpdateVpn(ctx, "a", service.VpnChange{NewName: ptr("alpha")})
		require.NoError(t, err)
		assert.Equal(t, "alpha", v.Name)

		ps, err := svc.ListPeers(ctx, "alpha")
		require.NoError(t, err)
		require.Len(t, ps, 1)
		assert.Equal(t, "alice", ps[0].Name)
	})
}

func TestRemoveVpn(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)
	for _, name := range []string{"alice", "bob"} {
		_, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: name})
		require.NoError(t, err)
	}
	_, err = svc.AddAllowedIP(ctx, "office", "alice", "192.168.1.0/24")
	require.NoError(t, err)
	_, err = svc.SetPresharedKey(ctx, "office", "alice", "bob", "")
	require.NoError(t, err)

	_, err = svc.RemoveVpn(ctx, "office", false)
	assert.ErrorIs(t, err, store.ErrHasChildren)

	r, err := svc.RemoveVpn(ctx, "office", true)
	require.NoError(t, err)
	assert.Equal(t, store.Removal{Vpns: 1, Peers: 2, AllowedIPs: 1, PresharedKeys: 1}, r)
}

// --- Peers ---

func TestAddPeer_Generated(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)

	p, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", p.AddressV4)
	assert.Equal(t, "fd00::1", p.AddressV6)
	assert.Equal(t, store.StatusActive, p.Status)
	require.NotNil(t, p.IndexInVpn)
	assert.Equal(t, int64(1), *p.IndexInVpn)

	pair, err := wgkey.PairFromPrivate(p.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, pair.Public, p.PublicKey)

	q, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", q.AddressV4)
	assert.NotEqual(t, p.PrivateKey, q.PrivateKey)
}

func TestAddPeer_Keys(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)

	pair, err := wgkey.NewPair()
	require.NoError(t, err)
	other, err := wgkey.NewPair()
	require.NoError(t, err)

	t.Run("private derives public", func(t *testing.T) {
		p, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "a", PrivateKey: pair.Private})
		require.NoError(t, err)
		assert.Equal(t, pair.Public, p.PublicKey)
		assert.Equal(t, pair.Private, p.PrivateKey)
	})

	t.Run("public only", func(t *testing.T) {
		p, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "b", PublicKey: other.Public})
		require.NoError(t, err)
		assert.Equal(t, other.Public, p.PublicKey)
		assert.Empty(t, p.PrivateKey)
	})

	t.Run("mismatch", func(t *testing.T) {
		_, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "c", PrivateKey: pair.Private, PublicKey: other.Public})
		assert.ErrorIs(t, err, inventory.ErrKeyMismatch)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "d", PublicKey: "not-a-key"})
		assert.ErrorIs(t, err, wgkey.ErrInvalidKey)
	})
}

func TestAddPeer_ExplicitAddress(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)

	p, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "gw", V4: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", p.AddressV4)
	assert.Nil(t, p.IndexInVpn)

	// gw holds host 1 in v4 and was given host 2 in v6
	assert.Equal(t, "fd00::2", p.AddressV6)
	q, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "auto"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.3", q.AddressV4)
	assert.Equal(t, "fd00::3", q.AddressV6)

	tests := []struct {
		name string
		v4   string
		want error
	}{
		{"taken", "10.0.0.3", ipam.ErrOverlap},
		{"outside", "10.0.1.1", ipam.ErrOutOfRange},
		{"network address", "10.0.0.0", ipam.ErrOutOfRange},
		{"broadcast", "10.0.0.255", ipam.ErrOutOfRange},
		{"wrong family", "fd00::9", validate.ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "x", V4: tt.v4})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAddPeer_Fields(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)

	p, err := svc.AddPeer(ctx, service.PeerSpec{
		Vpn: "office", Name: "gw",
		Endpoint: "vpn.example.com:51820",
		DNS:      "10.0.0.1,  example.com",
		Status:   "Disabled",
	})
	require.NoError(t, err)
	assert.Equal(t, "vpn.example.com:51820", p.Endpoint)
	assert.Equal(t, "10.0.0.1, example.com", p.DNS)
	assert.Equal(t, store.StatusDisabled, p.Status)

	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "a", Status: "paused"})
	assert.ErrorIs(t, err, store.ErrInvalidStatus)
	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "a", Endpoint: "nohost"})
	assert.ErrorIs(t, err, validate.ErrInvalidEndpoint)
	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "nope", Name: "a"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePeer(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)
	orig, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "alice", Endpoint: "1.2.3.4:51820"})
	require.NoError(t, err)
	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "bob"})
	require.NoError(t, err)

	t.Run("clear endpoint", func(t *testing.T) {
		p, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{Endpoint: ptr("")})
		require.NoError(t, err)
		assert.Empty(t, p.Endpoint)
	})

	t.Run("status", func(t *testing.T) {
		p, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{Status: ptr("disabled")})
		require.NoError(t, err)
		assert.Equal(t, store.StatusDisabled, p.Status)
	})

	t.Run("address clash", func(t *testing.T) {
		_, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{V4: ptr("10.0.0.2")})
		assert.ErrorIs(t, err, ipam.ErrOverlap)
	})

	t.Run("own address is free", func(t *testing.T) {
		p, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{V4: ptr(orig.AddressV4)})
		require.NoError(t, err)
		assert.Equal(t, orig.AddressV4, p.AddressV4)
	})

	t.Run("regenerate", func(t *testing.T) {
		p, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{RegenerateKeys: true})
		require.NoError(t, err)
		assert.NotEqual(t, orig.PublicKey, p.PublicKey)
		assert.NotEqual(t, orig.PrivateKey, p.PrivateKey)
		pair, err := wgkey.PairFromPrivate(p.PrivateKey)
		require.NoError(t, err)
		assert.Equal(t, pair.Public, p.PublicKey)
	})

	t.Run("regenerate with explicit keys", func(t *testing.T) {
		_, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{RegenerateKeys: true, PublicKey: ptr(orig.PublicKey)})
		assert.ErrorIs(t, err, inventory.ErrKeyConflict)
	})

	t.Run("new public key drops private", func(t *testing.T) {
		pair, err := wgkey.NewPair()
		require.NoError(t, err)
		p, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{PublicKey: ptr(pair.Public)})
		require.NoError(t, err)
		assert.Equal(t, pair.Public, p.PublicKey)
		assert.Empty(t, p.PrivateKey)
	})

	t.Run("private key restores pair", func(t *testing.T) {
		pair, err := wgkey.NewPair()
		require.NoError(t, err)
		p, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{PrivateKey: ptr(pair.Private)})
		require.NoError(t, err)
		assert.Equal(t, pair.Public, p.PublicKey)
		assert.Equal(t, pair.Private, p.PrivateKey)
	})

	t.Run("rename", func(t *testing.T) {
		p, err := svc.UpdatePeer(ctx, "office", "alice", service.PeerChange{NewName: ptr("carol")})
		require.NoError(t, err)
		assert.Equal(t, "carol", p.Name)
		_, err = svc.GetPeer(ctx, "office", "alice")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

// --- Routes and preshared keys ---

func TestAllowedIPs(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)
	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "gw"})
	require.NoError(t, err)
	events.take()

	a, err := svc.AddAllowedIP(ctx, "office", "gw", "192.168.1.7")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.7/32", a.Address)
	_, err = svc.AddAllowedIP(ctx, "office", "gw", "192.168.2.0/24")
	require.NoError(t, err)

	_, err = svc.AddAllowedIP(ctx, "office", "gw", "192.168.1.7/32")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
	_, err = svc.AddAllowedIP(ctx, "office", "gw", "192.168.2.1/24")
	assert.ErrorIs(t, err, validate.ErrInvalidAddress)
	_, err = svc.AddAllowedIP(ctx, "office", "nobody", "192.168.3.0/24")
	assert.ErrorIs(t, err, store.ErrNotFound)

	as, err := svc.ListAllowedIPs(ctx, "office", "gw")
	require.NoError(t, err)
	assert.Len(t, as, 2)

	require.NoError(t, svc.RemoveAllowedIP(ctx, "office", "gw", "192.168.1.7"))
	assert.ErrorIs(t, svc.RemoveAllowedIP(ctx, "office", "gw", "192.168.1.7"), store.ErrNotFound)

	assert.Equal(t, []extension.ChangeEvent{
		{Type: extension.EventAllowedIPAdd, Rows: 1},
		{Type: extension.EventAllowedIPAdd, Rows: 1},
		{Type: extension.EventAllowedIPRemove, Rows: 1},
	}, events.take())
}

func TestPresharedKeys(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)
	for _, name := range []string{"alice", "bob"} {
		_, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: name})
		require.NoError(t, err)
	}

	k, err := svc.SetPresharedKey(ctx, "office", "bob", "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", k.Peer1, "pair is returned in canonical order")
	assert.Equal(t, "bob", k.Peer2)
	_, err = wgkey.Parse(k.Key)
	require.NoError(t, err)

	fixed, err := wgkey.NewPreshared()
	require.NoError(t, err)
	_, err = svc.SetPresharedKey(ctx, "office", "alice", "bob", fixed.String())
	require.NoError(t, err)

	ks, err := svc.ListPresharedKeys(ctx, "office")
	require.NoError(t, err)
	require.Len(t, ks, 1)
	assert.Equal(t, fixed.String(), ks[0].Key)

	_, err = svc.SetPresharedKey(ctx, "office", "alice", "alice", "")
	assert.ErrorIs(t, err, store.ErrSamePeer)
	_, err = svc.SetPresharedKey(ctx, "office", "alice", "bob", "short")
	assert.ErrorIs(t, err, wgkey.ErrInvalidKey)

	require.NoError(t, svc.RemovePresharedKey(ctx, "office", "bob", "alice"))
	assert.ErrorIs(t, svc.RemovePresharedKey(ctx, "office", "alice", "bob"), store.ErrNotFound)
}

func TestDump_HidesSecrets(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)
	p, err := svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "alice"})
	require.NoError(t, err)

	d, err := svc.Dump(ctx)
	require.NoError(t, err)
	assert.Contains(t, d, "alice")
	assert.False(t, strings.Contains(d, p.PrivateKey))
	assert.Contains(t, d, store.Fingerprint(p.PrivateKey))
}

func TestStats(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	corp(t, svc)
	_, err := svc.AddVpn(ctx, service.VpnSpec{Network: "corp", Name: "office"})
	require.NoError(t, err)
	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "a"})
	require.NoError(t, err)
	_, err = svc.AddPeer(ctx, service.PeerSpec{Vpn: "office", Name: "b", Status: "disabled"})
	require.NoError(t, err)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Networks)
	assert.Equal(t, int64(1), st.Vpns)
	assert.Equal(t, int64(2), st.Peers)
	assert.Equal(t, int64(1), st.ActivePeers)
	assert.Positive(t, st.SchemaVersion)
}
