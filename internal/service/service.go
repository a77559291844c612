// Package service defines the shared interface for inventory operations.
// Commands and extensions depend on this interface rather than on the
// concrete implementation in package inventory.
package service

import (
	"context"

	"github.com/jpl-au/vpnutils/internal/store"
)

// NetworkSpec describes a network to create.
type NetworkSpec struct {
	Name string
	V4   string // CIDR, required
	V6   string // CIDR, required
}

// NetworkChange lists the fields to change on a network.
type NetworkChange struct {
	NewName *string
	V4      *string
	V6      *string
}

// VpnSpec describes a VPN to create. Empty addresses are allocated from
// the network.
type VpnSpec struct {
	Network string
	Name    string
	V4      string
	V6      string
}

// VpnChange lists the fields to change on a VPN.
type VpnChange struct {
	NewName *string
	V4      *string
	V6      *string
}

// PeerSpec describes a peer to create. Empty addresses are allocated from
// the VPN; empty keys are generated.
type PeerSpec struct {
	Vpn        string
	Name       string
	V4         string
	V6         string
	Endpoint   string
	DNS        string
	Status     string
	PublicKey  string
	PrivateKey string
}

// PeerChange lists the fields to change on a peer. A pointer to "" clears
// Endpoint or DNS.
type PeerChange struct {
	NewName    *string
	V4         *string
	V6         *string
	Endpoint   *string
	DNS        *string
	Status     *string
	PublicKey  *string
	PrivateKey *string
	// RegenerateKeys replaces the key pair with a fresh one.
	RegenerateKeys bool
}

// Service defines all inventory operations. Lookups of a missing record
// return an error wrapping store.ErrNotFound.
//
// Example:
//
//	svc := inventory.New(st, inventory.Options{})
//	defer svc.Close()
//	n, err := svc.AddNetwork(ctx, service.NetworkSpec{Name: "corp", V4: "10.0.0.0/8", V6: "fd00::/8"})
type Service interface {
	// Close releases the underlying store handle.
	Close() error

	ListNetworks(ctx context.Context) ([]store.Network, error)
	GetNetwork(ctx context.Context, name string) (*store.Network, error)
	AddNetwork(ctx context.Context, spec NetworkSpec) (*store.Network, error)
	// UpdateNetwork rejects prefix changes that would leave a VPN outside
	// the network.
	UpdateNetwork(ctx context.Context, name string, ch NetworkChange) (*store.Network, error)
	// RemoveNetwork fails with store.ErrHasChildren while VPNs remain,
	// unless cascade is set.
	RemoveNetwork(ctx context.Context, name string, cascade bool) (store.Removal, error)

	// ListVpns lists every VPN, or those of one network.
	ListVpns(ctx context.Context, network string) ([]store.Vpn, error)
	GetVpn(ctx context.Context, name string) (*store.Vpn, error)
	AddVpn(ctx context.Context, spec VpnSpec) (*store.Vpn, error)
	UpdateVpn(ctx context.Context, name string, ch VpnChange) (*store.Vpn, error)
	RemoveVpn(ctx context.Context, name string, cascade bool) (store.Removal, error)

	ListPeers(ctx context.Context, vpn string) ([]store.Peer, error)
	GetPeer(ctx context.Context, vpn, name string) (*store.Peer, error)
	AddPeer(ctx context.Context, spec PeerSpec) (*store.Peer, error)
	UpdatePeer(ctx context.Context, vpn, name string, ch PeerChange) (*store.Peer, error)
	// RemovePeer also removes the peer's allowed IPs and preshared keys.
	RemovePeer(ctx context.Context, vpn, name string) (store.Removal, error)

	// ListAllowedIPs lists one peer's routes, or the whole VPN's when peer
	// is empty.
	ListAllowedIPs(ctx context.Context, vpn, peer string) ([]store.AllowedIP, error)
	AddAllowedIP(ctx context.Context, vpn, peer, address string) (*store.AllowedIP, error)
	RemoveAllowedIP(ctx context.Context, vpn, peer, address string) error

	ListPresharedKeys(ctx context.Context, vpn string) ([]store.PresharedKey, error)
	// SetPresharedKey stores key for the pair, generating one when key is
	// empty.
	SetPresharedKey(ctx context.Context, vpn, peer1, peer2, key string) (*store.PresharedKey, error)
	RemovePresharedKey(ctx context.Context, vpn, peer1, peer2 string) error

	Stats(ctx context.Context) (*store.Stats, error)
	// Dump renders the inventory as text with secrets fingerprinted.
	Dump(ctx context.Context) (string, error)
}
