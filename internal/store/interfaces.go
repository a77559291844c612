// interfaces.go defines the storage abstraction for the inventory.
//
// The interfaces are split per table so callers only depend on what they
// use. Every mutating operation that touches rows owned through a
// composite key (allowed IPs, preshared keys) performs the ownership
// checks itself; SQLite foreign keys only cover the single-column
// relations (vpn -> network, peer -> vpn, peer -> status).

package store

import (
	"context"
	"database/sql"
)

// Networks manages the networks table.
type Networks interface {
	ListNetworks(ctx context.Context) ([]Network, error)
	GetNetwork(ctx context.Context, name string) (*Network, error)
	AddNetwork(ctx context.Context, n Network) error
	UpdateNetwork(ctx context.Context, name string, u NetworkUpdate) error
	// RemoveNetwork fails with ErrHasChildren when VPNs still reference the
	// network, unless opts.Cascade is set.
	RemoveNetwork(ctx context.Context, name string, opts RemoveOptions) (Removal, error)
}

// Vpns manages the vpns table.
type Vpns interface {
	// ListVpns returns all VPNs, or those of one network when network is
	// non-empty.
	ListVpns(ctx context.Context, network string) ([]Vpn, error)
	GetVpn(ctx context.Context, name string) (*Vpn, error)
	AddVpn(ctx context.Context, v Vpn) error
	UpdateVpn(ctx context.Context, name string, u VpnUpdate) error
	RemoveVpn(ctx context.Context, name string, opts RemoveOptions) (Removal, error)
}

// Peers manages the peers table.
type Peers interface {
	ListPeers(ctx context.Context, vpn string) ([]Peer, error)
	GetPeer(ctx context.Context, vpn, name string) (*Peer, error)
	AddPeer(ctx context.Context, p Peer) error
	UpdatePeer(ctx context.Context, vpn, name string, u PeerUpdate) error
	// RemovePeer also removes the peer's allowed IPs and preshared keys.
	RemovePeer(ctx context.Context, vpn, name string) (Removal, error)
}

// AllowedIPs manages the allowed_ips table.
type AllowedIPs interface {
	// ListAllowedIPs returns the allowed IPs of one peer, or of every peer in
	// the VPN when peer is empty.
	ListAllowedIPs(ctx context.Context, vpn, peer string) ([]AllowedIP, error)
	AddAllowedIP(ctx context.Context, a AllowedIP) error
	RemoveAllowedIP(ctx context.Context, a AllowedIP) error
}

// PresharedKeys manages the preshared_keys table.
type PresharedKeys interface {
	ListPresharedKeys(ctx context.Context, vpn string) ([]PresharedKey, error)
	GetPresharedKey(ctx context.Context, vpn, peer1, peer2 string) (*PresharedKey, error)
	// SetPresharedKey inserts or replaces the key for the pair.
	SetPresharedKey(ctx context.Context, k PresharedKey) error
	RemovePresharedKey(ctx context.Context, vpn, peer1, peer2 string) error
}

// Maintainer covers connection lifecycle, snapshots and reporting.
type Maintainer interface {
	Close() error
	DB() *sql.DB
	Checkpoint(ctx context.Context) error
	Backup(ctx context.Context, dest string) error
	SchemaVersion(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*Stats, error)
	Dump(ctx context.Context) (string, error)
}

// Store is the full inventory persistence interface.
type Store interface {
	Networks
	Vpns
	Peers
	AllowedIPs
	PresharedKeys
	Maintainer
}
