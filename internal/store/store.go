// Package store defines the inventory tables kept inside the encrypted
// database and the SQLite implementation that reads and writes them.
// Consumers depend on the Store interface; SQLiteStore is the only
// implementation and is handed out by vault.Connect.
package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Network is a routing domain. Its prefixes are the ranges VPN subnets are
// carved from.
type Network struct {
	Name      string `json:"name"`
	AddressV4 string `json:"address_v4"`
	AddressV6 string `json:"address_v6"`
}

// Vpn is a subnet of a network. IndexInNetwork is the allocation slot used
// to derive the subnet; nil when the subnet was set explicitly.
type Vpn struct {
	Name           string `json:"name"`
	NetworkName    string `json:"network"`
	IndexInNetwork *int64 `json:"index_in_network,omitempty"`
	AddressV4      string `json:"address_v4"`
	AddressV6      string `json:"address_v6"`
}

// Status is a peer status. Values are restricted to the peer_statuses table.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Statuses returns every valid peer status in table order.
func Statuses() []Status {
	return []Status{StatusActive, StatusDisabled}
}

// ParseStatus validates s against the status enumeration.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses() {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: active, disabled)", ErrInvalidStatus, s)
}

// Peer is a WireGuard peer inside a VPN, keyed by (VpnName, Name).
type Peer struct {
	VpnName    string `json:"vpn"`
	Name       string `json:"name"`
	IndexInVpn *int64 `json:"index_in_vpn,omitempty"`
	PrivateKey string `json:"-"`
	PublicKey  string `json:"public_key"`
	AddressV4  string `json:"address_v4"`
	AddressV6  string `json:"address_v6"`
	Endpoint   string `json:"endpoint,omitempty"` // empty means NULL
	DNS        string `json:"dns,omitempty"`      // empty means NULL
	Status     Status `json:"status"`
}

// AllowedIP is an extra route announced for a peer. The key is the full
// triple; there is no single-column owner, so ownership is checked in
// application code.
type AllowedIP struct {
	PeerVpn  string `json:"vpn"`
	PeerName string `json:"peer"`
	Address  string `json:"address"`
}

// PresharedKey pairs two peers of one VPN. The pair is symmetric and is
// stored with Peer1 < Peer2.
type PresharedKey struct {
	Vpn   string `json:"vpn"`
	Peer1 string `json:"peer1"`
	Peer2 string `json:"peer2"`
	Key   string `json:"-"`
}

// Canonical returns k with the peer names ordered.
func (k PresharedKey) Canonical() PresharedKey {
	if k.Peer2 < k.Peer1 {
		k.Peer1, k.Peer2 = k.Peer2, k.Peer1
	}
	return k
}

// NetworkUpdate lists the fields to change. Nil fields are left alone.
type NetworkUpdate struct {
	NewName   *string
	AddressV4 *string
	AddressV6 *string
}

// VpnUpdate lists the fields to change. Nil fields are left alone.
type VpnUpdate struct {
	NewName   *string
	AddressV4 *string
	AddressV6 *string
}

// PeerUpdate lists the fields to change. Nil fields are left alone; a
// pointer to "" clears the nullable Endpoint and DNS columns.
type PeerUpdate struct {
	NewName    *string
	Endpoint   *string
	DNS        *string
	Status     *Status
	PublicKey  *string
	PrivateKey *string
	AddressV4  *string
	AddressV6  *string
}

// RemoveOptions configures network and VPN removal.
type RemoveOptions struct {
	// Cascade deletes owned rows instead of failing with ErrHasChildren.
	Cascade bool
}

// Removal counts the rows deleted by a remove operation.
type Removal struct {
	Networks      int64 `json:"networks,omitempty"`
	Vpns          int64 `json:"vpns,omitempty"`
	Peers         int64 `json:"peers,omitempty"`
	AllowedIPs    int64 `json:"allowed_ips,omitempty"`
	PresharedKeys int64 `json:"preshared_keys,omitempty"`
}

// Total is the number of rows removed across all tables.
func (r Removal) Total() int64 {
	return r.Networks + r.Vpns + r.Peers + r.AllowedIPs + r.PresharedKeys
}

func (r *Removal) add(o Removal) {
	r.Networks += o.Networks
	r.Vpns += o.Vpns
	r.Peers += o.Peers
	r.AllowedIPs += o.AllowedIPs
	r.PresharedKeys += o.PresharedKeys
}

// Stats summarises table sizes for status output.
type Stats struct {
	SchemaVersion int   `json:"schema_version"`
	Networks      int64 `json:"networks"`
	Vpns          int64 `json:"vpns"`
	Peers         int64 `json:"peers"`
	ActivePeers   int64 `json:"active_peers"`
	AllowedIPs    int64 `json:"allowed_ips"`
	PresharedKeys int64 `json:"preshared_keys"`
}

// MarshalJSON encodes a value with indentation for human-readable CLI output.
func MarshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
