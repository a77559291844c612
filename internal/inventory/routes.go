package inventory

import (
	"context"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/store"
	"github.com/jpl-au/vpnutils/internal/validate"
	"github.com/jpl-au/vpnutils/internal/wgkey"
)

// ListAllowedIPs lists one peer's allowed IPs, or the whole VPN's.
func (s *Service) ListAllowedIPs(ctx context.Context, vpn, peer string) ([]store.AllowedIP, error) {
	return s.store.ListAllowedIPs(ctx, vpn, peer)
}

// AddAllowedIP attaches a route to a peer. address is stored canonically,
// so "10.1.0.7" becomes "10.1.0.7/32".
func (s *Service) AddAllowedIP(ctx context.Context, vpn, peer, address string) (*store.AllowedIP, error) {
	addr, err := validate.AllowedIP(address)
	if err != nil {
		return nil, err
	}
	a := store.AllowedIP{PeerVpn: vpn, PeerName: peer, Address: addr}
	if err := s.store.AddAllowedIP(ctx, a); err != nil {
		return nil, err
	}
	s.fireEvent(extension.EventAllowedIPAdd, 1)
	return &a, nil
}

// RemoveAllowedIP detaches a route. address is matched canonically.
func (s *Service) RemoveAllowedIP(ctx context.Context, vpn, peer, address string) error {
	addr, err := validate.AllowedIP(address)
	if err != nil {
		return err
	}
	if err := s.store.RemoveAllowedIP(ctx, store.AllowedIP{PeerVpn: vpn, PeerName: peer, Address: addr}); err != nil {
		return err
	}
	s.fireEvent(extension.EventAllowedIPRemove, 1)
	return nil
}

// ListPresharedKeys lists the keyed pairs of a VPN.
func (s *Service) ListPresharedKeys(ctx context.Context, vpn string) ([]store.PresharedKey, error) {
	return s.store.ListPresharedKeys(ctx, vpn)
}

// SetPresharedKey stores a key for a peer pair, generating one when key
// is empty. The pair is returned in canonical order.
func (s *Service) SetPresharedKey(ctx context.Context, vpn, peer1, peer2, key string) (*store.PresharedKey, error) {
	var k wgkey.Key
	var err error
	if key == "" {
		k, err = wgkey.NewPreshared()
	} else {
		k, err = wgkey.Parse(key)
	}
	if err != nil {
		return nil, err
	}
	psk := store.PresharedKey{Vpn: vpn, Peer1: peer1, Peer2: peer2, Key: k.String()}
	if err := s.store.SetPresharedKey(ctx, psk); err != nil {
		return nil, err
	}
	s.fireEvent(extension.EventPSKSet, 1)
	psk = psk.Canonical()
	return &psk, nil
}

// RemovePresharedKey deletes the key of a pair given in either order.
func (s *Service) RemovePresharedKey(ctx context.Context, vpn, peer1, peer2 string) error {
	if err := s.store.RemovePresharedKey(ctx, vpn, peer1, peer2); err != nil {
		return err
	}
	s.fireEvent(extension.EventPSKRemove, 1)
	return nil
}
