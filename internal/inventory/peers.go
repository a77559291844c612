package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/ipam"
	"github.com/jpl-au/vpnutils/internal/service"
	"github.com/jpl-au/vpnutils/internal/store"
	"github.com/jpl-au/vpnutils/internal/validate"
	"github.com/jpl-au/vpnutils/internal/wgkey"
)

var (
	// ErrKeyMismatch is returned when a supplied public key does not
	// belong to the supplied private key.
	ErrKeyMismatch = errors.New("public key does not match private key")
	// ErrKeyConflict is returned when key regeneration is combined with
	// explicit keys.
	ErrKeyConflict = errors.New("cannot regenerate keys and set them explicitly")
)

// ListPeers returns the peers of a VPN.
func (s *Service) ListPeers(ctx context.Context, vpn string) ([]store.Peer, error) {
	return s.store.ListPeers(ctx, vpn)
}

// GetPeer returns one peer.
func (s *Service) GetPeer(ctx context.Context, vpn, name string) (*store.Peer, error) {
	return s.store.GetPeer(ctx, vpn, name)
}

// vpnScope is a VPN's parsed subnets and the peer addresses already used.
type vpnScope struct {
	v4, v6  netip.Prefix
	indexes []int64
	taken4  []netip.Addr
	taken6  []netip.Addr
}

func (s *Service) scope(ctx context.Context, vpn, skip string) (vpnScope, error) {
	v, err := s.store.GetVpn(ctx, vpn)
	if err != nil {
		return vpnScope{}, err
	}
	var sc vpnScope
	if sc.v4, err = parsePrefix(v.AddressV4, 4); err != nil {
		return vpnScope{}, fmt.Errorf("vpn %q: %w", vpn, err)
	}
	if sc.v6, err = parsePrefix(v.AddressV6, 6); err != nil {
		return vpnScope{}, fmt.Errorf("vpn %q: %w", vpn, err)
	}
	peers, err := s.store.ListPeers(ctx, vpn)
	if err != nil {
		return vpnScope{}, err
	}
	for _, p := range peers {
		if p.Name == skip {
			continue
		}
		if p.IndexInVpn != nil {
			sc.indexes = append(sc.indexes, *p.IndexInVpn)
		}
		a4, err := parseAddr(p.AddressV4, 4)
		if err != nil {
			return vpnScope{}, fmt.Errorf("peer %q: %w", p.Name, err)
		}
		a6, err := parseAddr(p.AddressV6, 6)
		if err != nil {
			return vpnScope{}, fmt.Errorf("peer %q: %w", p.Name, err)
		}
		sc.taken4 = append(sc.taken4, a4)
		sc.taken6 = append(sc.taken6, a6)
	}
	return sc, nil
}

// hostAddr parses an explicit peer address and checks it against the
// VPN subnet and the other peers.
func hostAddr(raw string, family int, sub netip.Prefix, taken []netip.Addr) (string, error) {
	a, err := parseAddr(raw, family)
	if err != nil {
		return "", err
	}
	if err := ipam.CheckHost(sub, a, taken); err != nil {
		return "", err
	}
	return a.String(), nil
}

// resolveKeys returns the key pair to store for the supplied keys. With
// neither, a pair is generated. With only a public key, the private key
// is left empty: the peer's secret lives elsewhere.
func resolveKeys(public, private string) (wgkey.Pair, error) {
	switch {
	case public == "" && private == "":
		return wgkey.NewPair()
	case private != "":
		pair, err := wgkey.PairFromPrivate(private)
		if err != nil {
			return wgkey.Pair{}, fmt.Errorf("private key: %w", err)
		}
		if public != "" {
			pub, err := wgkey.Parse(public)
			if err != nil {
				return wgkey.Pair{}, fmt.Errorf("public key: %w", err)
			}
			if pub.String() != pair.Public {
				return wgkey.Pair{}, ErrKeyMismatch
			}
		}
		return pair, nil
	default:
		pub, err := wgkey.Parse(public)
		if err != nil {
			return wgkey.Pair{}, fmt.Errorf("public key: %w", err)
		}
		return wgkey.Pair{Public: pub.String()}, nil
	}
}

// AddPeer creates a peer. Addresses left empty are allocated from the
// VPN; the slot index is recorded only when both are.
func (s *Service) AddPeer(ctx context.Context, spec service.PeerSpec) (*store.Peer, error) {
	if err := validate.Name("peer", spec.Name); err != nil {
		return nil, err
	}
	sc, err := s.scope(ctx, spec.Vpn, "")
	if err != nil {
		return nil, err
	}

	status := store.StatusActive
	if spec.Status != "" {
		if status, err = store.ParseStatus(spec.Status); err != nil {
			return nil, err
		}
	}
	if spec.Endpoint != "" {
		if err := validate.Endpoint(spec.Endpoint); err != nil {
			return nil, err
		}
	}
	dns, err := validate.DNS(spec.DNS)
	if err != nil {
		return nil, err
	}
	pair, err := resolveKeys(spec.PublicKey, spec.PrivateKey)
	if err != nil {
		return nil, err
	}

	p := store.Peer{
		VpnName:    spec.Vpn,
		Name:       spec.Name,
		PrivateKey: pair.Private,
		PublicKey:  pair.Public,
		Endpoint:   spec.Endpoint,
		DNS:        dns,
		Status:     status,
	}
	if spec.V4 != "" {
		if p.AddressV4, err = hostAddr(spec.V4, 4, sc.v4, sc.taken4); err != nil {
			return nil, err
		}
	}
	if spec.V6 != "" {
		if p.AddressV6, err = hostAddr(spec.V6, 6, sc.v6, sc.taken6); err != nil {
			return nil, err
		}
	}
	if spec.V4 == "" || spec.V6 == "" {
		taken := append(append([]netip.Addr{}, sc.taken4...), sc.taken6...)
		if a, err := netip.ParseAddr(p.AddressV4); err == nil {
			taken = append(taken, a)
		}
		if a, err := netip.ParseAddr(p.AddressV6); err == nil {
			taken = append(taken, a)
		}
		alloc, err := ipam.NextPeer(sc.v4, sc.v6, sc.indexes, taken)
		if err != nil {
			return nil, err
		}
		if spec.V4 == "" && spec.V6 == "" {
			p.IndexInVpn = &alloc.Index
		}
		if spec.V4 == "" {
			p.AddressV4 = alloc.V4.String()
		}
		if spec.V6 == "" {
			p.AddressV6 = alloc.V6.String()
		}
	}

	if err := s.store.AddPeer(ctx, p); err != nil {
		return nil, err
	}
	s.fireEvent(extension.EventPeerAdd, 1)
	return &p, nil
}

// UpdatePeer applies ch to a peer. Changing the public key without a
// matching private key clears the stored private key.
func (s *Service) UpdatePeer(ctx context.Context, vpn, name string, ch service.PeerChange) (*store.Peer, error) {
	cur, err := s.store.GetPeer(ctx, vpn, name)
	if err != nil {
		return nil, err
	}

	var u store.PeerUpdate
	if ch.NewName != nil {
		if err := validate.Name("peer", *ch.NewName); err != nil {
			return nil, err
		}
		u.NewName = ch.NewName
	}
	if ch.Endpoint != nil {
		if *ch.Endpoint != "" {
			if err := validate.Endpoint(*ch.Endpoint); err != nil {
				return nil, err
			}
		}
		u.Endpoint = ch.Endpoint
	}
	if ch.DNS != nil {
		dns, err := validate.DNS(*ch.DNS)
		if err != nil {
			return nil, err
		}
		u.DNS = &dns
	}
	if ch.Status != nil {
		st, err := store.ParseStatus(*ch.Status)
		if err != nil {
			return nil, err
		}
		u.Status = &st
	}

	if ch.V4 != nil || ch.V6 != nil {
		sc, err := s.scope(ctx, vpn, name)
		if err != nil {
			return nil, err
		}
		if ch.V4 != nil {
			a, err := hostAddr(*ch.V4, 4, sc.v4, sc.taken4)
			if err != nil {
				return nil, err
			}
			u.AddressV4 = &a
		}
		if ch.V6 != nil {
			a, err := hostAddr(*ch.V6, 6, sc.v6, sc.taken6)
			if err != nil {
				return nil, err
			}
			u.AddressV6 = &a
		}
	}

	if err := peerKeys(cur, ch, &u); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePeer(ctx, vpn, name, u); err != nil {
		return nil, err
	}
	s.fireEvent(extension.EventPeerUpdate, 1)
	if u.NewName != nil {
		name = *u.NewName
	}
	return s.store.GetPeer(ctx, vpn, name)
}

// peerKeys fills the key fields of u from ch.
func peerKeys(cur *store.Peer, ch service.PeerChange, u *store.PeerUpdate) error {
	if ch.RegenerateKeys {
		if ch.PublicKey != nil || ch.PrivateKey != nil {
			return ErrKeyConflict
		}
		pair, err := wgkey.NewPair()
		if err != nil {
			return err
		}
		u.PrivateKey, u.PublicKey = &pair.Private, &pair.Public
		return nil
	}

	switch {
	case ch.PrivateKey != nil && *ch.PrivateKey != "":
		pub := ""
		if ch.PublicKey != nil {
			pub = *ch.PublicKey
		}
		pair, err := resolveKeys(pub, *ch.PrivateKey)
		if err != nil {
			return err
		}
		u.PrivateKey, u.PublicKey = &pair.Private, &pair.Public
	case ch.PublicKey != nil:
		k, err := wgkey.Parse(*ch.PublicKey)
		if err != nil {
			return fmt.Errorf("public key: %w", err)
		}
		pub := k.String()
		u.PublicKey = &pub
		if pub != cur.PublicKey || (ch.PrivateKey != nil && *ch.PrivateKey == "") {
			empty := ""
			u.PrivateKey = &empty
		}
	case ch.PrivateKey != nil:
		// an empty private key forgets the secret and keeps the public key
		empty := ""
		u.PrivateKey = &empty
	}
	return nil
}

// RemovePeer deletes a peer with its allowed IPs and preshared keys.
func (s *Service) RemovePeer(ctx context.Context, vpn, name string) (store.Removal, error) {
	rm, err := s.store.RemovePeer(ctx, vpn, name)
	if err != nil {
		return rm, err
	}
	s.fireEvent(extension.EventPeerRemove, rm.Total())
	return rm, nil
}
