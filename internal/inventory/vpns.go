package inventory

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/ipam"
	"github.com/jpl-au/vpnutils/internal/service"
	"github.com/jpl-au/vpnutils/internal/store"
	"github.com/jpl-au/vpnutils/internal/validate"
)

// ListVpns lists every VPN, or those of one network.
func (s *Service) ListVpns(ctx context.Context, network string) ([]store.Vpn, error) {
	if network != "" {
		if _, err := s.store.GetNetwork(ctx, network); err != nil {
			return nil, err
		}
	}
	return s.store.ListVpns(ctx, network)
}

// GetVpn returns one VPN.
func (s *Service) GetVpn(ctx context.Context, name string) (*store.Vpn, error) {
	return s.store.GetVpn(ctx, name)
}

// siblings holds the parsed subnets of a network's VPNs, optionally
// leaving one out.
type siblings struct {
	indexes []int64
	v4, v6  []netip.Prefix
}

func (s *Service) vpnSiblings(ctx context.Context, network, skip string) (siblings, error) {
	vpns, err := s.store.ListVpns(ctx, network)
	if err != nil {
		return siblings{}, err
	}
	var sib siblings
	for _, v := range vpns {
		if v.Name == skip {
			continue
		}
		if v.IndexInNetwork != nil {
			sib.indexes = append(sib.indexes, *v.IndexInNetwork)
		}
		p4, err := parsePrefix(v.AddressV4, 4)
		if err != nil {
			return siblings{}, fmt.Errorf("vpn %q: %w", v.Name, err)
		}
		p6, err := parsePrefix(v.AddressV6, 6)
		if err != nil {
			return siblings{}, fmt.Errorf("vpn %q: %w", v.Name, err)
		}
		sib.v4 = append(sib.v4, p4)
		sib.v6 = append(sib.v6, p6)
	}
	return sib, nil
}

// networkPrefixes parses the stored prefixes of a network.
func networkPrefixes(n *store.Network) (netip.Prefix, netip.Prefix, error) {
	v4, err := parsePrefix(n.AddressV4, 4)
	if err != nil {
		return netip.Prefix{}, netip.Prefix{}, fmt.Errorf("network %q: %w", n.Name, err)
	}
	v6, err := parsePrefix(n.AddressV6, 6)
	if err != nil {
		return netip.Prefix{}, netip.Prefix{}, fmt.Errorf("network %q: %w", n.Name, err)
	}
	return v4, v6, nil
}

// AddVpn creates a VPN in spec.Network. Subnets left empty are allocated
// from the network; the slot index is recorded only when both are.
func (s *Service) AddVpn(ctx context.Context, spec service.VpnSpec) (*store.Vpn, error) {
	if err := validate.Name("vpn", spec.Name); err != nil {
		return nil, err
	}
	n, err := s.store.GetNetwork(ctx, spec.Network)
	if err != nil {
		return nil, err
	}
	net4, net6, err := networkPrefixes(n)
	if err != nil {
		return nil, err
	}
	sib, err := s.vpnSiblings(ctx, n.Name, "")
	if err != nil {
		return nil, err
	}

	v := store.Vpn{Name: spec.Name, NetworkName: n.Name}
	var v4, v6 netip.Prefix
	if spec.V4 != "" {
		if v4, err = parsePrefix(spec.V4, 4); err != nil {
			return nil, err
		}
		if err := ipam.CheckSubnet(net4, v4, sib.v4); err != nil {
			return nil, err
		}
	}
	if spec.V6 != "" {
		if v6, err = parsePrefix(spec.V6, 6); err != nil {
			return nil, err
		}
		if err := ipam.CheckSubnet(net6, v6, sib.v6); err != nil {
			return nil, err
		}
	}
	if spec.V4 == "" || spec.V6 == "" {
		alloc, err := ipam.NextVpn(ipam.Pool{
			V4: net4, V6: net6,
			BitsV4: s.prefixV4, BitsV6: s.prefixV6,
			UsedIndexes: sib.indexes,
			UsedV4:      sib.v4, UsedV6: sib.v6,
		})
		if err != nil {
			return nil, err
		}
		if spec.V4 == "" && spec.V6 == "" {
			v.IndexInNetwork = &alloc.Index
		}
		if spec.V4 == "" {
			v4 = alloc.V4
		}
		if spec.V6 == "" {
			v6 = alloc.V6
		}
	}
	v.AddressV4, v.AddressV6 = v4.String(), v6.String()

	if err := s.store.AddVpn(ctx, v); err != nil {
		return nil, err
	}
	s.fireEvent(extension.EventVpnAdd, 1)
	return &v, nil
}

// UpdateVpn renames a VPN or moves its subnets. A new subnet must stay
// inside the network, clear of sibling VPNs, and still hold every peer.
func (s *Service) UpdateVpn(ctx context.Context, name string, ch service.VpnChange) (*store.Vpn, error) {
	cur, err := s.store.GetVpn(ctx, name)
	if err != nil {
		return nil, err
	}
	var u store.VpnUpdate
	if ch.NewName != nil {
		if err := validate.Name("vpn", *ch.NewName); err != nil {
			return nil, err
		}
		u.NewName = ch.NewName
	}

	if ch.V4 != nil || ch.V6 != nil {
		n, err := s.store.GetNetwork(ctx, cur.NetworkName)
		if err != nil {
			return nil, err
		}
		net4, net6, err := networkPrefixes(n)
		if err != nil {
			return nil, err
		}
		sib, err := s.vpnSiblings(ctx, n.Name, name)
		if err != nil {
			return nil, err
		}
		peers, err := s.store.ListPeers(ctx, name)
		if err != nil {
			return nil, err
		}
		if ch.V4 != nil {
			p, err := checkVpnSubnet(*ch.V4, 4, net4, sib.v4, peers)
			if err != nil {
				return nil, err
			}
			u.AddressV4 = &p
		}
		if ch.V6 != nil {
			p, err := checkVpnSubnet(*ch.V6, 6, net6, sib.v6, peers)
			if err != nil {
				return nil, err
			}
			u.AddressV6 = &p
		}
	}

	if err := s.store.UpdateVpn(ctx, name, u); err != nil {
		return nil, err
	}
	s.fireEvent(extension.EventVpnUpdate, 1)
	if u.NewName != nil {
		name = *u.NewName
	}
	return s.store.GetVpn(ctx, name)
}

// checkVpnSubnet parses a replacement subnet and returns it canonically.
func checkVpnSubnet(raw string, family int, parent netip.Prefix, others []netip.Prefix, peers []store.Peer) (string, error) {
	sub, err := parsePrefix(raw, family)
	if err != nil {
		return "", err
	}
	if err := ipam.CheckSubnet(parent, sub, others); err != nil {
		return "", err
	}
	for _, p := range peers {
		addr := p.AddressV4
		if family == 6 {
			addr = p.AddressV6
		}
		a, err := parseAddr(addr, family)
		if err != nil {
			return "", fmt.Errorf("peer %q: %w", p.Name, err)
		}
		if err := ipam.CheckHost(sub, a, nil); err != nil {
			return "", fmt.Errorf("peer %q would fall outside %s: %w", p.Name, sub, err)
		}
	}
	return sub.String(), nil
}

// RemoveVpn deletes a VPN, and with cascade its peers and their routes
// and keys.
func (s *Service) RemoveVpn(ctx context.Context, name string, cascade bool) (store.Removal, error) {
	rm, err := s.store.RemoveVpn(ctx, name, store.RemoveOptions{Cascade: cascade})
	if err != nil {
		return rm, err
	}
	s.fireEvent(extension.EventVpnRemove, rm.Total())
	return rm, nil
}
