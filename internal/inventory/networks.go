package inventory

import (
	"context"
	"fmt"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/ipam"
	"github.com/jpl-au/vpnutils/internal/service"
	"github.com/jpl-au/vpnutils/internal/store"
	"github.com/jpl-au/vpnutils/internal/validate"
)

// ListNetworks returns every network.
func (s *Service) ListNetworks(ctx context.Context) ([]store.Network, error) {
	return s.store.ListNetworks(ctx)
}

// GetNetwork returns one network.
func (s *Service) GetNetwork(ctx context.Context, name string) (*store.Network, error) {
	return s.store.GetNetwork(ctx, name)
}

// AddNetwork validates spec and creates the network.
func (s *Service) AddNetwork(ctx context.Context, spec service.NetworkSpec) (*store.Network, error) {
	if err := validate.Name("network", spec.Name); err != nil {
		return nil, err
	}
	v4, err := parsePrefix(spec.V4, 4)
	if err != nil {
		return nil, err
	}
	v6, err := parsePrefix(spec.V6, 6)
	if err != nil {
		return nil, err
	}

	n := store.Network{Name: spec.Name, AddressV4: v4.String(), AddressV6: v6.String()}
	if err := s.store.AddNetwork(ctx, n); err != nil {
		return nil, err
	}
	s.fireEvent(extension.EventNetworkAdd, 1)
	return &n, nil
}

// UpdateNetwork renames the network or changes its prefixes. Every VPN
// must still fit inside the new prefixes.
func (s *Service) UpdateNetwork(ctx context.Context, name string, ch service.NetworkChange) (*store.Network, error) {
	if _, err := s.store.GetNetwork(ctx, name); err != nil {
		return nil, err
	}
	var u store.NetworkUpdate
	if ch.NewName != nil {
		if err := validate.Name("network", *ch.NewName); err != nil {
			return nil, err
		}
		u.NewName = ch.NewName
	}

	vpns, err := s.store.ListVpns(ctx, name)
	if err != nil {
		return nil, err
	}
	if ch.V4 != nil {
		p, err := parsePrefix(*ch.V4, 4)
		if err != nil {
			return nil, err
		}
		for _, v := range vpns {
			sub, err := parsePrefix(v.AddressV4, 4)
			if err != nil {
				return nil, err
			}
			if err := ipam.CheckSubnet(p, sub, nil); err != nil {
				return nil, fmt.Errorf("vpn %q: %w", v.Name, err)
			}
		}
		str := p.String()
		u.AddressV4 = &str
	}
	if ch.V6 != nil {
		p, err := parsePrefix(*ch.V6, 6)
		if err != nil {
			return nil, err
		}
		for _, v := range vpns {
			sub, err := parsePrefix(v.AddressV6, 6)
			if err != nil {
				return nil, err
			}
			if err := ipam.CheckSubnet(p, sub, nil); err != nil {
				return nil, fmt.Errorf("vpn %q: %w", v.Name, err)
			}
		}
		str := p.String()
		u.AddressV6 = &str
	}

	if err := s.store.UpdateNetwork(ctx, name, u); err != nil {
		return nil, err
	}
	s.fireEvent(extension.EventNetworkUpdate, 1)
	if u.NewName != nil {
		name = *u.NewName
	}
	return s.store.GetNetwork(ctx, name)
}

// RemoveNetwork deletes the network, and with cascade everything under it.
func (s *Service) RemoveNetwork(ctx context.Context, name string, cascade bool) (store.Removal, error) {
	rm, err := s.store.RemoveNetwork(ctx, name, store.RemoveOptions{Cascade: cascade})
	if err != nil {
		return rm, err
	}
	s.fireEvent(extension.EventNetworkRemove, rm.Total())
	return rm, nil
}
