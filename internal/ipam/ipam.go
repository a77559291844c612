// Package ipam carves VPN subnets out of network prefixes and assigns peer
// host addresses inside VPN subnets.
//
// Allocation is index based. VPN n of a network gets the n-th subnet of
// the configured size in both families; peer n of a VPN gets host n of
// both subnets. Index 0 of a subnet is its network address and is never
// handed to a peer, and for IPv4 the last address is the broadcast.
package ipam

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/netip"

	"go4.org/netipx"
)

// Default VPN subnet sizes.
const (
	DefaultVpnPrefixV4 = 24
	DefaultVpnPrefixV6 = 64
)

var (
	// ErrExhausted means no free slot is left.
	ErrExhausted = errors.New("address space exhausted")
	// ErrOutOfRange means an index or address falls outside its parent.
	ErrOutOfRange = errors.New("address out of range")
	// ErrOverlap means a subnet collides with a sibling or a host address is
	// already taken.
	ErrOverlap = errors.New("address overlaps existing allocation")
)

// ParsePrefix parses a canonical CIDR of the given family (4 or 6).
func ParsePrefix(s string, family int) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	if family == 4 && !p.Addr().Is4() || family == 6 && (!p.Addr().Is6() || p.Addr().Is4In6()) {
		return netip.Prefix{}, fmt.Errorf("%s is not an IPv%d prefix", s, family)
	}
	if p.Masked() != p {
		return netip.Prefix{}, fmt.Errorf("%s has host bits set (did you mean %s?)", s, p.Masked())
	}
	return p, nil
}

// ParseAddr parses an address of the given family (4 or 6). A trailing
// host prefix such as /32 or /128 is accepted and dropped.
func ParseAddr(s string, family int) (netip.Addr, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		if p.Bits() != p.Addr().BitLen() {
			return netip.Addr{}, fmt.Errorf("%s is a subnet, not a host address", s)
		}
		s = p.Addr().String()
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if family == 4 && !a.Is4() || family == 6 && (!a.Is6() || a.Is4In6()) {
		return netip.Addr{}, fmt.Errorf("%s is not an IPv%d address", s, family)
	}
	return a, nil
}

func toInt(a netip.Addr) *big.Int {
	b := a.AsSlice()
	return new(big.Int).SetBytes(b)
}

func fromInt(n *big.Int, is4 bool) (netip.Addr, bool) {
	size := 16
	if is4 {
		size = 4
	}
	if n.Sign() < 0 || n.BitLen() > size*8 {
		return netip.Addr{}, false
	}
	buf := make([]byte, size)
	n.FillBytes(buf)
	return netip.AddrFromSlice(buf)
}

// Subnet returns the index-th subnet of length bits inside parent.
func Subnet(parent netip.Prefix, bits int, index int64) (netip.Prefix, error) {
	if bits < parent.Bits() || bits > parent.Addr().BitLen() {
		return netip.Prefix{}, fmt.Errorf("%w: /%d subnet of %s", ErrOutOfRange, bits, parent)
	}
	count := new(big.Int).Lsh(big.NewInt(1), uint(bits-parent.Bits()))
	idx := big.NewInt(index)
	if index < 0 || idx.Cmp(count) >= 0 {
		return netip.Prefix{}, fmt.Errorf("%w: subnet %d of %s (/%d)", ErrOutOfRange, index, parent, bits)
	}
	step := new(big.Int).Lsh(big.NewInt(1), uint(parent.Addr().BitLen()-bits))
	base := toInt(parent.Masked().Addr())
	base.Add(base, idx.Mul(idx, step))
	addr, ok := fromInt(base, parent.Addr().Is4())
	if !ok {
		return netip.Prefix{}, fmt.Errorf("%w: subnet %d of %s", ErrOutOfRange, index, parent)
	}
	return netip.PrefixFrom(addr, bits), nil
}

// Host returns address index of subnet. Index 0 (the network address) and
// the IPv4 broadcast address are rejected.
func Host(subnet netip.Prefix, index int64) (netip.Addr, error) {
	if index < 1 {
		return netip.Addr{}, fmt.Errorf("%w: host %d of %s", ErrOutOfRange, index, subnet)
	}
	n := toInt(subnet.Masked().Addr())
	n.Add(n, big.NewInt(index))
	addr, ok := fromInt(n, subnet.Addr().Is4())
	if !ok || !subnet.Contains(addr) || !usableHost(subnet, addr) {
		return netip.Addr{}, fmt.Errorf("%w: host %d of %s", ErrOutOfRange, index, subnet)
	}
	return addr, nil
}

func usableHost(subnet netip.Prefix, addr netip.Addr) bool {
	if addr == subnet.Masked().Addr() && subnet.Bits() < addr.BitLen() {
		return false
	}
	// /31 and /32 have no broadcast
	if addr.Is4() && subnet.Bits() < 31 && addr == netipx.PrefixLastIP(subnet) {
		return false
	}
	return true
}

// CheckHost verifies that addr may be assigned inside subnet and is not in
// taken.
func CheckHost(subnet netip.Prefix, addr netip.Addr, taken []netip.Addr) error {
	if !subnet.Contains(addr) {
		return fmt.Errorf("%w: %s is not inside %s", ErrOutOfRange, addr, subnet)
	}
	if !usableHost(subnet, addr) {
		return fmt.Errorf("%w: %s is the network or broadcast address of %s", ErrOutOfRange, addr, subnet)
	}
	for _, t := range taken {
		if t == addr {
			return fmt.Errorf("%w: %s is already assigned", ErrOverlap, addr)
		}
	}
	return nil
}

// CheckSubnet verifies that subnet lies inside parent and overlaps none of
// siblings.
func CheckSubnet(parent, subnet netip.Prefix, siblings []netip.Prefix) error {
	if subnet.Bits() < parent.Bits() || !parent.Contains(subnet.Addr()) {
		return fmt.Errorf("%w: %s is not inside %s", ErrOutOfRange, subnet, parent)
	}
	for _, s := range siblings {
		if s.Overlaps(subnet) {
			return fmt.Errorf("%w: %s overlaps %s", ErrOverlap, subnet, s)
		}
	}
	return nil
}

// VpnAllocation is a slot chosen by NextVpn.
type VpnAllocation struct {
	Index int64
	V4    netip.Prefix
	V6    netip.Prefix
}

// Pool describes one network's address space and what is already used.
type Pool struct {
	V4, V6         netip.Prefix
	BitsV4, BitsV6 int
	UsedIndexes    []int64
	UsedV4, UsedV6 []netip.Prefix
}

func overlapSet(prefixes []netip.Prefix) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, p := range prefixes {
		b.AddPrefix(p)
	}
	return b.IPSet()
}

// NextVpn returns the lowest free index whose subnets overlap nothing in
// use in either family.
func NextVpn(p Pool) (VpnAllocation, error) {
	bits4, bits6 := p.BitsV4, p.BitsV6
	if bits4 == 0 {
		bits4 = DefaultVpnPrefixV4
	}
	if bits6 == 0 {
		bits6 = DefaultVpnPrefixV6
	}
	if bits4 < p.V4.Bits() {
		return VpnAllocation{}, fmt.Errorf("%w: network %s is smaller than a /%d", ErrOutOfRange, p.V4, bits4)
	}
	if bits6 < p.V6.Bits() {
		return VpnAllocation{}, fmt.Errorf("%w: network %s is smaller than a /%d", ErrOutOfRange, p.V6, bits6)
	}

	used4, err := overlapSet(p.UsedV4)
	if err != nil {
		return VpnAllocation{}, err
	}
	used6, err := overlapSet(p.UsedV6)
	if err != nil {
		return VpnAllocation{}, err
	}
	usedIdx := make(map[int64]bool, len(p.UsedIndexes))
	for _, i := range p.UsedIndexes {
		usedIdx[i] = true
	}

	for i := int64(0); ; {
		v4, err := Subnet(p.V4, bits4, i)
		if err != nil {
			return VpnAllocation{}, fmt.Errorf("%w: no free /%d in %s", ErrExhausted, bits4, p.V4)
		}
		v6, err := Subnet(p.V6, bits6, i)
		if err != nil {
			return VpnAllocation{}, fmt.Errorf("%w: no free /%d in %s", ErrExhausted, bits6, p.V6)
		}
		switch {
		case used4.OverlapsPrefix(v4):
			i = skipPast(p.V4, bits4, i, p.UsedV4, v4)
		case used6.OverlapsPrefix(v6):
			i = skipPast(p.V6, bits6, i, p.UsedV6, v6)
		case usedIdx[i]:
			i++
		default:
			return VpnAllocation{Index: i, V4: v4, V6: v6}, nil
		}
	}
}

// skipPast returns the first slot index after every used prefix that
// overlaps slot. A large explicit subnet can block many slots at once.
func skipPast(parent netip.Prefix, bits int, i int64, used []netip.Prefix, slot netip.Prefix) int64 {
	next := i + 1
	step := new(big.Int).Lsh(big.NewInt(1), uint(parent.Addr().BitLen()-bits))
	base := toInt(parent.Masked().Addr())
	for _, u := range used {
		if !u.Overlaps(slot) {
			continue
		}
		off := toInt(netipx.PrefixLastIP(u))
		off.Sub(off, base)
		off.Div(off, step)
		off.Add(off, big.NewInt(1))
		if !off.IsInt64() {
			// past anything Subnet can produce; the next call reports exhaustion
			return math.MaxInt64
		}
		if n := off.Int64(); n > next {
			next = n
		}
	}
	return next
}

// PeerAllocation is a slot chosen by NextPeer.
type PeerAllocation struct {
	Index int64
	V4    netip.Addr
	V6    netip.Addr
}

// NextPeer returns the lowest index from 1 whose host addresses are free
// in both subnets.
func NextPeer(v4, v6 netip.Prefix, usedIndexes []int64, taken []netip.Addr) (PeerAllocation, error) {
	usedIdx := make(map[int64]bool, len(usedIndexes))
	for _, i := range usedIndexes {
		usedIdx[i] = true
	}
	takenSet := make(map[netip.Addr]bool, len(taken))
	for _, a := range taken {
		takenSet[a] = true
	}

	for i := int64(1); ; i++ {
		a4, err := Host(v4, i)
		if err != nil {
			return PeerAllocation{}, fmt.Errorf("%w: no free host in %s", ErrExhausted, v4)
		}
		a6, err := Host(v6, i)
		if err != nil {
			return PeerAllocation{}, fmt.Errorf("%w: no free host in %s", ErrExhausted, v6)
		}
		if usedIdx[i] || takenSet[a4] || takenSet[a6] {
			continue
		}
		return PeerAllocation{Index: i, V4: a4, V6: a6}, nil
	}
}
