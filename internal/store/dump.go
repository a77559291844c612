// dump.go renders the inventory as stable, line-oriented text.
//
// The dump is what `changes` diffs against the last opened or saved
// state. Private and preshared keys appear only as short blake2b
// fingerprints so a diff reveals that a key changed, never the key.

package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a short, non-reversible tag for a secret.
func Fingerprint(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return "blake2b:" + hex.EncodeToString(sum[:6])
}

func optional(label, v string) string {
	if v == "" {
		return ""
	}
	return " " + label + "=" + v
}

func optionalIndex(p *int64) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf(" index=%d", *p)
}

// Dump returns every row, one per line, in key order.
func (s *SQLiteStore) Dump(ctx context.Context) (string, error) {
	var b strings.Builder

	networks, err := s.ListNetworks(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range networks {
		fmt.Fprintf(&b, "network %s v4=%s v6=%s\n", n.Name, n.AddressV4, n.AddressV6)
	}

	vpns, err := s.ListVpns(ctx, "")
	if err != nil {
		return "", err
	}
	for _, v := range vpns {
		fmt.Fprintf(&b, "vpn %s network=%s%s v4=%s v6=%s\n",
			v.Name, v.NetworkName, optionalIndex(v.IndexInNetwork), v.AddressV4, v.AddressV6)
	}

	for _, v := range vpns {
		peers, err := s.ListPeers(ctx, v.Name)
		if err != nil {
			return "", err
		}
		for _, p := range peers {
			fmt.Fprintf(&b, "peer %s/%s%s v4=%s v6=%s status=%s pubkey=%s privkey=%s%s%s\n",
				p.VpnName, p.Name, optionalIndex(p.IndexInVpn), p.AddressV4, p.AddressV6,
				p.Status, p.PublicKey, Fingerprint(p.PrivateKey),
				optional("endpoint", p.Endpoint), optional("dns", p.DNS))
		}

		ips, err := s.ListAllowedIPs(ctx, v.Name, "")
		if err != nil {
			return "", err
		}
		for _, a := range ips {
			fmt.Fprintf(&b, "allowed-ip %s/%s %s\n", a.PeerVpn, a.PeerName, a.Address)
		}

		keys, err := s.ListPresharedKeys(ctx, v.Name)
		if err != nil {
			return "", err
		}
		for _, k := range keys {
			fmt.Fprintf(&b, "psk %s %s<->%s key=%s\n", k.Vpn, k.Peer1, k.Peer2, Fingerprint(k.Key))
		}
	}
	return b.String(), nil
}
