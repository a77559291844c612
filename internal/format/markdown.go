package format

import (
	"fmt"
	"strings"

	"github.com/jpl-au/vpnutils/internal/store"
)

// NetworkMarkdown describes a network and its VPNs as markdown, for
// rendering with glamour on a terminal.
func NetworkMarkdown(n *store.Network, vpns []store.Vpn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Network `%s`\n\n", n.Name)
	fmt.Fprintf(&b, "- **IPv4:** `%s`\n", n.AddressV4)
	fmt.Fprintf(&b, "- **IPv6:** `%s`\n\n", n.AddressV6)

	if len(vpns) == 0 {
		b.WriteString("_No VPNs._\n")
		return b.String()
	}
	b.WriteString("## VPNs\n\n")
	b.WriteString("| Name | Index | IPv4 | IPv6 |\n|---|---|---|---|\n")
	for _, v := range vpns {
		fmt.Fprintf(&b, "| %s | %s | `%s` | `%s` |\n", v.Name, index(v.IndexInNetwork), v.AddressV4, v.AddressV6)
	}
	return b.String()
}

// PeerMarkdown describes a peer with its routes and preshared key pairs.
// The private key is shown only as a fingerprint.
func PeerMarkdown(p *store.Peer, routes []store.AllowedIP, psks []store.PresharedKey) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Peer `%s` in `%s`\n\n", p.Name, p.VpnName)
	fmt.Fprintf(&b, "- **Status:** %s\n", p.Status)
	fmt.Fprintf(&b, "- **Index:** %s\n", index(p.IndexInVpn))
	fmt.Fprintf(&b, "- **IPv4:** `%s`\n", p.AddressV4)
	fmt.Fprintf(&b, "- **IPv6:** `%s`\n", p.AddressV6)
	fmt.Fprintf(&b, "- **Endpoint:** %s\n", dash(p.Endpoint))
	fmt.Fprintf(&b, "- **DNS:** %s\n", dash(p.DNS))
	fmt.Fprintf(&b, "- **Public key:** `%s`\n", p.PublicKey)
	if p.PrivateKey == "" {
		b.WriteString("- **Private key:** not stored\n")
	} else {
		fmt.Fprintf(&b, "- **Private key:** `%s`\n", store.Fingerprint(p.PrivateKey))
	}

	if len(routes) > 0 {
		b.WriteString("\n## Allowed IPs\n\n")
		for _, r := range routes {
			fmt.Fprintf(&b, "- `%s`\n", r.Address)
		}
	}

	var pairs []string
	for _, k := range psks {
		switch p.Name {
		case k.Peer1:
			pairs = append(pairs, k.Peer2)
		case k.Peer2:
			pairs = append(pairs, k.Peer1)
		}
	}
	if len(pairs) > 0 {
		b.WriteString("\n## Preshared keys with\n\n")
		for _, other := range pairs {
			fmt.Fprintf(&b, "- %s\n", other)
		}
	}
	return b.String()
}
