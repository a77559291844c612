// address.go implements endpoint, DNS and allowed-IP validation.

package validate

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// Endpoint validates a WireGuard endpoint: host:port, where host is an IP
// or a DNS name and port is 1..65535. Empty is allowed and means none.
func Endpoint(e string) error {
	if e == "" {
		return nil
	}
	host, port, err := net.SplitHostPort(e)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidEndpoint, e)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%w: bad port in %q", ErrInvalidEndpoint, e)
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return nil
	}
	if !hostname(host) {
		return fmt.Errorf("%w: bad host in %q", ErrInvalidEndpoint, e)
	}
	return nil
}

func hostname(h string) bool {
	if len(h) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(h, "."), ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
				return false
			}
		}
	}
	return true
}

// DNS validates a comma-separated list of resolver addresses or search
// domains and returns it normalised (trimmed, single ", " separators).
// Empty is allowed and means none.
func DNS(list string) (string, error) {
	if strings.TrimSpace(list) == "" {
		return "", nil
	}
	var out []string
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return "", fmt.Errorf("%w: empty entry in %q", ErrInvalidDNS, list)
		}
		if _, err := netip.ParseAddr(item); err != nil && !hostname(item) {
			return "", fmt.Errorf("%w: %q is neither an address nor a domain", ErrInvalidDNS, item)
		}
		out = append(out, item)
	}
	return strings.Join(out, ", "), nil
}

// AllowedIP validates a route in CIDR form and returns it canonically. A
// bare address is taken as a host route.
func AllowedIP(s string) (string, error) {
	if a, err := netip.ParseAddr(s); err == nil {
		return netip.PrefixFrom(a, a.BitLen()).String(), nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if p.Masked() != p {
		return "", fmt.Errorf("%w: %s has host bits set (did you mean %s?)", ErrInvalidAddress, s, p.Masked())
	}
	return p.String(), nil
}
