// Package format provides output formatting utilities for CLI display.
//
// Centralises formatting logic so that command implementations focus on
// business logic while this package handles presentation concerns like
// column alignment and markdown summaries.
package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jpl-au/vpnutils/internal/log"
	"github.com/jpl-au/vpnutils/internal/store"
)

// table prints rows under a header with each column padded to its widest
// cell. The last column is not padded.
func table(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	line := func(cells []string) error {
		var b strings.Builder
		for i, c := range cells {
			if i == len(cells)-1 {
				b.WriteString(c)
				break
			}
			fmt.Fprintf(&b, "%-*s  ", widths[i], c)
		}
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	if err := line(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := line(r); err != nil {
			return err
		}
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func index(i *int64) string {
	if i == nil {
		return "-"
	}
	return strconv.FormatInt(*i, 10)
}

// Networks prints networks as a table.
func Networks(w io.Writer, ns []store.Network) error {
	rows := make([][]string, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, []string{n.Name, n.AddressV4, n.AddressV6})
	}
	return table(w, []string{"NAME", "IPV4", "IPV6"}, rows)
}

// Vpns prints VPNs as a table.
func Vpns(w io.Writer, vs []store.Vpn) error {
	rows := make([][]string, 0, len(vs))
	for _, v := range vs {
		rows = append(rows, []string{v.Name, v.NetworkName, index(v.IndexInNetwork), v.AddressV4, v.AddressV6})
	}
	return table(w, []string{"NAME", "NETWORK", "IDX", "IPV4", "IPV6"}, rows)
}

// Peers prints peers as a table. Private keys are never printed.
func Peers(w io.Writer, ps []store.Peer) error {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []string{
			p.Name, index(p.IndexInVpn), p.AddressV4, p.AddressV6,
			string(p.Status), dash(p.Endpoint), p.PublicKey,
		})
	}
	return table(w, []string{"NAME", "IDX", "IPV4", "IPV6", "STATUS", "ENDPOINT", "PUBLIC KEY"}, rows)
}

// AllowedIPs prints allowed IPs grouped by peer.
func AllowedIPs(w io.Writer, as []store.AllowedIP) error {
	rows := make([][]string, 0, len(as))
	for _, a := range as {
		rows = append(rows, []string{a.PeerName, a.Address})
	}
	return table(w, []string{"PEER", "ADDRESS"}, rows)
}

// PresharedKeys prints keyed pairs with fingerprints in place of keys.
func PresharedKeys(w io.Writer, ks []store.PresharedKey) error {
	rows := make([][]string, 0, len(ks))
	for _, k := range ks {
		rows = append(rows, []string{k.Peer1, k.Peer2, store.Fingerprint(k.Key)})
	}
	return table(w, []string{"PEER", "PEER", "KEY"}, rows)
}

// Removal summarises what a remove command deleted.
func Removal(r store.Removal) string {
	var parts []string
	add := func(n int64, what string) {
		if n == 0 {
			return
		}
		if n != 1 {
			what += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, what))
	}
	add(r.Networks, "network")
	add(r.Vpns, "vpn")
	add(r.Peers, "peer")
	add(r.AllowedIPs, "allowed ip")
	add(r.PresharedKeys, "preshared key")
	if len(parts) == 0 {
		return "nothing removed"
	}
	return "removed " + strings.Join(parts, ", ")
}

// AuditLog prints audit entries in local time, oldest first.
func AuditLog(w io.Writer, rs []log.Record) error {
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		result := "ok"
		if !r.Success {
			result = r.Kind
		}
		rows = append(rows, []string{
			r.Start.Local().Format(time.DateTime), r.Store, r.Source, r.Action,
			strconv.FormatInt(r.Rows, 10), result,
		})
	}
	return table(w, []string{"TIME", "STORE", "SOURCE", "ACTION", "ROWS", "RESULT"}, rows)
}
