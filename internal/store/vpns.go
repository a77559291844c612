// vpns.go implements the vpns table.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const vpnCols = `name, network_name, index_in_network, address_v4, address_v6`

func scanVpn(sc scanner) (Vpn, error) {
	var v Vpn
	var idx sql.NullInt64
	if err := sc.Scan(&v.Name, &v.NetworkName, &idx, &v.AddressV4, &v.AddressV6); err != nil {
		return v, err
	}
	v.IndexInNetwork = intPtr(idx)
	return v, nil
}

// ListVpns returns VPNs ordered by network then name. A non-empty network
// restricts the result and must exist.
func (s *SQLiteStore) ListVpns(ctx context.Context, network string) ([]Vpn, error) {
	q := `SELECT ` + vpnCols + ` FROM vpns`
	var args []any
	if network != "" {
		if err := requireNetwork(ctx, s.db, network); err != nil {
			return nil, err
		}
		q += ` WHERE network_name = ?`
		args = append(args, network)
	}
	q += ` ORDER BY network_name, name`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list vpns: %w", err)
	}
	return collect(rows, scanVpn)
}

// GetVpn returns the named VPN or ErrNotFound.
func (s *SQLiteStore) GetVpn(ctx context.Context, name string) (*Vpn, error) {
	v, err := scanVpn(s.db.QueryRowContext(ctx, `SELECT `+vpnCols+` FROM vpns WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: vpn %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get vpn: %w", err)
	}
	return &v, nil
}

// AddVpn inserts v. Its network must exist.
func (s *SQLiteStore) AddVpn(ctx context.Context, v Vpn) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requireNetwork(ctx, tx, v.NetworkName); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO vpns (`+vpnCols+`) VALUES (?, ?, ?, ?, ?)`,
			v.Name, v.NetworkName, nullInt(v.IndexInNetwork), v.AddressV4, v.AddressV6)
		if err != nil {
			return constraintErr(err, fmt.Sprintf("vpn %q", v.Name))
		}
		return nil
	})
}

// UpdateVpn changes the fields set in u. Explicitly setting an address
// clears index_in_network, since the subnet no longer derives from a slot.
// A rename cascades to peers through the foreign key and is applied by
// hand to allowed_ips and preshared_keys.
func (s *SQLiteStore) UpdateVpn(ctx context.Context, name string, u VpnUpdate) error {
	var sets []string
	var args []any
	if u.NewName != nil {
		sets = append(sets, `name = ?`)
		args = append(args, *u.NewName)
	}
	if u.AddressV4 != nil {
		sets = append(sets, `address_v4 = ?`)
		args = append(args, *u.AddressV4)
	}
	if u.AddressV6 != nil {
		sets = append(sets, `address_v6 = ?`)
		args = append(args, *u.AddressV6)
	}
	if u.AddressV4 != nil || u.AddressV6 != nil {
		sets = append(sets, `index_in_network = NULL`)
	}

	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requireVpn(ctx, tx, name); err != nil {
			return err
		}
		if len(sets) == 0 {
			return nil
		}
		args = append(args, name)
		if _, err := tx.ExecContext(ctx,
			`UPDATE vpns SET `+strings.Join(sets, `, `)+` WHERE name = ?`, args...); err != nil {
			return constraintErr(err, fmt.Sprintf("vpn %q", deref(u.NewName, name)))
		}

		if u.NewName == nil || *u.NewName == name {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE allowed_ips SET peer_vpn = ? WHERE peer_vpn = ?`, *u.NewName, name); err != nil {
			return fmt.Errorf("rename allowed ips: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE preshared_keys SET vpn = ? WHERE vpn = ?`, *u.NewName, name); err != nil {
			return fmt.Errorf("rename preshared keys: %w", err)
		}
		return nil
	})
}

// RemoveVpn deletes the VPN. Without opts.Cascade it fails with
// ErrHasChildren while peers remain.
func (s *SQLiteStore) RemoveVpn(ctx context.Context, name string, opts RemoveOptions) (Removal, error) {
	var rm Removal
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requireVpn(ctx, tx, name); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM peers WHERE vpn_name = ?`, name).Scan(&n); err != nil {
			return fmt.Errorf("count peers: %w", err)
		}
		if n > 0 && !opts.Cascade {
			return fmt.Errorf("%w: vpn %q has %d peer(s)", ErrHasChildren, name, n)
		}
		r, err := deleteVpn(ctx, tx, name)
		rm = r
		return err
	})
	if err != nil {
		return Removal{}, err
	}
	return rm, nil
}

// deleteVpn removes a VPN and everything it owns.
func deleteVpn(ctx context.Context, tx *sql.Tx, name string) (Removal, error) {
	var rm Removal
	steps := []struct {
		q   string
		dst *int64
	}{
		{`DELETE FROM allowed_ips WHERE peer_vpn = ?`, &rm.AllowedIPs},
		{`DELETE FROM preshared_keys WHERE vpn = ?`, &rm.PresharedKeys},
		{`DELETE FROM peers WHERE vpn_name = ?`, &rm.Peers},
		{`DELETE FROM vpns WHERE name = ?`, &rm.Vpns},
	}
	for _, st := range steps {
		res, err := tx.ExecContext(ctx, st.q, name)
		if err != nil {
			return Removal{}, fmt.Errorf("delete vpn %q: %w", name, err)
		}
		*st.dst, _ = res.RowsAffected()
	}
	return rm, nil
}

func requireVpn(ctx context.Context, db querier, name string) error {
	ok, err := exists(ctx, db, `SELECT 1 FROM vpns WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("check vpn: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: vpn %q", ErrNotFound, name)
	}
	return nil
}
