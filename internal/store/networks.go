// networks.go implements the networks table.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const networkCols = `name, address_v4, address_v6`

func scanNetwork(sc scanner) (Network, error) {
	var n Network
	err := sc.Scan(&n.Name, &n.AddressV4, &n.AddressV6)
	return n, err
}

// ListNetworks returns every network ordered by name.
func (s *SQLiteStore) ListNetworks(ctx context.Context) ([]Network, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+networkCols+` FROM networks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	return collect(rows, scanNetwork)
}

// GetNetwork returns the named network or ErrNotFound.
func (s *SQLiteStore) GetNetwork(ctx context.Context, name string) (*Network, error) {
	n, err := scanNetwork(s.db.QueryRowContext(ctx,
		`SELECT `+networkCols+` FROM networks WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: network %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get network: %w", err)
	}
	return &n, nil
}

// AddNetwork inserts n.
func (s *SQLiteStore) AddNetwork(ctx context.Context, n Network) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO networks (`+networkCols+`) VALUES (?, ?, ?)`,
		n.Name, n.AddressV4, n.AddressV6)
	if err != nil {
		return constraintErr(err, fmt.Sprintf("network %q", n.Name))
	}
	return nil
}

// UpdateNetwork changes the fields set in u. A rename is propagated to
// vpns.network_name by the foreign key's ON UPDATE CASCADE.
func (s *SQLiteStore) UpdateNetwork(ctx context.Context, name string, u NetworkUpdate) error {
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

	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requireNetwork(ctx, tx, name); err != nil {
			return err
		}
		if len(sets) == 0 {
			return nil
		}
		args = append(args, name)
		_, err := tx.ExecContext(ctx,
			`UPDATE networks SET `+strings.Join(sets, `, `)+` WHERE name = ?`, args...)
		if err != nil {
			return constraintErr(err, fmt.Sprintf("network %q", deref(u.NewName, name)))
		}
		return nil
	})
}

// RemoveNetwork deletes the network. With opts.Cascade its VPNs, their
// peers and the peers' allowed IPs and preshared keys go too, all in one
// transaction.
func (s *SQLiteStore) RemoveNetwork(ctx context.Context, name string, opts RemoveOptions) (Removal, error) {
	var rm Removal
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requireNetwork(ctx, tx, name); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT name FROM vpns WHERE network_name = ?`, name)
		if err != nil {
			return fmt.Errorf("list vpns: %w", err)
		}
		vpns, err := collect(rows, scanString)
		if err != nil {
			return fmt.Errorf("list vpns: %w", err)
		}
		if len(vpns) > 0 && !opts.Cascade {
			return fmt.Errorf("%w: network %q has %d vpn(s)", ErrHasChildren, name, len(vpns))
		}

		for _, v := range vpns {
			r, err := deleteVpn(ctx, tx, v)
			if err != nil {
				return err
			}
			rm.add(r)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE name = ?`, name); err != nil {
			return fmt.Errorf("delete network: %w", err)
		}
		rm.Networks++
		return nil
	})
	if err != nil {
		return Removal{}, err
	}
	return rm, nil
}

func requireNetwork(ctx context.Context, db querier, name string) error {
	ok, err := exists(ctx, db, `SELECT 1 FROM networks WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("check network: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: network %q", ErrNotFound, name)
	}
	return nil
}

func scanString(sc scanner) (string, error) {
	var s string
	err := sc.Scan(&s)
	return s, err
}

func deref(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
