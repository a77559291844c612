// preshared_keys.go implements the preshared_keys table.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func scanPresharedKey(sc scanner) (PresharedKey, error) {
	var k PresharedKey
	err := sc.Scan(&k.Vpn, &k.Peer1, &k.Peer2, &k.Key)
	return k, err
}

// ListPresharedKeys returns every pair in a VPN.
func (s *SQLiteStore) ListPresharedKeys(ctx context.Context, vpn string) ([]PresharedKey, error) {
	if err := requireVpn(ctx, s.db, vpn); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT vpn, peer1, peer2, key FROM preshared_keys WHERE vpn = ? ORDER BY peer1, peer2`, vpn)
	if err != nil {
		return nil, fmt.Errorf("list preshared keys: %w", err)
	}
	return collect(rows, scanPresharedKey)
}

// GetPresharedKey looks up a pair in either order.
func (s *SQLiteStore) GetPresharedKey(ctx context.Context, vpn, peer1, peer2 string) (*PresharedKey, error) {
	c := PresharedKey{Vpn: vpn, Peer1: peer1, Peer2: peer2}.Canonical()
	k, err := scanPresharedKey(s.db.QueryRowContext(ctx,
		`SELECT vpn, peer1, peer2, key FROM preshared_keys WHERE vpn = ? AND peer1 = ? AND peer2 = ?`,
		c.Vpn, c.Peer1, c.Peer2))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: preshared key %q/%q in vpn %q", ErrNotFound, c.Peer1, c.Peer2, vpn)
	}
	if err != nil {
		return nil, fmt.Errorf("get preshared key: %w", err)
	}
	return &k, nil
}

// SetPresharedKey stores the key for a pair of distinct peers of the same
// VPN, replacing any existing key for that pair.
func (s *SQLiteStore) SetPresharedKey(ctx context.Context, k PresharedKey) error {
	if k.Peer1 == k.Peer2 {
		return fmt.Errorf("%w: %q", ErrSamePeer, k.Peer1)
	}
	k = k.Canonical()
	return s.Tx(ctx, func(tx *sql.Tx) error {
		for _, p := range []string{k.Peer1, k.Peer2} {
			if err := requirePeer(ctx, tx, k.Vpn, p); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO preshared_keys (vpn, peer1, peer2, key) VALUES (?, ?, ?, ?)
			 ON CONFLICT (vpn, peer1, peer2) DO UPDATE SET key = excluded.key`,
			k.Vpn, k.Peer1, k.Peer2, k.Key)
		if err != nil {
			return fmt.Errorf("set preshared key: %w", err)
		}
		return nil
	})
}

// RemovePresharedKey deletes the key for a pair given in either order.
func (s *SQLiteStore) RemovePresharedKey(ctx context.Context, vpn, peer1, peer2 string) error {
	c := PresharedKey{Vpn: vpn, Peer1: peer1, Peer2: peer2}.Canonical()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM preshared_keys WHERE vpn = ? AND peer1 = ? AND peer2 = ?`,
		c.Vpn, c.Peer1, c.Peer2)
	if err != nil {
		return fmt.Errorf("delete preshared key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: preshared key %q/%q in vpn %q", ErrNotFound, c.Peer1, c.Peer2, vpn)
	}
	return nil
}
