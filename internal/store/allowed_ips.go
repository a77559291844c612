// allowed_ips.go implements the allowed_ips table.

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func scanAllowedIP(sc scanner) (AllowedIP, error) {
	var a AllowedIP
	err := sc.Scan(&a.PeerVpn, &a.PeerName, &a.Address)
	return a, err
}

// ListAllowedIPs returns the allowed IPs of one peer, or of the whole VPN
// when peer is empty.
func (s *SQLiteStore) ListAllowedIPs(ctx context.Context, vpn, peer string) ([]AllowedIP, error) {
	q := `SELECT peer_vpn, peer_name, address FROM allowed_ips WHERE peer_vpn = ?`
	args := []any{vpn}
	if peer == "" {
		if err := requireVpn(ctx, s.db, vpn); err != nil {
			return nil, err
		}
	} else {
		if err := requirePeer(ctx, s.db, vpn, peer); err != nil {
			return nil, err
		}
		q += ` AND peer_name = ?`
		args = append(args, peer)
	}
	q += ` ORDER BY peer_name, address`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list allowed ips: %w", err)
	}
	return collect(rows, scanAllowedIP)
}

// AddAllowedIP attaches an address to an existing peer.
func (s *SQLiteStore) AddAllowedIP(ctx context.Context, a AllowedIP) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requirePeer(ctx, tx, a.PeerVpn, a.PeerName); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO allowed_ips (peer_vpn, peer_name, address) VALUES (?, ?, ?)`,
			a.PeerVpn, a.PeerName, a.Address)
		if err != nil {
			return constraintErr(err, fmt.Sprintf("allowed ip %s for peer %q", a.Address, a.PeerName))
		}
		return nil
	})
}

// RemoveAllowedIP deletes one allowed IP, or returns ErrNotFound.
func (s *SQLiteStore) RemoveAllowedIP(ctx context.Context, a AllowedIP) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM allowed_ips WHERE peer_vpn = ? AND peer_name = ? AND address = ?`,
		a.PeerVpn, a.PeerName, a.Address)
	if err != nil {
		return fmt.Errorf("delete allowed ip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: allowed ip %s for peer %q in vpn %q", ErrNotFound, a.Address, a.PeerName, a.PeerVpn)
	}
	return nil
}
