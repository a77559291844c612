// peers.go implements the peers table.
//
// Peers are keyed by (vpn_name, name). allowed_ips and preshared_keys refer
// to peers through that composite key without a SQL foreign key, so every
// rename and delete here rewrites or removes those rows in the same
// transaction.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const peerCols = `vpn_name, name, index_in_vpn, privkey, pubkey, address_v4, address_v6, endpoint, dns, status`

func scanPeer(sc scanner) (Peer, error) {
	var p Peer
	var idx sql.NullInt64
	var endpoint, dns sql.NullString
	var status string
	err := sc.Scan(&p.VpnName, &p.Name, &idx, &p.PrivateKey, &p.PublicKey,
		&p.AddressV4, &p.AddressV6, &endpoint, &dns, &status)
	if err != nil {
		return p, err
	}
	p.IndexInVpn = intPtr(idx)
	p.Endpoint = endpoint.String
	p.DNS = dns.String
	p.Status = Status(status)
	return p, nil
}

// ListPeers returns the peers of a VPN ordered by name. The VPN must exist.
func (s *SQLiteStore) ListPeers(ctx context.Context, vpn string) ([]Peer, error) {
	if err := requireVpn(ctx, s.db, vpn); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+peerCols+` FROM peers WHERE vpn_name = ? ORDER BY name`, vpn)
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	return collect(rows, scanPeer)
}

// GetPeer returns one peer or ErrNotFound.
func (s *SQLiteStore) GetPeer(ctx context.Context, vpn, name string) (*Peer, error) {
	p, err := scanPeer(s.db.QueryRowContext(ctx,
		`SELECT `+peerCols+` FROM peers WHERE vpn_name = ? AND name = ?`, vpn, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: peer %q in vpn %q", ErrNotFound, name, vpn)
	}
	if err != nil {
		return nil, fmt.Errorf("get peer: %w", err)
	}
	return &p, nil
}

// AddPeer inserts p. Its VPN must exist. An empty status means active.
func (s *SQLiteStore) AddPeer(ctx context.Context, p Peer) error {
	if p.Status == "" {
		p.Status = StatusActive
	}
	if _, err := ParseStatus(string(p.Status)); err != nil {
		return err
	}
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requireVpn(ctx, tx, p.VpnName); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO peers (`+peerCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.VpnName, p.Name, nullInt(p.IndexInVpn), p.PrivateKey, p.PublicKey,
			p.AddressV4, p.AddressV6, nullString(p.Endpoint), nullString(p.DNS), string(p.Status))
		if err != nil {
			return constraintErr(err, fmt.Sprintf("peer %q in vpn %q", p.Name, p.VpnName))
		}
		return nil
	})
}

// UpdatePeer changes the fields set in u. Setting an address explicitly
// clears index_in_vpn.
func (s *SQLiteStore) UpdatePeer(ctx context.Context, vpn, name string, u PeerUpdate) error {
	if u.Status != nil {
		if _, err := ParseStatus(string(*u.Status)); err != nil {
			return err
		}
	}

	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+` = ?`)
		args = append(args, v)
	}
	if u.NewName != nil {
		set(`name`, *u.NewName)
	}
	if u.Endpoint != nil {
		set(`endpoint`, nullString(*u.Endpoint))
	}
	if u.DNS != nil {
		set(`dns`, nullString(*u.DNS))
	}
	if u.Status != nil {
		set(`status`, string(*u.Status))
	}
	if u.PublicKey != nil {
		set(`pubkey`, *u.PublicKey)
	}
	if u.PrivateKey != nil {
		set(`privkey`, *u.PrivateKey)
	}
	if u.AddressV4 != nil {
		set(`address_v4`, *u.AddressV4)
	}
	if u.AddressV6 != nil {
		set(`address_v6`, *u.AddressV6)
	}
	if u.AddressV4 != nil || u.AddressV6 != nil {
		sets = append(sets, `index_in_vpn = NULL`)
	}

	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requirePeer(ctx, tx, vpn, name); err != nil {
			return err
		}
		if len(sets) == 0 {
			return nil
		}
		args = append(args, vpn, name)
		if _, err := tx.ExecContext(ctx,
			`UPDATE peers SET `+strings.Join(sets, `, `)+` WHERE vpn_name = ? AND name = ?`, args...); err != nil {
			return constraintErr(err, fmt.Sprintf("peer %q in vpn %q", deref(u.NewName, name), vpn))
		}
		if u.NewName == nil || *u.NewName == name {
			return nil
		}
		return renamePeerRefs(ctx, tx, vpn, name, *u.NewName)
	})
}

// renamePeerRefs rewrites allowed_ips and preshared_keys after a peer
// rename. Preshared key rows are reinserted so the pair stays ordered.
func renamePeerRefs(ctx context.Context, tx *sql.Tx, vpn, from, to string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE allowed_ips SET peer_name = ? WHERE peer_vpn = ? AND peer_name = ?`,
		to, vpn, from); err != nil {
		return fmt.Errorf("rename allowed ips: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT vpn, peer1, peer2, key FROM preshared_keys
		 WHERE vpn = ? AND (peer1 = ? OR peer2 = ?)`, vpn, from, from)
	if err != nil {
		return fmt.Errorf("rename preshared keys: %w", err)
	}
	keys, err := collect(rows, scanPresharedKey)
	if err != nil {
		return fmt.Errorf("rename preshared keys: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM preshared_keys WHERE vpn = ? AND (peer1 = ? OR peer2 = ?)`,
		vpn, from, from); err != nil {
		return fmt.Errorf("rename preshared keys: %w", err)
	}
	for _, k := range keys {
		if k.Peer1 == from {
			k.Peer1 = to
		} else {
			k.Peer2 = to
		}
		k = k.Canonical()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO preshared_keys (vpn, peer1, peer2, key) VALUES (?, ?, ?, ?)`,
			k.Vpn, k.Peer1, k.Peer2, k.Key); err != nil {
			return fmt.Errorf("rename preshared keys: %w", err)
		}
	}
	return nil
}

// RemovePeer deletes a peer together with its allowed IPs and preshared
// keys.
func (s *SQLiteStore) RemovePeer(ctx context.Context, vpn, name string) (Removal, error) {
	var rm Removal
	err := s.Tx(ctx, func(tx *sql.Tx) error {
		if err := requirePeer(ctx, tx, vpn, name); err != nil {
			return err
		}
		steps := []struct {
			q    string
			args []any
			dst  *int64
		}{
			{`DELETE FROM allowed_ips WHERE peer_vpn = ? AND peer_name = ?`, []any{vpn, name}, &rm.AllowedIPs},
			{`DELETE FROM preshared_keys WHERE vpn = ? AND (peer1 = ? OR peer2 = ?)`, []any{vpn, name, name}, &rm.PresharedKeys},
			{`DELETE FROM peers WHERE vpn_name = ? AND name = ?`, []any{vpn, name}, &rm.Peers},
		}
		for _, st := range steps {
			res, err := tx.ExecContext(ctx, st.q, st.args...)
			if err != nil {
				return fmt.Errorf("delete peer: %w", err)
			}
			*st.dst, _ = res.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return Removal{}, err
	}
	return rm, nil
}

func requirePeer(ctx context.Context, db querier, vpn, name string) error {
	if err := requireVpn(ctx, db, vpn); err != nil {
		return err
	}
	ok, err := exists(ctx, db, `SELECT 1 FROM peers WHERE vpn_name = ? AND name = ?`, vpn, name)
	if err != nil {
		return fmt.Errorf("check peer: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: peer %q in vpn %q", ErrNotFound, name, vpn)
	}
	return nil
}
