// stats.go implements aggregate queries for status output.

package store

import (
	"context"
	"fmt"
)

// Stats counts the rows of every inventory table.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	v, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	st.SchemaVersion = v

	counts := []struct {
		q   string
		dst *int64
	}{
		{`SELECT COUNT(*) FROM networks`, &st.Networks},
		{`SELECT COUNT(*) FROM vpns`, &st.Vpns},
		{`SELECT COUNT(*) FROM peers`, &st.Peers},
		{`SELECT COUNT(*) FROM peers WHERE status = 'active'`, &st.ActivePeers},
		{`SELECT COUNT(*) FROM allowed_ips`, &st.AllowedIPs},
		{`SELECT COUNT(*) FROM preshared_keys`, &st.PresharedKeys},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.q).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}
	return &st, nil
}
