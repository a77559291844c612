// Package inventory implements service.Service on top of a store.Store.
// It validates input, allocates addresses and keys, and fires extension
// events after each committed change.
package inventory

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/ipam"
	"github.com/jpl-au/vpnutils/internal/log"
	"github.com/jpl-au/vpnutils/internal/service"
	"github.com/jpl-au/vpnutils/internal/store"
	"github.com/jpl-au/vpnutils/internal/validate"
)

// Options configures allocation.
type Options struct {
	// PrefixV4 and PrefixV6 size auto-allocated VPN subnets. Zero selects
	// the ipam defaults.
	PrefixV4 int
	PrefixV6 int
}

// Service is the inventory business layer.
type Service struct {
	store    store.Store
	prefixV4 int
	prefixV6 int
	extCtx   extension.Context // for firing events to extensions
}

var _ service.Service = (*Service)(nil)

// New wraps st. The Service takes ownership of st and closes it in Close.
func New(st store.Store, opts Options) *Service {
	s := &Service{store: st, prefixV4: opts.PrefixV4, prefixV6: opts.PrefixV6}
	if s.prefixV4 == 0 {
		s.prefixV4 = ipam.DefaultVpnPrefixV4
	}
	if s.prefixV6 == 0 {
		s.prefixV6 = ipam.DefaultVpnPrefixV6
	}
	return s
}

// Close releases the store handle.
func (s *Service) Close() error {
	return s.store.Close()
}

// SetExtensionContext sets the extension context for firing events.
// Called from cmd once the session context exists.
func (s *Service) SetExtensionContext(ctx extension.Context) {
	s.extCtx = ctx
}

// fireEvent notifies all registered extension event handlers. Handler
// errors are logged, not returned: the change is already committed.
func (s *Service) fireEvent(t extension.EventType, rows int64) {
	if s.extCtx == nil {
		return
	}
	e := extension.ChangeEvent{Type: t, Rows: rows}
	for _, ext := range extension.All() {
		if h, ok := ext.(extension.EventHandler); ok {
			if err := h.HandleEvent(s.extCtx, e); err != nil {
				log.Event("event:error", "error").
					Detail("ext", ext.Name()).
					Detail("event", string(t)).
					Write(err)
			}
		}
	}
}

// Stats returns table counts.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Stats(ctx)
}

// Dump renders the inventory with secrets fingerprinted.
func (s *Service) Dump(ctx context.Context) (string, error) {
	return s.store.Dump(ctx)
}

// parsePrefix parses a user-supplied or stored CIDR of one family.
func parsePrefix(s string, family int) (netip.Prefix, error) {
	p, err := ipam.ParsePrefix(s, family)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %w", validate.ErrInvalidAddress, err)
	}
	return p, nil
}

func parseAddr(s string, family int) (netip.Addr, error) {
	a, err := ipam.ParseAddr(s, family)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %w", validate.ErrInvalidAddress, err)
	}
	return a, nil
}
