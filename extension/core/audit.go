// audit.go records inventory change events in the audit log.
//
// Only the event type and the number of rows touched are recorded. Names,
// addresses and keys never reach the log.

package core

import (
	"github.com/jpl-au/vpnutils/extension"
	"github.com/jpl-au/vpnutils/internal/log"
)

// HandleEvent writes one audit entry per committed change.
func (e *Extension) HandleEvent(_ extension.Context, ev extension.Event) error {
	log.Event("event:"+string(ev.EventType()), "change").Rows(ev.EventRows()).Write(nil)
	return nil
}
