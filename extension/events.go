// events.go defines the event types for extension notifications.
//
// The inventory service fires an event after every committed change.
// Events are notifications, not approval requests: extensions observe after
// the fact and cannot veto an operation.

package extension

// EventType identifies the kind of event.
type EventType string

const (
	EventNetworkAdd      EventType = "network:add"
	EventNetworkUpdate   EventType = "network:update"
	EventNetworkRemove   EventType = "network:remove"
	EventVpnAdd          EventType = "vpn:add"
	EventVpnUpdate       EventType = "vpn:update"
	EventVpnRemove       EventType = "vpn:remove"
	EventPeerAdd         EventType = "peer:add"
	EventPeerUpdate      EventType = "peer:update"
	EventPeerRemove      EventType = "peer:remove"
	EventAllowedIPAdd    EventType = "allowed-ip:add"
	EventAllowedIPRemove EventType = "allowed-ip:remove"
	EventPSKSet          EventType = "psk:set"
	EventPSKRemove       EventType = "psk:remove"
)

// Event is the base interface for all events.
type Event interface {
	EventType() EventType
	// EventRows is the number of rows the change touched, cascades included.
	EventRows() int64
}

// ChangeEvent is fired after a record is added, updated or removed.
// It carries no names or addresses, only what happened.
type ChangeEvent struct {
	Type EventType
	Rows int64
}

func (e ChangeEvent) EventType() EventType { return e.Type }
func (e ChangeEvent) EventRows() int64     { return e.Rows }

// EventHandler is implemented by extensions that want to receive events.
type EventHandler interface {
	HandleEvent(ctx Context, e Event) error
}
