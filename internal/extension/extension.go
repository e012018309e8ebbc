// Package extension loads behavior units onto a connection's event bus.
//
// An extension describes what it handles with a Descriptor: command
// handlers keyed by command word or numeric, hook handlers keyed by hook
// name, and subscriptions to any other event class. The Registry validates
// the declared dependencies, then registers every handler on the bus at
// the extension's priority.
package extension

import (
	"time"

	"github.com/dalnet/ircore/internal/event"
)

// Event classes dispatched by the connection.
const (
	ClassCommands    = "commands"     // inbound lines, by lower-cased command
	ClassCommandsOut = "commands_out" // outbound lines; Cancel drops the line
	ClassHooks       = "hooks"        // lifecycle hooks
)

// Hooks dispatched in ClassHooks.
const (
	HookConnected     = "connected"
	HookDisconnected  = "disconnected"
	HookExtensionPost = "extension_post"
)

// Handler priorities. Lower runs earlier.
const (
	PriorityFirst    = -1000
	PriorityDontCare = 0
	PriorityLast     = 1000
)

// Timer is the handle returned by Conn.Schedule.
type Timer interface {
	// Pending reports whether the callback has neither run nor been
	// unscheduled.
	Pending() bool
}

// Conn is everything an extension may do to the connection that owns it.
type Conn interface {
	Send(command string, params ...string) error
	// Quit sends QUIT once; later calls on the same connection do nothing.
	Quit(message string)
	Schedule(d time.Duration, fn func()) Timer
	Unschedule(t Timer)

	Extension(name string) Extension
	Extensions() []Extension
	Dispatch(class, name string, payload any) (*event.Event, error)
	Resume(ev *event.Event) (*event.Event, error)

	Nick() string
	SetNick(nick string)
	Registered() bool
	SetRegistered(registered bool)

	// Secure reports whether the socket is TLS.
	Secure() bool
	// StartTLS upgrades the socket in place. It is called from a handler
	// once the server has accepted STARTTLS.
	StartTLS() error
}

// Extension is a loaded behavior unit.
type Extension interface {
	Name() string
	Describe() Descriptor
}

// Descriptor lists an extension's dependencies and handlers. Describe
// returns a fresh Descriptor on every call.
type Descriptor struct {
	Priority int
	Requires []string

	Commands map[string]event.Callback
	Hooks    map[string]event.Callback
	Events   []Subscription
}

// Subscription registers a handler for an arbitrary event class. The
// descriptor's priority applies unless Override is set.
type Subscription struct {
	Class    string
	Name     string
	Priority int
	Override bool
	Func     event.Callback
}

// Factory creates an extension bound to a connection.
type Factory func(Conn) Extension
