// Package event implements the priority-ordered dispatcher every line, hook
// and extension-defined event goes through.
//
// Callbacks are registered per (class, name). Classes are fixed strings such
// as "commands" or "hooks"; names are matched case-insensitively. Callbacks
// run in ascending priority order, ties in registration order, and steer the
// dispatch by setting Event.Status.
package event

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
)

// ErrNotFound is returned by Unregister for a registration the bus does not
// hold.
var ErrNotFound = errors.New("registration not found")

// Status tells the dispatcher what to do after a callback returns.
type Status int

const (
	// StatusOk continues with the next callback.
	StatusOk Status = iota

	// StatusCancel skips the remaining callbacks of this dispatch.
	StatusCancel

	// StatusTerminateSoon asks the owning connection to quit gracefully.
	// The remaining callbacks still run.
	StatusTerminateSoon

	// StatusTerminateNow aborts the process.
	StatusTerminateNow

	// StatusPause stops the dispatch and keeps the remaining callbacks on
	// the event so Bus.Resume can run them later.
	StatusPause
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusCancel:
		return "cancel"
	case StatusTerminateSoon:
		return "terminate_soon"
	case StatusTerminateNow:
		return "terminate_now"
	case StatusPause:
		return "pause"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Event is passed to every callback of a dispatch. Callbacks may stash data
// for later callbacks (and the dispatcher's caller) with Set.
type Event struct {
	Class   string
	Name    string
	Status  Status
	Payload any

	values    map[string]any
	terminate bool
	pending   []*Registration
}

// Set stores a value on the event.
func (e *Event) Set(key string, value any) {
	if e.values == nil {
		e.values = make(map[string]any)
	}
	e.values[key] = value
}

// Value returns a value stored with Set.
func (e *Event) Value(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}

// TerminateSoon reports whether any callback asked for a graceful quit
// during this event's dispatch. The request is remembered even if a later
// callback changes Status.
func (e *Event) TerminateSoon() bool {
	return e.terminate
}

// Paused reports whether the dispatch stopped on StatusPause and has
// callbacks left to resume.
func (e *Event) Paused() bool {
	return e.pending != nil
}

// Callback handles an event. A returned error stops the dispatch and is
// handed back to the dispatcher's caller.
type Callback func(ev *Event) error

// Registration is the handle returned by Register.
type Registration struct {
	Class    string
	Name     string
	Priority int

	seq     uint64
	fn      Callback
	removed bool
}

type bucketKey struct {
	class string
	name  string
}

// Bus holds callback registrations. It is not safe for concurrent use;
// callers serialize access (the transport runs everything on one loop).
type Bus struct {
	buckets map[bucketKey][]*Registration
	seq     uint64

	// Terminate is called when a callback sets StatusTerminateNow. The
	// default logs and exits the process.
	Terminate func(ev *Event)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		buckets:   make(map[bucketKey][]*Registration),
		Terminate: defaultTerminate,
	}
}

func defaultTerminate(ev *Event) {
	log.Fatalf("event: %s/%s requested immediate termination", ev.Class, ev.Name)
}

func keyOf(class, name string) bucketKey {
	return bucketKey{class: class, name: strings.ToLower(name)}
}

// Register adds a callback for (class, name). Lower priorities run first.
func (b *Bus) Register(class, name string, priority int, fn Callback) *Registration {
	k := keyOf(class, name)
	r := &Registration{
		Class:    class,
		Name:     k.name,
		Priority: priority,
		seq:      b.seq,
		fn:       fn,
	}
	b.seq++

	list := append(b.buckets[k], r)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].seq < list[j].seq
	})
	b.buckets[k] = list
	return r
}

// Unregister removes a registration. A dispatch already in progress will
// not call it again.
func (b *Bus) Unregister(r *Registration) error {
	if r == nil {
		return ErrNotFound
	}
	k := bucketKey{class: r.Class, name: r.Name}
	list := b.buckets[k]
	for i, cur := range list {
		if cur != r {
			continue
		}
		next := make([]*Registration, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.buckets, k)
		} else {
			b.buckets[k] = next
		}
		r.removed = true
		return nil
	}
	return fmt.Errorf("%w: %s/%s", ErrNotFound, r.Class, r.Name)
}

// Len returns the number of callbacks registered for (class, name).
func (b *Bus) Len(class, name string) int {
	return len(b.buckets[keyOf(class, name)])
}

// Clear drops every registration.
func (b *Bus) Clear() {
	for _, list := range b.buckets {
		for _, r := range list {
			r.removed = true
		}
	}
	b.buckets = make(map[bucketKey][]*Registration)
}

// Dispatch runs the callbacks for (class, name) against a fresh event
// carrying payload. The returned event is never nil. Callbacks registered
// during the dispatch are not called by it.
func (b *Bus) Dispatch(class, name string, payload any) (*Event, error) {
	k := keyOf(class, name)
	ev := &Event{Class: class, Name: k.name, Payload: payload}

	list := b.buckets[k]
	if len(list) == 0 {
		return ev, nil
	}
	snapshot := make([]*Registration, len(list))
	copy(snapshot, list)
	return ev, b.run(ev, snapshot)
}

// Resume continues a paused event with the callbacks that had not run yet.
// Resuming an event that is not paused does nothing.
func (b *Bus) Resume(ev *Event) (*Event, error) {
	if ev == nil || ev.pending == nil {
		return ev, nil
	}
	rest := ev.pending
	ev.pending = nil
	ev.Status = StatusOk
	return ev, b.run(ev, rest)
}

func (b *Bus) run(ev *Event, list []*Registration) error {
	for i, r := range list {
		if r.removed {
			continue
		}
		if err := r.fn(ev); err != nil {
			return fmt.Errorf("%s/%s: %w", ev.Class, ev.Name, err)
		}

		switch ev.Status {
		case StatusOk:
		case StatusCancel:
			return nil
		case StatusTerminateSoon:
			ev.terminate = true
			ev.Status = StatusOk
		case StatusTerminateNow:
			b.Terminate(ev)
			return nil
		case StatusPause:
			// Non-nil even when empty: Paused stays true until Resume.
			ev.pending = list[i+1:]
			return nil
		}
	}
	return nil
}
