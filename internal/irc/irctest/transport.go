// Package irctest provides an in-memory transport for driving a session in
// tests: written lines are recorded and timers only fire when the test
// advances the clock.
package irctest

import (
	"sort"
	"strings"
	"time"

	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
)

// Transport records outgoing lines and runs a manual clock.
type Transport struct {
	lines []*line.Line

	now    time.Duration
	seq    int
	timers []*Timer

	secure    bool
	tlsErr    error
	Upgrades  int
	WriteHook func(l *line.Line)
}

// NewTransport returns an empty transport.
func NewTransport() *Transport {
	return &Transport{}
}

// WriteLine records l.
func (t *Transport) WriteLine(l *line.Line) error {
	t.lines = append(t.lines, l)
	if t.WriteHook != nil {
		t.WriteHook(l)
	}
	return nil
}

// Lines returns everything written so far.
func (t *Transport) Lines() []*line.Line {
	return append([]*line.Line(nil), t.lines...)
}

// Strings returns the written lines serialized, without CRLF.
func (t *Transport) Strings() []string {
	out := make([]string, len(t.lines))
	for i, l := range t.lines {
		out[i] = strings.TrimSuffix(l.String(), "\r\n")
	}
	return out
}

// Last returns the most recent line, or nil.
func (t *Transport) Last() *line.Line {
	if len(t.lines) == 0 {
		return nil
	}
	return t.lines[len(t.lines)-1]
}

// Drain returns the written lines as strings and forgets them.
func (t *Transport) Drain() []string {
	out := t.Strings()
	t.lines = nil
	return out
}

// Count returns how many written lines have the given command.
func (t *Transport) Count(command string) int {
	n := 0
	for _, l := range t.lines {
		if l.Command == strings.ToUpper(command) {
			n++
		}
	}
	return n
}

// Timer is a scheduled callback on the manual clock.
type Timer struct {
	at      time.Duration
	seq     int
	fn      func()
	pending bool
}

func (tm *Timer) Pending() bool { return tm.pending }

// Schedule queues fn to run once the clock has advanced by d.
func (t *Transport) Schedule(d time.Duration, fn func()) extension.Timer {
	tm := &Timer{at: t.now + d, seq: t.seq, fn: fn, pending: true}
	t.seq++
	t.timers = append(t.timers, tm)
	return tm
}

// Unschedule cancels a timer that has not fired.
func (t *Transport) Unschedule(et extension.Timer) {
	if tm, ok := et.(*Timer); ok {
		tm.pending = false
	}
}

// Advance moves the clock forward, running due timers in order. Timers
// scheduled by a running timer fire in the same call if they fall due.
func (t *Transport) Advance(d time.Duration) {
	end := t.now + d
	for {
		sort.SliceStable(t.timers, func(i, j int) bool {
			if t.timers[i].at != t.timers[j].at {
				return t.timers[i].at < t.timers[j].at
			}
			return t.timers[i].seq < t.timers[j].seq
		})

		var next *Timer
		for _, tm := range t.timers {
			if tm.pending {
				next = tm
				break
			}
		}
		if next == nil || next.at > end {
			break
		}

		t.now = next.at
		next.pending = false
		next.fn()
	}
	t.now = end

	live := t.timers[:0]
	for _, tm := range t.timers {
		if tm.pending {
			live = append(live, tm)
		}
	}
	t.timers = live
}

// Pending returns the number of timers that have not fired or been
// cancelled.
func (t *Transport) Pending() int {
	n := 0
	for _, tm := range t.timers {
		if tm.pending {
			n++
		}
	}
	return n
}

func (t *Transport) Secure() bool { return t.secure }

// SetSecure marks the transport as already running over TLS.
func (t *Transport) SetSecure(secure bool) { t.secure = secure }

// FailTLS makes the next StartTLS calls return err.
func (t *Transport) FailTLS(err error) { t.tlsErr = err }

// StartTLS records an upgrade.
func (t *Transport) StartTLS() error {
	if t.tlsErr != nil {
		return t.tlsErr
	}
	t.Upgrades++
	t.secure = true
	return nil
}
