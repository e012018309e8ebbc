package extensions

import (
	"log"
	"strings"
	"time"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/numerics"
)

// Autojoin spacing.
const (
	DefaultJoinDelay    = 750 * time.Millisecond
	DefaultJoinInterval = 250 * time.Millisecond
)

// AutoJoin joins channels once registration completes, one at a time so
// the joins do not flood us off the network. A channel entry may carry a
// key after a space: "#secret hunter2".
type AutoJoin struct {
	conn     extension.Conn
	channels []string
	delay    time.Duration
	interval time.Duration

	timers []extension.Timer
}

// NewAutoJoin returns a factory for the AutoJoin extension.
func NewAutoJoin(channels []string) extension.Factory {
	return func(conn extension.Conn) extension.Extension {
		return &AutoJoin{
			conn:     conn,
			channels: channels,
			delay:    DefaultJoinDelay,
			interval: DefaultJoinInterval,
		}
	}
}

func (a *AutoJoin) Name() string { return "autojoin" }

func (a *AutoJoin) Describe() extension.Descriptor {
	return extension.Descriptor{
		Commands: map[string]event.Callback{
			numerics.RPL_WELCOME: a.welcome,
		},
		Hooks: map[string]event.Callback{
			extension.HookDisconnected: a.disconnected,
		},
	}
}

func (a *AutoJoin) welcome(ev *event.Event) error {
	a.cancel()
	wait := a.delay
	for _, entry := range a.channels {
		params := strings.Fields(entry)
		if len(params) == 0 {
			continue
		}
		if len(params) > 2 {
			params = params[:2]
		}
		a.timers = append(a.timers, a.conn.Schedule(wait, func() {
			if err := a.conn.Send("JOIN", params...); err != nil {
				log.Printf("autojoin: %v", err)
			}
		}))
		wait += a.interval
	}
	return nil
}

func (a *AutoJoin) cancel() {
	for _, t := range a.timers {
		a.conn.Unschedule(t)
	}
	a.timers = nil
}

func (a *AutoJoin) disconnected(ev *event.Event) error {
	a.cancel()
	return nil
}
