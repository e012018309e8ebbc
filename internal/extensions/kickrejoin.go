package extensions

import (
	"log"
	"strings"
	"time"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
)

// DefaultRejoinDelay is how long KickRejoin waits before rejoining.
const DefaultRejoinDelay = 5 * time.Second

// KickRejoin rejoins channels we were kicked from. A PART we did not send
// ourselves (a forced REMOVE) is treated the same way.
type KickRejoin struct {
	conn  extension.Conn
	delay time.Duration

	// Folded channel names.
	parts     map[string]bool
	scheduled map[string]extension.Timer
}

// NewKickRejoin returns a factory for the KickRejoin extension. A zero
// delay means DefaultRejoinDelay.
func NewKickRejoin(delay time.Duration) extension.Factory {
	if delay <= 0 {
		delay = DefaultRejoinDelay
	}
	return func(conn extension.Conn) extension.Extension {
		return &KickRejoin{
			conn:      conn,
			delay:     delay,
			parts:     make(map[string]bool),
			scheduled: make(map[string]extension.Timer),
		}
	}
}

func (k *KickRejoin) Name() string { return "kickrejoin" }

func (k *KickRejoin) Describe() extension.Descriptor {
	return extension.Descriptor{
		Priority: extension.PriorityLast,
		Requires: []string{"basicrfc", "isupport"},
		Commands: map[string]event.Callback{
			"KICK": k.kick,
			"PART": k.part,
		},
		Hooks: map[string]event.Callback{
			extension.HookDisconnected: k.disconnected,
		},
		Events: []extension.Subscription{
			{Class: extension.ClassCommandsOut, Name: "part", Func: k.partOut},
		},
	}
}

// partOut remembers channels we leave on purpose.
func (k *KickRejoin) partOut(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if len(l.Params) == 0 {
		return nil
	}
	cm := caseMapping(k.conn)
	for _, channel := range strings.Split(l.Params[0], ",") {
		if channel != "" {
			k.parts[cm.Fold(channel)] = true
		}
	}
	return nil
}

func (k *KickRejoin) kick(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	// <channel> <nick> [:<reason>]
	if len(l.Params) < 2 || !sameName(k.conn, l.Params[1], k.conn.Nick()) {
		return nil
	}
	log.Printf("Kicked from %s by %s: %s", l.Params[0], l.Nick(), l.Param(2))
	k.rejoin(l.Params[0])
	return nil
}

func (k *KickRejoin) part(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if len(l.Params) == 0 || !sameName(k.conn, l.Nick(), k.conn.Nick()) {
		return nil
	}

	cm := caseMapping(k.conn)
	for _, channel := range strings.Split(l.Params[0], ",") {
		key := cm.Fold(channel)
		if k.parts[key] {
			delete(k.parts, key)
			continue
		}
		log.Printf("Removed from %s: %s", channel, l.Param(1))
		k.rejoin(channel)
	}
	return nil
}

func (k *KickRejoin) rejoin(channel string) {
	key := caseMapping(k.conn).Fold(channel)
	delete(k.parts, key)
	if _, ok := k.scheduled[key]; ok {
		return
	}

	k.scheduled[key] = k.conn.Schedule(k.delay, func() {
		delete(k.scheduled, key)
		if err := k.conn.Send("JOIN", channel); err != nil {
			log.Printf("kickrejoin: %v", err)
		}
	})
}

// Pending reports whether a rejoin of channel is scheduled.
func (k *KickRejoin) Pending(channel string) bool {
	_, ok := k.scheduled[caseMapping(k.conn).Fold(channel)]
	return ok
}

func (k *KickRejoin) disconnected(ev *event.Event) error {
	for _, t := range k.scheduled {
		k.conn.Unschedule(t)
	}
	k.scheduled = make(map[string]extension.Timer)
	k.parts = make(map[string]bool)
	return nil
}
