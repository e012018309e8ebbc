// Package extensions holds the stock behavior units a client loads: the
// registration handshake, capability negotiation with its STARTTLS and SASL
// sub-flows, and the small protocol helpers most connections want.
package extensions

import (
	"log"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/dalnet/ircore/internal/numerics"
)

// Identity is what BasicRFC registers with.
type Identity struct {
	ServerPass string
	Username   string
	RealName   string
}

// BasicRFC does the RFC 1459 registration handshake, answers PING and keeps
// track of our own nick.
type BasicRFC struct {
	conn extension.Conn
	id   Identity

	prevNick string
}

// NewBasicRFC returns a factory for the BasicRFC extension.
func NewBasicRFC(id Identity) extension.Factory {
	return func(conn extension.Conn) extension.Extension {
		return &BasicRFC{conn: conn, id: id}
	}
}

func (b *BasicRFC) Name() string { return "basicrfc" }

func (b *BasicRFC) Describe() extension.Descriptor {
	return extension.Descriptor{
		Priority: extension.PriorityLast,
		Commands: map[string]event.Callback{
			"PING":               b.ping,
			"NICK":               b.nick,
			"ERROR":              b.serverError,
			numerics.RPL_WELCOME: b.welcome,
		},
		Hooks: map[string]event.Callback{
			extension.HookConnected: b.handshake,
		},
	}
}

// PrevNick returns our nick before the last server-side change.
func (b *BasicRFC) PrevNick() string { return b.prevNick }

func (b *BasicRFC) handshake(ev *event.Event) error {
	if b.conn.Registered() {
		return nil
	}
	if b.id.ServerPass != "" {
		if err := b.conn.Send("PASS", b.id.ServerPass); err != nil {
			return err
		}
	}

	nick := b.conn.Nick()
	user, realname := b.id.Username, b.id.RealName
	if user == "" {
		user = nick
	}
	if realname == "" {
		realname = nick
	}
	if err := b.conn.Send("NICK", nick); err != nil {
		return err
	}
	return b.conn.Send("USER", user, "*", "*", realname)
}

func (b *BasicRFC) ping(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	return b.conn.Send("PONG", l.Params...)
}

func (b *BasicRFC) nick(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if len(l.Params) == 0 || !sameName(b.conn, l.Nick(), b.conn.Nick()) {
		return nil
	}
	b.prevNick = b.conn.Nick()
	b.conn.SetNick(l.Params[0])
	log.Printf("Nick changed from %s to %s", b.prevNick, l.Params[0])
	return nil
}

func (b *BasicRFC) welcome(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if nick := l.Param(0); nick != "" && nick != "*" {
		b.conn.SetNick(nick)
	}
	b.conn.SetRegistered(true)
	log.Printf("Registered as %s", b.conn.Nick())
	return nil
}

func (b *BasicRFC) serverError(ev *event.Event) error {
	log.Printf("Server closed the link: %s", ev.Payload.(*line.Line).Last())
	return nil
}
