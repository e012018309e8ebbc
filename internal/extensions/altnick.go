package extensions

import (
	"log"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/dalnet/ircore/internal/numerics"
)

// maxAltAttempts bounds underscore appending when NICKLEN is unknown.
const maxAltAttempts = 5

// AltNick picks another nick when ours is refused during registration:
// first the configured alternate, then the nick with underscores appended.
type AltNick struct {
	conn      extension.Conn
	alternate string

	attempt  string
	attempts int
	triedAlt bool
	refused  string
}

// NewAltNick returns a factory for the AltNick extension.
func NewAltNick(alternate string) extension.Factory {
	return func(conn extension.Conn) extension.Extension {
		return &AltNick{conn: conn, alternate: alternate}
	}
}

func (a *AltNick) Name() string { return "altnick" }

func (a *AltNick) Describe() extension.Descriptor {
	return extension.Descriptor{
		Priority: extension.PriorityFirst,
		Commands: map[string]event.Callback{
			numerics.ERR_NICKNAMEINUSE:   a.nickRefused,
			numerics.ERR_ERRONEUSNICK:    a.nickRefused,
			numerics.ERR_NONICKNAMEGIVEN: a.nickRefused,
			numerics.ERR_NICKCOLLISION:   a.nickRefused,
			numerics.ERR_UNAVAILRESOURCE: a.nickRefused,
		},
		Hooks: map[string]event.Callback{
			extension.HookDisconnected: a.disconnected,
		},
	}
}

func (a *AltNick) nickRefused(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if a.conn.Registered() {
		log.Printf("Nick change refused (%s): %s", l.Command, l.Last())
		return nil
	}
	if a.attempt == "" {
		a.attempt = a.conn.Nick()
		a.refused = l.Command
	}

	next, ok := a.next()
	if !ok {
		log.Printf("Out of alternate nicks after %s", a.attempt)
		return nil
	}
	log.Printf("Nick %s refused (%s), trying %s", a.attempt, l.Command, next)
	a.attempt = next
	a.conn.SetNick(next)
	ev.Status = event.StatusCancel
	return a.conn.Send("NICK", next)
}

// Refused returns the numeric that first refused our nick on this
// connection, or "" if it was accepted.
func (a *AltNick) Refused() string { return a.refused }

func (a *AltNick) next() (string, bool) {
	if !a.triedAlt {
		a.triedAlt = true
		if a.alternate != "" && a.alternate != a.attempt {
			return a.alternate, true
		}
	}

	if is, ok := a.conn.Extension("isupport").(*ISupport); ok && is.NickLen() > 0 {
		if len(a.attempt) >= is.NickLen() {
			return "", false
		}
	} else if a.attempts >= maxAltAttempts {
		return "", false
	}
	a.attempts++
	return a.attempt + "_", true
}

func (a *AltNick) disconnected(ev *event.Event) error {
	a.attempt = ""
	a.attempts = 0
	a.triedAlt = false
	a.refused = ""
	return nil
}
