package extensions

import (
	"log"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/dalnet/ircore/internal/numerics"
)

// StartTLS upgrades a plaintext connection through the "tls" cap before
// registration continues.
type StartTLS struct {
	conn extension.Conn

	pending *event.Event
}

// NewStartTLS returns a factory for the StartTLS extension.
func NewStartTLS() extension.Factory {
	return func(conn extension.Conn) extension.Extension {
		return &StartTLS{conn: conn}
	}
}

func (s *StartTLS) Name() string { return "starttls" }

func (s *StartTLS) Describe() extension.Descriptor {
	return extension.Descriptor{
		Requires: []string{"cap"},
		Commands: map[string]event.Callback{
			numerics.RPL_STARTTLS: s.accepted,
			numerics.ERR_STARTTLS: s.failed,
		},
		Hooks: map[string]event.Callback{
			extension.HookDisconnected: s.disconnected,
		},
		Events: []extension.Subscription{
			{Class: ClassCapPerform, Name: "ack", Priority: extension.PriorityFirst, Override: true, Func: s.ack},
		},
	}
}

// Caps asks for "tls" unless the socket is already encrypted.
func (s *StartTLS) Caps() map[string][]string {
	if s.conn.Secure() {
		return nil
	}
	return map[string][]string{"tls": nil}
}

func (s *StartTLS) ack(ev *event.Event) error {
	ce := ev.Payload.(*CapEvent)
	if !ce.Has("tls") || s.pending != nil || s.conn.Secure() {
		return nil
	}

	log.Println("Requesting STARTTLS upgrade")
	if err := s.conn.Send("STARTTLS"); err != nil {
		return err
	}
	s.pending = ev
	ev.Status = event.StatusPause
	return nil
}

func (s *StartTLS) accepted(ev *event.Event) error {
	if s.pending == nil {
		return nil
	}
	if err := s.conn.StartTLS(); err != nil {
		log.Printf("STARTTLS failed, connection is not secure: %v", err)
	}
	return s.resume()
}

func (s *StartTLS) failed(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	log.Printf("Server refused STARTTLS, connection is not secure: %s", l.Last())
	return s.resume()
}

func (s *StartTLS) resume() error {
	ev := s.pending
	s.pending = nil
	if ev == nil {
		return nil
	}
	c, ok := s.conn.Extension("cap").(*CapNegotiate)
	if !ok {
		return nil
	}
	return c.Continue(ev)
}

func (s *StartTLS) disconnected(ev *event.Event) error {
	s.pending = nil
	return nil
}
