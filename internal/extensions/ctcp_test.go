package extensions

import (
	"testing"
	"time"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
)

func TestCTCPReplies(t *testing.T) {
	s, tr := newSession(t, NewBasicRFC(Identity{}), NewCTCP("ircore test"))
	c := s.Extension("ctcp").(*CTCP)
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	recv(t, s,
		":bob!b@example.com PRIVMSG tester :\x01VERSION\x01",
		":bob!b@example.com PRIVMSG tester :\x01PING 12345\x01",
		":bob!b@example.com PRIVMSG tester :\x01TIME\x01",
		":bob!b@example.com PRIVMSG tester :plain text",
	)
	expectLines(t, tr,
		"NOTICE bob :\x01VERSION ircore test\x01",
		"NOTICE bob :\x01PING 12345\x01",
		"NOTICE bob :\x01TIME Tue, 02 Jan 2024 03:04:05 +0000\x01",
	)
}

func TestCTCPEvents(t *testing.T) {
	rec := &recorder{class: ClassCommandsNCTCP}
	s, tr := newSession(t, NewBasicRFC(Identity{}), NewCTCP("v"), rec.factory())

	recv(t, s, ":bob!b@example.com NOTICE tester :\x01VERSION mIRC\x01")
	expectLines(t, tr)
	if len(rec.events) != 1 {
		t.Fatalf("Expected one reply event, got %d", len(rec.events))
	}
	ce := rec.events[0].Payload.(*CTCPEvent)
	if ce.Command != "VERSION" || ce.Param != "mIRC" || ce.Target != "bob" || ce.Line.Command != "NOTICE" {
		t.Errorf("Unexpected event: %+v", ce.CTCPMessage)
	}
}

func TestCTCPSend(t *testing.T) {
	s, tr := newSession(t, NewBasicRFC(Identity{}), NewCTCP("v"))
	c := s.Extension("ctcp").(*CTCP)

	c.Send("#chan", "action", "waves")
	c.Reply("bob", "ping", "")
	expectLines(t, tr,
		"PRIVMSG #chan :\x01ACTION waves\x01",
		"NOTICE bob \x01PING\x01",
	)
}

func TestCTCPTerminate(t *testing.T) {
	s, tr := newSession(t, NewBasicRFC(Identity{}), NewCTCP("v1"))
	s.Bus().Register(ClassCommandsCTCP, "version", extension.PriorityLast+1, func(ev *event.Event) error {
		ev.Status = event.StatusTerminateSoon
		return nil
	})

	recv(t, s, ":bob!b@example.com PRIVMSG tester :\x01VERSION\x01")
	expectLines(t, tr, "NOTICE bob :\x01VERSION v1\x01", "QUIT :Plugin requested termination")
}
