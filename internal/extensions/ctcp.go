package extensions

import (
	"strings"
	"time"

	"github.com/dalnet/ircore/internal/auxparse"
	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
)

// Event classes raised by CTCP, named by lower-cased CTCP command, with a
// *CTCPEvent payload.
const (
	ClassCommandsCTCP  = "commands_ctcp"  // requests, sent as PRIVMSG
	ClassCommandsNCTCP = "commands_nctcp" // replies, sent as NOTICE
)

// CTCPEvent is a parsed CTCP message and the line that carried it.
type CTCPEvent struct {
	*auxparse.CTCPMessage
	Line *line.Line
}

// CTCP raises CTCP requests and replies as events and answers the common
// queries.
type CTCP struct {
	conn    extension.Conn
	version string
	now     func() time.Time
}

// NewCTCP returns a factory for the CTCP extension. version is the
// VERSION reply.
func NewCTCP(version string) extension.Factory {
	return func(conn extension.Conn) extension.Extension {
		return &CTCP{conn: conn, version: version, now: time.Now}
	}
}

func (c *CTCP) Name() string { return "ctcp" }

func (c *CTCP) Describe() extension.Descriptor {
	return extension.Descriptor{
		Commands: map[string]event.Callback{
			"PRIVMSG": c.incoming,
			"NOTICE":  c.incoming,
		},
		Events: []extension.Subscription{
			{Class: ClassCommandsCTCP, Name: "version", Func: c.replyVersion},
			{Class: ClassCommandsCTCP, Name: "ping", Func: c.replyPing},
			{Class: ClassCommandsCTCP, Name: "time", Func: c.replyTime},
			{Class: ClassCommandsCTCP, Name: "clientinfo", Func: c.replyClientInfo},
		},
	}
}

// Send sends a CTCP request to target.
func (c *CTCP) Send(target, command, param string) error {
	return c.send("PRIVMSG", target, command, param)
}

// Reply sends a CTCP reply to target.
func (c *CTCP) Reply(target, command, param string) error {
	return c.send("NOTICE", target, command, param)
}

func (c *CTCP) send(msgType, target, command, param string) error {
	m := &auxparse.CTCPMessage{
		MsgType:  msgType,
		Command:  strings.ToUpper(command),
		Target:   target,
		Param:    param,
		HasParam: param != "",
	}
	l := m.Line()
	return c.conn.Send(l.Command, l.Params...)
}

func (c *CTCP) incoming(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	m := auxparse.ParseCTCP(l)
	if m == nil {
		return nil
	}

	class := ClassCommandsCTCP
	if m.MsgType == "NOTICE" {
		class = ClassCommandsNCTCP
	}
	_, err := c.conn.Dispatch(class, strings.ToLower(m.Command), &CTCPEvent{CTCPMessage: m, Line: l})
	return err
}

func (c *CTCP) reply(ev *event.Event, param string) error {
	m := ev.Payload.(*CTCPEvent)
	return c.Reply(m.Target, m.Command, param)
}

func (c *CTCP) replyVersion(ev *event.Event) error {
	return c.reply(ev, c.version)
}

func (c *CTCP) replyPing(ev *event.Event) error {
	return c.reply(ev, ev.Payload.(*CTCPEvent).Param)
}

func (c *CTCP) replyTime(ev *event.Event) error {
	return c.reply(ev, c.now().Format(time.RFC1123Z))
}

func (c *CTCP) replyClientInfo(ev *event.Event) error {
	return c.reply(ev, "CLIENTINFO PING TIME VERSION")
}
