package auxparse

import (
	"strings"

	"github.com/dalnet/ircore/internal/line"
)

const ctcpDelim = "\x01"

// CTCPMessage is a CTCP request (PRIVMSG) or reply (NOTICE).
type CTCPMessage struct {
	MsgType string
	Command string
	Target  string
	Param   string

	HasParam bool
}

// ParseCTCP extracts a CTCP message from a PRIVMSG or NOTICE whose text is
// wrapped in \x01. It returns nil for anything else.
//
// Target is the sender's nick when the line has one, which is where a
// reply has to go; otherwise it is the line's first parameter.
func ParseCTCP(l *line.Line) *CTCPMessage {
	if l == nil || (l.Command != "PRIVMSG" && l.Command != "NOTICE") || len(l.Params) < 2 {
		return nil
	}

	text := l.Last()
	if len(text) < 2 || !strings.HasPrefix(text, ctcpDelim) || !strings.HasSuffix(text, ctcpDelim) {
		return nil
	}
	text = text[1 : len(text)-1]

	command, param, _ := strings.Cut(text, " ")
	if command == "" {
		return nil
	}

	msg := &CTCPMessage{
		MsgType:  l.Command,
		Command:  strings.ToUpper(command),
		Target:   l.Nick(),
		Param:    param,
		HasParam: param != "",
	}
	if msg.Target == "" {
		msg.Target = l.Param(0)
	}
	return msg
}

// Line frames the message for sending to Target.
func (m *CTCPMessage) Line() *line.Line {
	text := m.Command
	if m.HasParam {
		text += " " + m.Param
	}
	return line.New(m.MsgType, m.Target, ctcpDelim+text+ctcpDelim)
}

// Reply builds the NOTICE answering a request, addressed to the requester.
func (m *CTCPMessage) Reply(param string) *CTCPMessage {
	return &CTCPMessage{
		MsgType:  "NOTICE",
		Command:  m.Command,
		Target:   m.Target,
		Param:    param,
		HasParam: param != "",
	}
}
