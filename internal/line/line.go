// Package line parses and serializes raw IRC protocol lines.
package line

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

var (
	// ErrMalformedLine is returned by Parse for input that has no command.
	ErrMalformedLine = errors.New("malformed line")

	// ErrInvalidParam is returned by Validate when a parameter other than the
	// last one could not survive serialization.
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrInvalidHostmask is returned by Validate for a source that would
	// not parse back to the same hostmask.
	ErrInvalidHostmask = errors.New("invalid hostmask")
)

// Line is one IRC protocol message. Command is always upper case.
type Line struct {
	Tags     *Tags
	Hostmask *Hostmask
	Command  string
	Params   []string
}

// New builds an outgoing line.
func New(command string, params ...string) *Line {
	return &Line{
		Command: strings.ToUpper(command),
		Params:  params,
	}
}

// Parse parses a single line as read off the wire. Trailing CR/LF are
// stripped.
func Parse(raw string) (*Line, error) {
	rest := strings.TrimRight(raw, "\r\n")
	if rest == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}

	l := &Line{}

	if rest[0] == '@' {
		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			return nil, fmt.Errorf("%w: no command after tags", ErrMalformedLine)
		}
		l.Tags = ParseTags(rest[1:i])
		rest = strings.TrimLeft(rest[i:], " ")
	}

	if rest != "" && rest[0] == ':' {
		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			return nil, fmt.Errorf("%w: no command after source", ErrMalformedLine)
		}
		l.Hostmask = ParseHostmask(rest[1:i])
		rest = strings.TrimLeft(rest[i:], " ")
	}

	command := rest
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		command, rest = rest[:i], rest[i:]
	} else {
		rest = ""
	}
	if command == "" {
		return nil, fmt.Errorf("%w: missing command", ErrMalformedLine)
	}
	l.Command = strings.ToUpper(command)

	for {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			break
		}
		if rest[0] == ':' {
			l.Params = append(l.Params, rest[1:])
			break
		}
		i := strings.IndexByte(rest, ' ')
		if i < 0 {
			l.Params = append(l.Params, rest)
			break
		}
		l.Params = append(l.Params, rest[:i])
		rest = rest[i:]
	}

	return l, nil
}

// Validate checks that the source can be sent and that every parameter but
// the last can be sent as a middle parameter.
func (l *Line) Validate() error {
	if l.Command == "" || strings.ContainsAny(l.Command, " \r\n") {
		return fmt.Errorf("%w: bad command %q", ErrInvalidParam, l.Command)
	}
	if !l.Hostmask.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidHostmask, *l.Hostmask)
	}
	for i, p := range l.Params {
		if strings.ContainsAny(p, "\r\n\x00") {
			return fmt.Errorf("%w: parameter %d contains a line break", ErrInvalidParam, i)
		}
		if i == len(l.Params)-1 {
			break
		}
		if needsTrailing(p) {
			return fmt.Errorf("%w: parameter %d (%q) is only valid last", ErrInvalidParam, i, p)
		}
	}
	return nil
}

func needsTrailing(p string) bool {
	return p == "" || p[0] == ':' || strings.IndexByte(p, ' ') >= 0
}

// String serializes the line, CRLF included. The last parameter gets a
// leading ':' whenever it is empty, contains a space or starts with ':'.
func (l *Line) String() string {
	var b strings.Builder

	if l.Tags.Len() > 0 {
		b.WriteByte('@')
		b.WriteString(l.Tags.String())
		b.WriteByte(' ')
	}

	if src := l.Hostmask.String(); src != "" {
		b.WriteByte(':')
		b.WriteString(src)
		b.WriteByte(' ')
	}

	b.WriteString(l.Command)

	for i, p := range l.Params {
		b.WriteByte(' ')
		if i == len(l.Params)-1 && needsTrailing(p) {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}

	b.WriteString("\r\n")
	return b.String()
}

// Bytes is String as a byte slice.
func (l *Line) Bytes() []byte {
	return []byte(l.String())
}

// Param returns the i-th parameter, or "" when there are not enough.
func (l *Line) Param(i int) string {
	if i < 0 || i >= len(l.Params) {
		return ""
	}
	return l.Params[i]
}

// Last returns the last parameter, or "".
func (l *Line) Last() string {
	return l.Param(len(l.Params) - 1)
}

// Nick returns the source nick, if the line has one.
func (l *Line) Nick() string {
	if l.Hostmask == nil {
		return ""
	}
	return l.Hostmask.Nick
}

// Equal compares lines field by field.
func (l *Line) Equal(o *Line) bool {
	if l == nil || o == nil {
		return l == o
	}
	if l.Command != o.Command || len(l.Params) != len(o.Params) {
		return false
	}
	for i := range l.Params {
		if l.Params[i] != o.Params[i] {
			return false
		}
	}
	return l.Tags.Equal(o.Tags) && l.Hostmask.Equal(o.Hostmask)
}

// Message converts the line to an ircmsg.Message. Tags without a value
// become empty-valued tags, since ircmsg does not tell them apart.
func (l *Line) Message() ircmsg.Message {
	var tags map[string]string
	if l.Tags.Len() > 0 {
		tags = make(map[string]string, l.Tags.Len())
		for _, tag := range l.Tags.list {
			tags[tag.Key] = tag.Value
		}
	}
	params := make([]string, len(l.Params))
	copy(params, l.Params)
	return ircmsg.MakeMessage(tags, l.Hostmask.String(), l.Command, params...)
}

// FromMessage converts an ircmsg.Message. Tag order is not preserved by
// ircmsg, so tags come out sorted by key.
func FromMessage(msg ircmsg.Message) *Line {
	l := &Line{
		Hostmask: ParseHostmask(msg.Source),
		Command:  strings.ToUpper(msg.Command),
	}
	if len(msg.Params) > 0 {
		l.Params = make([]string, len(msg.Params))
		copy(l.Params, msg.Params)
	}

	all := msg.AllTags()
	if len(all) > 0 {
		keys := make([]string, 0, len(all))
		for k := range all {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tags := make([]Tag, 0, len(keys))
		for _, k := range keys {
			tags = append(tags, Tag{Key: k, Value: all[k], HasValue: all[k] != ""})
		}
		l.Tags = NewTags(tags...)
	}
	return l
}
