package extensions

import (
	"log"
	"strconv"
	"strings"

	"github.com/dalnet/ircore/internal/auxparse"
	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/dalnet/ircore/internal/numerics"
)

// ClassModes carries a *ModeEvent per mode change. Names say what kind of
// mode changed.
const ClassModes = "modes"

// Names dispatched in ClassModes.
const (
	ModePrefix = "mode_prefix" // status mode; Param is the nick
	ModeList   = "mode_list"   // group A
	ModeKey    = "mode_key"    // group B
	ModeParam  = "mode_param"  // group C
	ModeNormal = "mode_normal" // group D and unknown letters
	ModeUser   = "mode_user"   // our own user modes
)

// ModeEvent is one mode change on Target.
type ModeEvent struct {
	auxparse.ModeChange
	Line   *line.Line
	Target string
}

// ModeHandler splits MODE lines, RPL_CHANNELMODEIS, list replies and NAMES
// prefixes into individual mode events.
type ModeHandler struct {
	conn extension.Conn
}

// NewModeHandler returns a factory for the ModeHandler extension.
func NewModeHandler() extension.Factory {
	return func(conn extension.Conn) extension.Extension {
		return &ModeHandler{conn: conn}
	}
}

func (m *ModeHandler) Name() string { return "modehandler" }

func (m *ModeHandler) Describe() extension.Descriptor {
	return extension.Descriptor{
		Requires: []string{"basicrfc", "isupport"},
		Commands: map[string]event.Callback{
			"MODE":                     m.mode,
			numerics.RPL_CHANNELMODEIS: m.mode,
			numerics.RPL_UMODEIS:       m.umodeIs,
			numerics.RPL_NAMREPLY:      m.names,
			numerics.RPL_WHOREPLY:      m.who,
			numerics.RPL_BANLIST:       m.listEntry('b'),
			numerics.RPL_EXCEPTLIST:    m.listEntry('e'),
			numerics.RPL_INVITELIST:    m.listEntry('I'),
		},
	}
}

// Caps asks for multi-prefix; NAMES entries with several symbols parse fine.
func (m *ModeHandler) Caps() map[string][]string {
	return map[string][]string{"multi-prefix": nil}
}

func (m *ModeHandler) isupport() *ISupport {
	is, _ := m.conn.Extension("isupport").(*ISupport)
	return is
}

func (m *ModeHandler) isChannel(target string) bool {
	types := "#&"
	if is := m.isupport(); is != nil {
		types = is.String("CHANTYPES", types)
	}
	return target != "" && strings.ContainsRune(types, rune(target[0]))
}

func (m *ModeHandler) emit(name string, l *line.Line, target string, c auxparse.ModeChange) error {
	_, err := m.conn.Dispatch(ClassModes, name, &ModeEvent{ModeChange: c, Line: l, Target: target})
	return err
}

func (m *ModeHandler) mode(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	params := l.Params
	if l.Command == numerics.RPL_CHANNELMODEIS {
		if len(params) == 0 {
			return nil
		}
		params = params[1:]
	}
	if len(params) < 2 {
		return nil
	}
	target, modes, args := params[0], params[1], params[2:]

	if !m.isChannel(target) {
		if sameName(m.conn, target, m.conn.Nick()) {
			return m.userModes(l, target, modes)
		}
		return nil
	}

	is := m.isupport()
	groups, prefix := is.ChanModes(), is.Prefix()
	s := auxparse.NewModeScanner(modes, args, groups, prefix)
	for s.Scan() {
		c := s.Change()
		if err := m.emit(classify(c.Mode, groups, prefix), l, target, c); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil {
		log.Printf("modes: %s %s: %v", target, modes, err)
	}
	return nil
}

func classify(mode rune, groups auxparse.ModeGroups, prefix *auxparse.PrefixTable) string {
	switch {
	case prefix.IsMode(mode):
		return ModePrefix
	case strings.ContainsRune(groups.A(), mode):
		return ModeList
	case strings.ContainsRune(groups.B(), mode):
		return ModeKey
	case strings.ContainsRune(groups.C(), mode):
		return ModeParam
	}
	return ModeNormal
}

func (m *ModeHandler) userModes(l *line.Line, target, modes string) error {
	changes, err := auxparse.ParseModes(modes, nil, auxparse.ModeGroups{}, nil)
	if err != nil {
		log.Printf("modes: %s %s: %v", target, modes, err)
	}
	for _, c := range changes {
		if err := m.emit(ModeUser, l, target, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *ModeHandler) umodeIs(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if len(l.Params) < 2 {
		return nil
	}
	return m.userModes(l, l.Params[0], l.Params[1])
}

func (m *ModeHandler) names(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	// <me> <type> <channel> :<names>
	if len(l.Params) < 4 {
		return nil
	}
	target := l.Params[2]
	prefix := m.isupport().Prefix()

	for _, entry := range strings.Fields(l.Last()) {
		modes, nick := auxparse.ParseStatusPrefix(entry, prefix)
		for _, mode := range modes {
			c := auxparse.ModeChange{Mode: mode, Param: nick, HasParam: true, Adding: true}
			if err := m.emit(ModePrefix, l, target, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// who reads status symbols from WHO flags:
// <me> <channel> <user> <host> <server> <nick> <flags> :<hops> <realname>
func (m *ModeHandler) who(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if len(l.Params) < 7 || !m.isChannel(l.Params[1]) {
		return nil
	}
	target, nick := l.Params[1], l.Params[5]
	prefix := m.isupport().Prefix()

	flags := auxparse.ParseWhoFlags(l.Params[6])
	for _, sym := range prefix.Symbols() {
		if !flags.Modes[sym] {
			continue
		}
		mode, _ := prefix.Mode(sym)
		c := auxparse.ModeChange{Mode: mode, Param: nick, HasParam: true, Adding: true}
		if err := m.emit(ModePrefix, l, target, c); err != nil {
			return err
		}
	}
	return nil
}

// listEntry handles ban, exception and invite list replies:
// <me> <channel> <mask> [<setter> <time>]
func (m *ModeHandler) listEntry(mode rune) event.Callback {
	return func(ev *event.Event) error {
		l := ev.Payload.(*line.Line)
		if len(l.Params) < 3 {
			return nil
		}
		c := auxparse.ModeChange{Mode: mode, Param: l.Params[2], HasParam: true, Adding: true}
		if len(l.Params) >= 5 {
			if ts, err := strconv.ParseInt(l.Params[4], 10, 64); err == nil {
				c.Timestamp = ts
			}
		}
		return m.emit(ModeList, l, l.Params[1], c)
	}
}
