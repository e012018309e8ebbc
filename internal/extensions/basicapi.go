package extensions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
)

var (
	// ErrNoTargets is returned by the mode helpers when called without
	// nicks or masks.
	ErrNoTargets = errors.New("no mode targets")

	// ErrModeUnsupported is returned when ISUPPORT shows the server lacks
	// the mode a helper needs.
	ErrModeUnsupported = errors.New("mode not supported by server")
)

const (
	defaultModesPerLine = 4
	maxModesPerLine     = 8
)

// BasicAPI wraps the commands bots send most often.
type BasicAPI struct {
	conn extension.Conn
}

// NewBasicAPI returns a factory for the BasicAPI extension.
func NewBasicAPI() extension.Factory {
	return func(conn extension.Conn) extension.Extension {
		return &BasicAPI{conn: conn}
	}
}

func (a *BasicAPI) Name() string { return "basicapi" }

func (a *BasicAPI) Describe() extension.Descriptor {
	return extension.Descriptor{
		Requires: []string{"isupport"},
	}
}

func (a *BasicAPI) isupport() *ISupport {
	return a.conn.Extension("isupport").(*ISupport)
}

// Message sends a PRIVMSG.
func (a *BasicAPI) Message(target, text string) error {
	return a.conn.Send("PRIVMSG", target, text)
}

// Notice sends a NOTICE.
func (a *BasicAPI) Notice(target, text string) error {
	return a.conn.Send("NOTICE", target, text)
}

// ReplyTarget returns where a reply to l should go: the channel (with any
// STATUSMSG prefix) for channel messages, otherwise the sender's nick.
// It returns "" when there is nobody to answer.
func (a *BasicAPI) ReplyTarget(l *line.Line) string {
	target := l.Param(0)
	if target == "" {
		return l.Nick()
	}

	is := a.isupport()
	c := target[:1]
	if strings.Contains(is.String("STATUSMSG", ""), c) || strings.Contains(is.String("CHANTYPES", "#&"), c) {
		return target
	}
	return l.Nick()
}

// Topic sets a channel's topic. An empty topic clears it.
func (a *BasicAPI) Topic(channel, topic string) error {
	return a.conn.Send("TOPIC", channel, topic)
}

// Join joins a channel, with an optional key.
func (a *BasicAPI) Join(channel, key string) error {
	if key == "" {
		return a.conn.Send("JOIN", channel)
	}
	return a.conn.Send("JOIN", channel, key)
}

// Part leaves a channel, with an optional reason.
func (a *BasicAPI) Part(channel, reason string) error {
	if reason == "" {
		return a.conn.Send("PART", channel)
	}
	return a.conn.Send("PART", channel, reason)
}

// Kick removes nick from a channel, with an optional reason.
func (a *BasicAPI) Kick(channel, nick, reason string) error {
	if reason == "" {
		return a.conn.Send("KICK", channel, nick)
	}
	return a.conn.Send("KICK", channel, nick, reason)
}

// ModeParams sets or unsets one parameterized mode for each of params.
// The changes are split over as many MODE lines as ISUPPORT MODES needs.
func (a *BasicAPI) ModeParams(adding bool, mode rune, channel string, params ...string) error {
	if len(params) == 0 {
		return ErrNoTargets
	}

	per := a.isupport().Int("MODES", defaultModesPerLine)
	if per <= 0 {
		per = defaultModesPerLine
	}
	if per > maxModesPerLine {
		per = maxModesPerLine
	}

	sign := "-"
	if adding {
		sign = "+"
	}
	for len(params) > 0 {
		n := min(per, len(params))
		args := append([]string{channel, sign + strings.Repeat(string(mode), n)}, params[:n]...)
		if err := a.conn.Send("MODE", args...); err != nil {
			return err
		}
		params = params[n:]
	}
	return nil
}

func (a *BasicAPI) statusMode(adding bool, mode rune, channel string, nicks []string) error {
	if !a.isupport().Prefix().IsMode(mode) {
		return fmt.Errorf("%w: %c", ErrModeUnsupported, mode)
	}
	return a.ModeParams(adding, mode, channel, nicks...)
}

// listMode checks that mode is a list mode. token names the ISUPPORT key
// that also announces it, if any.
func (a *BasicAPI) listMode(adding bool, mode rune, token, channel string, masks []string) error {
	is := a.isupport()
	_, announced := is.Get(token)
	if !announced && !strings.ContainsRune(is.ChanModes().A(), mode) {
		return fmt.Errorf("%w: %c", ErrModeUnsupported, mode)
	}
	return a.ModeParams(adding, mode, channel, masks...)
}

func (a *BasicAPI) Op(channel string, nicks ...string) error {
	return a.statusMode(true, 'o', channel, nicks)
}

func (a *BasicAPI) Deop(channel string, nicks ...string) error {
	return a.statusMode(false, 'o', channel, nicks)
}

func (a *BasicAPI) Voice(channel string, nicks ...string) error {
	return a.statusMode(true, 'v', channel, nicks)
}

func (a *BasicAPI) Devoice(channel string, nicks ...string) error {
	return a.statusMode(false, 'v', channel, nicks)
}

func (a *BasicAPI) Halfop(channel string, nicks ...string) error {
	return a.statusMode(true, 'h', channel, nicks)
}

func (a *BasicAPI) Dehalfop(channel string, nicks ...string) error {
	return a.statusMode(false, 'h', channel, nicks)
}

func (a *BasicAPI) Ban(channel string, masks ...string) error {
	return a.ModeParams(true, 'b', channel, masks...)
}

func (a *BasicAPI) Unban(channel string, masks ...string) error {
	return a.ModeParams(false, 'b', channel, masks...)
}

func (a *BasicAPI) BanExempt(channel string, masks ...string) error {
	return a.listMode(true, 'e', "EXCEPTS", channel, masks)
}

func (a *BasicAPI) UnbanExempt(channel string, masks ...string) error {
	return a.listMode(false, 'e', "EXCEPTS", channel, masks)
}

func (a *BasicAPI) InviteExempt(channel string, masks ...string) error {
	return a.listMode(true, 'I', "INVEX", channel, masks)
}

func (a *BasicAPI) UninviteExempt(channel string, masks ...string) error {
	return a.listMode(false, 'I', "INVEX", channel, masks)
}

// Quiet uses the charybdis +q list mode. Servers where q is the owner
// status mode get ErrModeUnsupported.
func (a *BasicAPI) Quiet(channel string, masks ...string) error {
	return a.quiet(true, channel, masks)
}

func (a *BasicAPI) Unquiet(channel string, masks ...string) error {
	return a.quiet(false, channel, masks)
}

func (a *BasicAPI) quiet(adding bool, channel string, masks []string) error {
	if a.isupport().Prefix().IsMode('q') {
		return fmt.Errorf("%w: q is a status mode here", ErrModeUnsupported)
	}
	return a.listMode(adding, 'q', "", channel, masks)
}
