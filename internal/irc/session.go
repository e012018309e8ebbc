package irc

import (
	"log"
	"strings"
	"time"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/ergochat/irc-go/ircmsg"
)

// Transport is the socket side of a session: it writes lines, runs timers
// on the session's goroutine and can upgrade the socket to TLS.
type Transport interface {
	WriteLine(l *line.Line) error
	Schedule(d time.Duration, fn func()) extension.Timer
	Unschedule(t extension.Timer)
	Secure() bool
	StartTLS() error
}

// Session is the protocol state of one connection. It turns inbound lines
// into events, passes outbound lines through the commands_out class, and
// implements extension.Conn for the extensions it loads.
//
// A Session is not safe for concurrent use; the Client calls it from a
// single goroutine.
type Session struct {
	bus *event.Bus
	reg *extension.Registry
	tr  Transport

	nick       string
	registered bool
	quitting   bool
}

// NewSession creates a session and loads the given extensions in order.
func NewSession(tr Transport, nick string, factories []extension.Factory) (*Session, error) {
	s := &Session{
		bus:  event.New(),
		tr:   tr,
		nick: nick,
	}

	s.reg = extension.NewRegistry(s.bus, s)
	if err := s.reg.Load(factories...); err != nil {
		return nil, err
	}
	return s, nil
}

// Bus returns the session's event bus.
func (s *Session) Bus() *event.Bus {
	return s.bus
}

// Registry returns the loaded extensions.
func (s *Session) Registry() *extension.Registry {
	return s.reg
}

// Connect dispatches the connected hook. Call it once the socket is up.
func (s *Session) Connect() error {
	s.quitting = false
	return s.dispatch(extension.ClassHooks, extension.HookConnected, nil)
}

// Close dispatches the disconnected hook and resets connection state.
func (s *Session) Close() error {
	err := s.dispatch(extension.ClassHooks, extension.HookDisconnected, nil)
	s.registered = false
	return err
}

// Recv parses and handles one raw line. Malformed lines are logged and
// skipped.
func (s *Session) Recv(raw string) error {
	l, err := line.Parse(raw)
	if err != nil {
		log.Printf("irc: dropping line %q: %v", raw, err)
		return nil
	}
	return s.Handle(l)
}

// Handle dispatches a parsed line to the commands class.
func (s *Session) Handle(l *line.Line) error {
	return s.dispatch(extension.ClassCommands, strings.ToLower(l.Command), l)
}

func (s *Session) dispatch(class, name string, payload any) error {
	_, err := s.Dispatch(class, name, payload)
	return err
}

// settle quits the connection if a callback on ev asked for termination.
func (s *Session) settle(ev *event.Event) {
	if ev != nil && ev.TerminateSoon() {
		s.Quit("Plugin requested termination")
	}
}

// Send builds and sends a line.
func (s *Session) Send(command string, params ...string) error {
	return s.SendLine(line.New(command, params...))
}

// SendMessage sends an ircmsg.Message.
func (s *Session) SendMessage(msg ircmsg.Message) error {
	return s.SendLine(line.FromMessage(msg))
}

// SendLine validates l and offers it to the commands_out handlers. A handler
// that cancels the event drops the line.
func (s *Session) SendLine(l *line.Line) error {
	if err := l.Validate(); err != nil {
		return err
	}

	ev, err := s.bus.Dispatch(extension.ClassCommandsOut, strings.ToLower(l.Command), l)
	if err != nil {
		return err
	}
	if ev.Status == event.StatusCancel {
		return nil
	}
	return s.tr.WriteLine(l)
}

// Quit sends QUIT once per connection.
func (s *Session) Quit(message string) {
	if s.quitting {
		return
	}
	s.quitting = true
	if err := s.Send("QUIT", message); err != nil {
		log.Printf("irc: failed to send QUIT: %v", err)
	}
}

func (s *Session) Schedule(d time.Duration, fn func()) extension.Timer {
	return s.tr.Schedule(d, fn)
}

func (s *Session) Unschedule(t extension.Timer) {
	if t != nil {
		s.tr.Unschedule(t)
	}
}

func (s *Session) Extension(name string) extension.Extension {
	if s.reg == nil {
		return nil
	}
	return s.reg.Get(name)
}

func (s *Session) Extensions() []extension.Extension {
	if s.reg == nil {
		return nil
	}
	return s.reg.Extensions()
}

// Dispatch runs an event on the session's bus. Any event, including ones
// raised by extensions, can end the connection with StatusTerminateSoon.
func (s *Session) Dispatch(class, name string, payload any) (*event.Event, error) {
	ev, err := s.bus.Dispatch(class, name, payload)
	s.settle(ev)
	return ev, err
}

func (s *Session) Resume(ev *event.Event) (*event.Event, error) {
	ev, err := s.bus.Resume(ev)
	s.settle(ev)
	return ev, err
}

func (s *Session) Nick() string { return s.nick }
func (s *Session) SetNick(nick string) { s.nick = nick }
func (s *Session) Registered() bool { return s.registered }
func (s *Session) SetRegistered(reg bool) { s.registered = reg }
func (s *Session) Secure() bool { return s.tr.Secure() }
func (s *Session) StartTLS() error { return s.tr.StartTLS() }
