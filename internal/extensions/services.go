package extensions

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/numerics"
)

// Nick recovery timing.
const (
	recoverDelay = 15 * time.Second
	reclaimDelay = 2 * time.Second
)

// ServicesConfig holds post-registration credentials.
type ServicesConfig struct {
	Nick      string // the nick we want; also the services account
	Password  string
	Bot       string // defaults to NickServ
	OperNick  string
	OperPass  string
	UserModes string // e.g. "+inFI -hg"; each word is sent as its own MODE
}

// ServicesLogin finishes setting up once the MOTD is done: it identifies
// to services unless SASL already logged us in, opers up, sets user modes
// and takes our nick back if registration had to settle for another.
type ServicesLogin struct {
	conn extension.Conn
	cfg  ServicesConfig

	done       bool
	identified bool
	timers     []extension.Timer
}

// NewServicesLogin returns a factory for the ServicesLogin extension.
func NewServicesLogin(cfg ServicesConfig) extension.Factory {
	if cfg.Bot == "" {
		cfg.Bot = "NickServ"
	}
	return func(conn extension.Conn) extension.Extension {
		return &ServicesLogin{conn: conn, cfg: cfg}
	}
}

func (s *ServicesLogin) Name() string { return "services" }

func (s *ServicesLogin) Describe() extension.Descriptor {
	return extension.Descriptor{
		Priority: extension.PriorityLast,
		Requires: []string{"basicrfc"},
		Commands: map[string]event.Callback{
			numerics.RPL_ENDOFMOTD: s.ready,
			numerics.ERR_NOMOTD:    s.ready,
		},
		Hooks: map[string]event.Callback{
			extension.HookDisconnected: s.disconnected,
		},
	}
}

// Identified reports whether we sent IDENTIFY on this connection.
func (s *ServicesLogin) Identified() bool { return s.identified }

func (s *ServicesLogin) saslAuthenticated() bool {
	sa, ok := s.conn.Extension("sasl").(*SASL)
	return ok && sa.Authenticated()
}

func (s *ServicesLogin) ready(ev *event.Event) error {
	if s.done {
		// MOTD can be requested again later.
		return nil
	}
	s.done = true

	if s.cfg.Password != "" && !s.saslAuthenticated() {
		nick := s.cfg.Nick
		if nick == "" {
			nick = s.conn.Nick()
		}
		if err := s.conn.Send("PRIVMSG", s.cfg.Bot, fmt.Sprintf("IDENTIFY %s %s", nick, s.cfg.Password)); err != nil {
			return err
		}
		s.identified = true
	}

	if s.cfg.OperNick != "" && s.cfg.OperPass != "" {
		if err := s.conn.Send("OPER", s.cfg.OperNick, s.cfg.OperPass); err != nil {
			return err
		}
	}

	for _, modes := range strings.Fields(s.cfg.UserModes) {
		if err := s.conn.Send("MODE", s.conn.Nick(), modes); err != nil {
			return err
		}
	}

	s.recoverNick()
	log.Println("Initialization complete")
	return nil
}

// recoverNick asks services to free our nick, then takes it back.
func (s *ServicesLogin) recoverNick() {
	want := s.cfg.Nick
	if want == "" || s.cfg.Password == "" || sameName(s.conn, want, s.conn.Nick()) {
		return
	}

	command := "GHOST"
	if an, ok := s.conn.Extension("altnick").(*AltNick); ok && an.Refused() == numerics.ERR_ERRONEUSNICK {
		// 432 here means services are holding the nick.
		command = "RELEASE"
	}
	log.Printf("Using %s, will %s %s", s.conn.Nick(), strings.ToLower(command), want)

	s.timers = append(s.timers, s.conn.Schedule(recoverDelay, func() {
		if err := s.conn.Send("PRIVMSG", s.cfg.Bot, fmt.Sprintf("%s %s %s", command, want, s.cfg.Password)); err != nil {
			log.Printf("services: %v", err)
			return
		}
		s.timers = append(s.timers, s.conn.Schedule(reclaimDelay, func() {
			if err := s.conn.Send("NICK", want); err != nil {
				log.Printf("services: %v", err)
			}
		}))
	}))
}

func (s *ServicesLogin) disconnected(ev *event.Event) error {
	for _, t := range s.timers {
		s.conn.Unschedule(t)
	}
	s.timers = nil
	s.done = false
	s.identified = false
	return nil
}
