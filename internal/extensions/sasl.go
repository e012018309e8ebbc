package extensions

import (
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/dalnet/ircore/internal/numerics"
	"github.com/emersion/go-sasl"
)

// saslChunk is the longest AUTHENTICATE payload a server accepts per line.
const saslChunk = 400

// SASLConfig selects the mechanism and credentials.
type SASLConfig struct {
	Mechanism string // PLAIN or EXTERNAL
	Username  string
	Password  string
}

// SASL authenticates during capability negotiation.
type SASL struct {
	conn extension.Conn
	cfg  SASLConfig

	capEvent      *event.Event
	client        sasl.Client
	started       bool
	challenge     strings.Builder
	mechanisms    []string
	authenticated bool
	account       string
}

// NewSASL returns a factory for the SASL extension.
func NewSASL(cfg SASLConfig) extension.Factory {
	cfg.Mechanism = strings.ToUpper(cfg.Mechanism)
	if cfg.Mechanism == "" {
		cfg.Mechanism = sasl.Plain
	}
	return func(conn extension.Conn) extension.Extension {
		return &SASL{conn: conn, cfg: cfg}
	}
}

func (s *SASL) Name() string { return "sasl" }

func (s *SASL) Describe() extension.Descriptor {
	return extension.Descriptor{
		Priority: extension.PriorityFirst + 5,
		Requires: []string{"cap"},
		Commands: map[string]event.Callback{
			"AUTHENTICATE":           s.authenticate,
			numerics.RPL_LOGGEDIN:    s.loggedIn,
			numerics.RPL_LOGGEDOUT:   s.loggedOut,
			numerics.ERR_NICKLOCKED:  s.failure,
			numerics.RPL_SASLSUCCESS: s.success,
			numerics.ERR_SASLFAIL:    s.failure,
			numerics.ERR_SASLTOOLONG: s.failure,
			numerics.ERR_SASLABORTED: s.failure,
			numerics.ERR_SASLALREADY: s.already,
			numerics.RPL_SASLMECHS:   s.mechs,
		},
		Hooks: map[string]event.Callback{
			extension.HookDisconnected: s.disconnected,
		},
		Events: []extension.Subscription{
			{Class: ClassCapPerform, Name: "ack", Func: s.ack},
		},
	}
}

func (s *SASL) configured() bool {
	if s.cfg.Mechanism == sasl.External {
		return true
	}
	return s.cfg.Username != "" && s.cfg.Password != ""
}

// Caps asks for "sasl" when credentials are configured.
func (s *SASL) Caps() map[string][]string {
	if !s.configured() {
		return nil
	}
	return map[string][]string{"sasl": {s.cfg.Mechanism}}
}

// Authenticated reports whether the server accepted our credentials.
func (s *SASL) Authenticated() bool { return s.authenticated }

// Account returns the account name from RPL_LOGGEDIN.
func (s *SASL) Account() string { return s.account }

func (s *SASL) newClient() (sasl.Client, error) {
	switch s.cfg.Mechanism {
	case sasl.Plain:
		return sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password), nil
	case sasl.External:
		return sasl.NewExternalClient(""), nil
	}
	return nil, fmt.Errorf("unsupported SASL mechanism %q", s.cfg.Mechanism)
}

// offered reports whether the server lists our mechanism. Servers that do
// not list mechanisms are assumed to support it.
func (s *SASL) offered() bool {
	mechs := s.mechanisms
	if c, ok := s.conn.Extension("cap").(*CapNegotiate); ok && len(mechs) == 0 {
		mechs, _ = c.Remote("sasl")
	}
	if len(mechs) == 0 {
		return true
	}
	for _, m := range mechs {
		if strings.EqualFold(m, s.cfg.Mechanism) {
			return true
		}
	}
	return false
}

func (s *SASL) ack(ev *event.Event) error {
	ce := ev.Payload.(*CapEvent)
	if !ce.Has("sasl") || s.capEvent != nil || !s.configured() {
		return nil
	}
	if !s.offered() {
		log.Printf("sasl: server does not offer %s", s.cfg.Mechanism)
		return nil
	}

	client, err := s.newClient()
	if err != nil {
		log.Printf("sasl: %v", err)
		return nil
	}
	s.client = client
	s.started = false
	s.challenge.Reset()

	log.Printf("Starting SASL %s authentication", s.cfg.Mechanism)
	if err := s.conn.Send("AUTHENTICATE", s.cfg.Mechanism); err != nil {
		return err
	}
	s.capEvent = ev
	ev.Status = event.StatusPause
	return nil
}

func (s *SASL) authenticate(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	ev.Status = event.StatusCancel
	if s.client == nil {
		log.Println("sasl: unexpected AUTHENTICATE")
		return nil
	}

	// Challenges longer than one line arrive in full-length chunks.
	if chunk := l.Param(0); chunk != "+" {
		s.challenge.WriteString(chunk)
		if len(chunk) == saslChunk {
			return nil
		}
	}
	var challenge []byte
	if s.challenge.Len() > 0 {
		var err error
		challenge, err = base64.StdEncoding.DecodeString(s.challenge.String())
		s.challenge.Reset()
		if err != nil {
			log.Printf("sasl: bad challenge: %v", err)
			return s.abort()
		}
	}

	var resp []byte
	var err error
	if !s.started {
		_, resp, err = s.client.Start()
		s.started = true
	} else {
		resp, err = s.client.Next(challenge)
	}
	if err != nil {
		log.Printf("sasl: %v", err)
		return s.abort()
	}
	return s.respond(resp)
}

// respond sends resp base64-encoded in chunks. A response that ends on a
// chunk boundary is terminated with "+".
func (s *SASL) respond(resp []byte) error {
	enc := base64.StdEncoding.EncodeToString(resp)
	for len(enc) >= saslChunk {
		if err := s.conn.Send("AUTHENTICATE", enc[:saslChunk]); err != nil {
			return err
		}
		enc = enc[saslChunk:]
	}
	if enc == "" {
		enc = "+"
	}
	return s.conn.Send("AUTHENTICATE", enc)
}

func (s *SASL) abort() error {
	return s.conn.Send("AUTHENTICATE", "*")
}

func (s *SASL) loggedIn(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	s.account = l.Param(2)
	log.Printf("Logged in as %s", s.account)
	return nil
}

func (s *SASL) loggedOut(ev *event.Event) error {
	s.account = ""
	s.authenticated = false
	log.Println("Logged out")
	return nil
}

func (s *SASL) success(ev *event.Event) error {
	s.authenticated = true
	log.Println("SASL authentication succeeded")
	return s.finish()
}

func (s *SASL) failure(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	log.Printf("SASL authentication failed (%s): %s", l.Command, l.Last())
	return s.finish()
}

func (s *SASL) already(ev *event.Event) error {
	log.Println("sasl: already authenticated")
	if s.capEvent != nil {
		return s.finish()
	}
	return nil
}

func (s *SASL) mechs(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	s.mechanisms = strings.Split(l.Param(1), ",")
	log.Printf("sasl: server supports %s", strings.Join(s.mechanisms, ", "))
	return nil
}

// finish hands the paused cap_perform event back to CAP.
func (s *SASL) finish() error {
	ev := s.capEvent
	s.capEvent = nil
	s.client = nil
	s.started = false
	s.challenge.Reset()
	if ev == nil {
		return nil
	}
	c, ok := s.conn.Extension("cap").(*CapNegotiate)
	if !ok {
		return nil
	}
	return c.Continue(ev)
}

func (s *SASL) disconnected(ev *event.Event) error {
	s.capEvent = nil
	s.client = nil
	s.started = false
	s.challenge.Reset()
	s.mechanisms = nil
	s.authenticated = false
	s.account = ""
	return nil
}
