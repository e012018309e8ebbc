package extensions

import (
	"testing"

	"github.com/dalnet/ircore/internal/auxparse"
	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
)

func TestISupport(t *testing.T) {
	s, _ := newSession(t, NewBasicRFC(Identity{}), NewISupport())
	is := s.Extension("isupport").(*ISupport)

	if is.NickLen() != 0 || is.Prefix().Len() != 2 {
		t.Errorf("Defaults wrong before 005: nicklen=%d prefix=%d", is.NickLen(), is.Prefix().Len())
	}

	recv(t, s,
		":irc.example.net 005 tester NICKLEN=9 PREFIX=(qov)~@+ CHANTYPES=# :are supported by this server",
		":irc.example.net 005 tester CHANMODES=beI,k,l,imnpst EXCEPTS :are supported by this server",
	)
	if is.NickLen() != 9 {
		t.Errorf("NickLen = %d", is.NickLen())
	}
	if sym, ok := is.Prefix().Symbol('q'); !ok || sym != '~' {
		t.Errorf("PREFIX q -> %q, %v", sym, ok)
	}
	if g := is.ChanModes(); g.A() != "beI" || g.D() != "imnpst" {
		t.Errorf("CHANMODES = %v", g)
	}
	if v, ok := is.Get("excepts"); !ok || v.Raw() != "" {
		t.Errorf("EXCEPTS = %v, %v", v, ok)
	}

	recv(t, s, ":irc.example.net 005 tester -NICKLEN :are supported by this server")
	if is.NickLen() != 0 {
		t.Errorf("-NICKLEN did not remove the token")
	}
}

func TestISupportIgnoresBounce(t *testing.T) {
	s, _ := newSession(t, NewBasicRFC(Identity{}), NewISupport())
	is := s.Extension("isupport").(*ISupport)

	recv(t, s, ":irc.example.net 005 tester :Try server irc2.example.net, port 6667")
	if len(is.Supported()) != 0 {
		t.Errorf("RPL_BOUNCE parsed as ISUPPORT: %v", is.Supported())
	}
}

func TestISupportBadPrefix(t *testing.T) {
	s, _ := newSession(t, NewBasicRFC(Identity{}), NewISupport())
	is := s.Extension("isupport").(*ISupport)

	recv(t, s, ":irc.example.net 005 tester PREFIX=(ov)@ :are supported by this server")
	if m, ok := is.Prefix().Mode('@'); !ok || m != 'o' {
		t.Errorf("Unbalanced PREFIX should fall back to the default")
	}
}

func TestISupportResetOnDisconnect(t *testing.T) {
	s, _ := newSession(t, NewBasicRFC(Identity{}), NewISupport())
	is := s.Extension("isupport").(*ISupport)

	recv(t, s, ":irc.example.net 005 tester NICKLEN=9 :are supported by this server")
	s.Close()
	if len(is.Supported()) != 0 {
		t.Errorf("ISUPPORT survived disconnect")
	}
}

func TestISupportCaseChange(t *testing.T) {
	var changes []auxparse.CaseMapping
	hook := func(conn extension.Conn) extension.Extension {
		return &hookExt{hooks: map[string]event.Callback{
			HookCaseChange: func(ev *event.Event) error {
				changes = append(changes, ev.Payload.(auxparse.CaseMapping))
				return nil
			},
		}}
	}
	s, _ := newSession(t, NewBasicRFC(Identity{}), NewISupport(), hook)
	is := s.Extension("isupport").(*ISupport)
	if is.CaseMapping() != auxparse.CaseRFC1459 {
		t.Errorf("Default casemapping = %s", is.CaseMapping())
	}

	recv(t, s,
		":irc.example.net 005 tester CASEMAPPING=rfc1459 :are supported by this server",
		":irc.example.net 005 tester CASEMAPPING=ascii :are supported by this server",
	)
	if len(changes) != 1 || changes[0] != auxparse.CaseASCII {
		t.Errorf("Unexpected case_change events: %v", changes)
	}
}
