package extensions

import (
	"testing"
)

func newModeSession(t *testing.T) (*recorder, func(lines ...string)) {
	t.Helper()
	rec := &recorder{class: ClassModes}
	s, _ := newSession(t, NewBasicRFC(Identity{}), NewISupport(), NewModeHandler(), rec.factory())
	recv(t, s, ":irc.example.net 005 tester PREFIX=(ov)@+ CHANMODES=b,k,l,imnpst :are supported by this server")
	return rec, func(lines ...string) { recv(t, s, lines...) }
}

type modeWant struct {
	name   string
	target string
	change string
}

func checkModes(t *testing.T, rec *recorder, want []modeWant) {
	t.Helper()
	if len(rec.events) != len(want) {
		t.Fatalf("Got %d mode events, want %d", len(rec.events), len(want))
	}
	for i, w := range want {
		ev := rec.events[i]
		me := ev.Payload.(*ModeEvent)
		if ev.Name != w.name || me.Target != w.target || me.String() != w.change {
			t.Errorf("Event %d: %s %s %s, want %s %s %s", i, ev.Name, me.Target, me.String(), w.name, w.target, w.change)
		}
	}
}

func TestModeHandlerChannelModes(t *testing.T) {
	rec, in := newModeSession(t)
	in(":op!o@example.com MODE #chan +ov-k+lm alice bob key 10")
	checkModes(t, rec, []modeWant{
		{ModePrefix, "#chan", "+o alice"},
		{ModePrefix, "#chan", "+v bob"},
		{ModeKey, "#chan", "-k key"},
		{ModeParam, "#chan", "+l 10"},
		{ModeNormal, "#chan", "+m"},
	})
}

func TestModeHandlerChannelModeIs(t *testing.T) {
	rec, in := newModeSession(t)
	in(":irc.example.net 324 tester #chan +nt")
	checkModes(t, rec, []modeWant{
		{ModeNormal, "#chan", "+n"},
		{ModeNormal, "#chan", "+t"},
	})
}

func TestModeHandlerUserModes(t *testing.T) {
	rec, in := newModeSession(t)
	in(
		":tester MODE tester :+iw",
		":irc.example.net 221 tester +x",
		":someone MODE someone +i",
	)
	checkModes(t, rec, []modeWant{
		{ModeUser, "tester", "+i"},
		{ModeUser, "tester", "+w"},
		{ModeUser, "tester", "+x"},
	})
}

func TestModeHandlerNames(t *testing.T) {
	rec, in := newModeSession(t)
	in(":irc.example.net 353 tester = #chan :@alice +bob carol @+dave")
	checkModes(t, rec, []modeWant{
		{ModePrefix, "#chan", "+o alice"},
		{ModePrefix, "#chan", "+v bob"},
		{ModePrefix, "#chan", "+o dave"},
		{ModePrefix, "#chan", "+v dave"},
	})
}

func TestModeHandlerBanList(t *testing.T) {
	rec, in := newModeSession(t)
	in(":irc.example.net 367 tester #chan *!*@bad.example op 1700000000")
	checkModes(t, rec, []modeWant{
		{ModeList, "#chan", "+b *!*@bad.example"},
	})
	if ts := rec.events[0].Payload.(*ModeEvent).Timestamp; ts != 1700000000 {
		t.Errorf("Timestamp = %d", ts)
	}
}

func TestModeHandlerUnderflow(t *testing.T) {
	rec, in := newModeSession(t)
	in(":op!o@example.com MODE #chan +ov alice")
	checkModes(t, rec, []modeWant{
		{ModePrefix, "#chan", "+o alice"},
	})
}

func TestModeHandlerWho(t *testing.T) {
	rec, in := newModeSession(t)
	in(":irc.example.net 352 tester #chan ~a host.example irc.example.net alice H*@+ :0 Alice")
	checkModes(t, rec, []modeWant{
		{ModePrefix, "#chan", "+o alice"},
		{ModePrefix, "#chan", "+v alice"},
	})
}
