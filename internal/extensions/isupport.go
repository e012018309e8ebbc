package extensions

import (
	"log"
	"strings"

	"github.com/dalnet/ircore/internal/auxparse"
	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/dalnet/ircore/internal/numerics"
)

// HookCaseChange is dispatched in the hooks class when the server's
// CASEMAPPING changes.
const HookCaseChange = "case_change"

// ISupport collects the server's RPL_ISUPPORT tokens.
type ISupport struct {
	conn      extension.Conn
	supported auxparse.ISupport

	prefix *auxparse.PrefixTable
}

// NewISupport returns a factory for the ISupport extension.
func NewISupport() extension.Factory {
	return func(conn extension.Conn) extension.Extension {
		return &ISupport{conn: conn, supported: make(auxparse.ISupport)}
	}
}

func (is *ISupport) Name() string { return "isupport" }

func (is *ISupport) Describe() extension.Descriptor {
	return extension.Descriptor{
		Commands: map[string]event.Callback{
			numerics.RPL_ISUPPORT: is.isupport,
		},
		Hooks: map[string]event.Callback{
			extension.HookDisconnected: is.disconnected,
		},
	}
}

func (is *ISupport) isupport(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	// RFC 2812 used 005 for RPL_BOUNCE.
	if len(l.Params) < 3 || !strings.HasSuffix(strings.ToLower(l.Last()), "server") {
		log.Printf("isupport: ignoring 005 that is not ISUPPORT: %s", l.Last())
		return nil
	}

	before := is.CaseMapping()
	is.supported.Merge(auxparse.ParseISupport(l.Params[1 : len(l.Params)-1]))
	is.prefix = nil

	if after := is.CaseMapping(); after != before {
		log.Printf("isupport: casemapping is now %s", after)
		_, err := is.conn.Dispatch(extension.ClassHooks, HookCaseChange, after)
		return err
	}
	return nil
}

func (is *ISupport) disconnected(ev *event.Event) error {
	is.supported = make(auxparse.ISupport)
	is.prefix = nil
	return nil
}

// Get returns the parsed value of key.
func (is *ISupport) Get(key string) (auxparse.Value, bool) {
	v, ok := is.supported[strings.ToUpper(key)]
	return v, ok
}

// Supported returns every token seen so far.
func (is *ISupport) Supported() auxparse.ISupport {
	return is.supported
}

// String returns key's raw value, or def.
func (is *ISupport) String(key, def string) string {
	return is.supported.String(strings.ToUpper(key), def)
}

// Int returns key's value as a number, or def.
func (is *ISupport) Int(key string, def int) int {
	return is.supported.Int(strings.ToUpper(key), def)
}

// CaseMapping returns the server's CASEMAPPING, rfc1459 by default.
func (is *ISupport) CaseMapping() auxparse.CaseMapping {
	return auxparse.ParseCaseMapping(is.String("CASEMAPPING", auxparse.DefaultCaseMapping))
}

// NickLen returns NICKLEN, or 0 when the server did not say.
func (is *ISupport) NickLen() int {
	return is.Int("NICKLEN", 0)
}

// Prefix returns the server's PREFIX table. A PREFIX that does not parse
// is logged and the RFC 1459 default is used.
func (is *ISupport) Prefix() *auxparse.PrefixTable {
	if is.prefix != nil {
		return is.prefix
	}

	p, err := auxparse.ParsePrefixTable(is.String("PREFIX", auxparse.DefaultPrefix))
	if err != nil {
		log.Printf("isupport: %v", err)
		p, _ = auxparse.ParsePrefixTable(auxparse.DefaultPrefix)
	}
	is.prefix = p
	return p
}

// ChanModes returns the server's CHANMODES groups.
func (is *ISupport) ChanModes() auxparse.ModeGroups {
	v, ok := is.Get("CHANMODES")
	if !ok {
		return auxparse.DefaultChanModes
	}
	return auxparse.ParseChanModes(v.Raw())
}
