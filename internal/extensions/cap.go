package extensions

import (
	"log"
	"sort"
	"strings"
	"time"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/dalnet/ircore/internal/numerics"
)

// Event classes raised by CapNegotiate.
const (
	// ClassCommandsCap carries CAP lines, named by lower-cased
	// sub-command (ls, ack, nak, list, new, del).
	ClassCommandsCap = "commands_cap"

	// ClassCapPerform carries a *CapEvent for caps the server has just
	// acknowledged ("ack") or withdrawn ("del"). A handler that needs to
	// run its own exchange before CAP END pauses the event and later
	// hands it back through CapNegotiate.Continue.
	ClassCapPerform = "cap_perform"
)

// DefaultCapTimeout bounds the whole negotiation.
const DefaultCapTimeout = 15 * time.Second

const capVersion = "302"

// CapState is the negotiation phase.
type CapState int

const (
	CapIdle CapState = iota
	CapAwaitingList
	CapRequesting
	CapEnding
	CapDone
)

func (s CapState) String() string {
	switch s {
	case CapIdle:
		return "idle"
	case CapAwaitingList:
		return "awaiting_list"
	case CapRequesting:
		return "requesting"
	case CapEnding:
		return "ending"
	case CapDone:
		return "done"
	}
	return "unknown"
}

// CapProvider is implemented by extensions that want caps requested on
// their behalf. Caps is consulted each time the server advertises caps,
// and only names the server advertised are registered.
type CapProvider interface {
	Caps() map[string][]string
}

// CapEvent is the payload of ClassCapPerform events.
type CapEvent struct {
	Line *line.Line
	Caps map[string][]string
}

// Has reports whether cap is part of the event.
func (e *CapEvent) Has(cap string) bool {
	_, ok := e.Caps[cap]
	return ok
}

// CapNegotiate runs IRCv3 capability negotiation before registration.
//
// On connect it sends CAP LS and holds back the connected hook from every
// later extension. Once negotiation ends (or times out) it sends CAP END and
// raises connected again, so the registration handshake runs exactly once.
type CapNegotiate struct {
	conn    extension.Conn
	timeout time.Duration
	extra   []string

	state     CapState
	supported map[string][]string
	remote    map[string][]string
	local     map[string][]string
	requested map[string]bool
	chains    map[*event.Event]bool
	listing   map[string][]string

	timer     extension.Timer
	providers []CapProvider
}

// NewCapNegotiate returns a factory for the CAP extension. extra names caps
// to request whenever the server offers them.
func NewCapNegotiate(timeout time.Duration, extra ...string) extension.Factory {
	if timeout <= 0 {
		timeout = DefaultCapTimeout
	}
	return func(conn extension.Conn) extension.Extension {
		c := &CapNegotiate{
			conn:    conn,
			timeout: timeout,
			extra:   extra,
		}
		c.reset()
		return c
	}
}

func (c *CapNegotiate) Name() string { return "cap" }

func (c *CapNegotiate) Describe() extension.Descriptor {
	return extension.Descriptor{
		Priority: extension.PriorityFirst,
		Requires: []string{"basicrfc"},
		Commands: map[string]event.Callback{
			"CAP":                       c.dispatchCap,
			numerics.ERR_INVALIDCAPCMD:  c.invalidCmd,
			numerics.ERR_UNKNOWNCOMMAND: c.unknownCommand,
		},
		Hooks: map[string]event.Callback{
			extension.HookConnected:     c.connected,
			extension.HookDisconnected:  c.disconnected,
			extension.HookExtensionPost: c.collectProviders,
		},
		Events: []extension.Subscription{
			{Class: ClassCommandsCap, Name: "ls", Func: c.ls},
			{Class: ClassCommandsCap, Name: "new", Func: c.newCaps},
			{Class: ClassCommandsCap, Name: "del", Func: c.del},
			{Class: ClassCommandsCap, Name: "list", Func: c.list},
			{Class: ClassCommandsCap, Name: "ack", Func: c.ack},
			{Class: ClassCommandsCap, Name: "nak", Func: c.nak},
		},
	}
}

// State returns the negotiation phase.
func (c *CapNegotiate) State() CapState { return c.state }

// Negotiating reports whether CAP END has yet to be sent.
func (c *CapNegotiate) Negotiating() bool {
	return c.state == CapAwaitingList || c.state == CapRequesting
}

// Enabled reports whether the server acknowledged cap.
func (c *CapNegotiate) Enabled(cap string) bool {
	_, ok := c.local[cap]
	return ok
}

// Remote returns the values the server advertised for cap.
func (c *CapNegotiate) Remote(cap string) ([]string, bool) {
	v, ok := c.remote[cap]
	return v, ok
}

// Register adds cap to the set requested when the server offers it. With
// replace false an existing entry is kept. Registration after CAP END is
// ignored.
func (c *CapNegotiate) Register(cap string, params []string, replace bool) {
	if c.state == CapDone {
		log.Printf("cap: ignoring late registration of %s", cap)
		return
	}
	c.register(cap, params, replace)
}

func (c *CapNegotiate) register(cap string, params []string, replace bool) {
	if _, ok := c.supported[cap]; ok && !replace {
		return
	}
	c.supported[cap] = params
}

// Unregister stops requesting cap.
func (c *CapNegotiate) Unregister(cap string) {
	delete(c.supported, cap)
}

// Continue resumes a cap_perform event an extension paused. Negotiation ends
// once nothing is left waiting.
func (c *CapNegotiate) Continue(ev *event.Event) error {
	if ev == nil || !c.chains[ev] {
		return nil
	}
	_, err := c.conn.Resume(ev)
	if !ev.Paused() {
		delete(c.chains, ev)
	}
	if err != nil {
		return err
	}
	return c.maybeEnd()
}

func (c *CapNegotiate) reset() {
	c.state = CapIdle
	c.supported = make(map[string][]string)
	c.remote = make(map[string][]string)
	c.local = make(map[string][]string)
	c.requested = make(map[string]bool)
	c.chains = make(map[*event.Event]bool)
	c.listing = nil
	for _, cap := range c.extra {
		c.supported[cap] = nil
	}
}

func (c *CapNegotiate) collectProviders(ev *event.Event) error {
	c.providers = c.providers[:0]
	for _, ext := range c.conn.Extensions() {
		if p, ok := ext.(CapProvider); ok {
			c.providers = append(c.providers, p)
		}
	}
	return nil
}

func (c *CapNegotiate) connected(ev *event.Event) error {
	if c.state != CapIdle {
		// Raised again by end; let it through.
		return nil
	}

	if err := c.conn.Send("CAP", "LS", capVersion); err != nil {
		return err
	}
	c.state = CapAwaitingList
	c.arm()
	ev.Status = event.StatusCancel
	return nil
}

func (c *CapNegotiate) disconnected(ev *event.Event) error {
	c.conn.Unschedule(c.timer)
	c.timer = nil
	c.reset()
	return nil
}

func (c *CapNegotiate) arm() {
	c.conn.Unschedule(c.timer)
	c.timer = c.conn.Schedule(c.timeout, func() {
		log.Printf("cap: negotiation timed out after %s", c.timeout)
		if err := c.end(); err != nil {
			log.Printf("cap: %v", err)
		}
	})
}

// dispatchCap re-raises a CAP line under its sub-command.
func (c *CapNegotiate) dispatchCap(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if len(l.Params) < 2 {
		log.Printf("cap: malformed CAP line: %s", strings.TrimSpace(l.String()))
		return nil
	}

	c.conn.Unschedule(c.timer)
	if c.Negotiating() {
		c.arm()
	}

	sub := strings.ToLower(l.Params[1])
	switch sub {
	case "ls", "new", "del", "list", "ack", "nak":
	default:
		log.Printf("cap: unknown sub-command %q", l.Params[1])
		return nil
	}
	_, err := c.conn.Dispatch(ClassCommandsCap, sub, l)
	return err
}

func (c *CapNegotiate) invalidCmd(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	log.Printf("cap: server rejected CAP %s: %s", l.Param(1), l.Last())
	return nil
}

// unknownCommand ends negotiation early on servers without CAP.
func (c *CapNegotiate) unknownCommand(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if !strings.EqualFold(l.Param(1), "CAP") || !c.Negotiating() {
		return nil
	}
	log.Println("cap: server does not support CAP")
	return c.end()
}

// parseCaps splits a cap list such as "sasl=PLAIN,EXTERNAL multi-prefix".
func parseCaps(s string) map[string][]string {
	caps := make(map[string][]string)
	for _, tok := range strings.Fields(s) {
		name, val, ok := strings.Cut(tok, "=")
		if ok && val != "" {
			caps[name] = strings.Split(val, ",")
		} else {
			caps[name] = nil
		}
	}
	return caps
}

// capList gathers a possibly multi-line reply. It reports false while more
// lines are expected.
func (c *CapNegotiate) capList(l *line.Line) (map[string][]string, bool) {
	if c.listing == nil {
		c.listing = make(map[string][]string)
	}
	for k, v := range parseCaps(l.Last()) {
		c.listing[k] = v
	}
	if len(l.Params) >= 4 && l.Params[2] == "*" {
		return nil, false
	}
	caps := c.listing
	c.listing = nil
	return caps, true
}

// discover registers the caps providers want out of those just offered.
func (c *CapNegotiate) discover(offered map[string][]string) {
	for _, p := range c.providers {
		for cap, params := range p.Caps() {
			if _, ok := offered[cap]; ok {
				c.register(cap, params, false)
			}
		}
	}
}

// request sends CAP REQ for the offered caps we support. It returns false
// if there was nothing to request.
func (c *CapNegotiate) request(offered map[string][]string) (bool, error) {
	var want []string
	for cap := range offered {
		if _, ok := c.supported[cap]; !ok {
			continue
		}
		if _, ok := c.local[cap]; ok {
			continue
		}
		want = append(want, cap)
	}
	if len(want) == 0 {
		return false, nil
	}
	sort.Strings(want)

	for _, cap := range want {
		c.requested[cap] = true
	}
	return true, c.conn.Send("CAP", "REQ", strings.Join(want, " "))
}

func (c *CapNegotiate) ls(ev *event.Event) error {
	caps, done := c.capList(ev.Payload.(*line.Line))
	if !done {
		return nil
	}
	for k, v := range caps {
		c.remote[k] = v
	}
	if c.state != CapAwaitingList {
		return nil
	}

	c.discover(c.remote)
	sent, err := c.request(c.remote)
	if err != nil {
		return err
	}
	if !sent {
		return c.end()
	}
	c.state = CapRequesting
	return nil
}

func (c *CapNegotiate) newCaps(ev *event.Event) error {
	caps := parseCaps(ev.Payload.(*line.Line).Last())
	for k, v := range caps {
		c.remote[k] = v
	}
	if c.state == CapIdle {
		return nil
	}
	log.Printf("cap: server offers new caps: %s", strings.Join(sortedKeys(caps), " "))

	c.discover(caps)
	_, err := c.request(caps)
	return err
}

func (c *CapNegotiate) del(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	caps := parseCaps(l.Last())
	for k := range caps {
		delete(c.remote, k)
		delete(c.local, k)
	}
	_, err := c.conn.Dispatch(ClassCapPerform, "del", &CapEvent{Line: l, Caps: caps})
	return err
}

func (c *CapNegotiate) list(ev *event.Event) error {
	caps, done := c.capList(ev.Payload.(*line.Line))
	if !done {
		return nil
	}
	c.local = caps
	return nil
}

func (c *CapNegotiate) ack(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	acked := make(map[string][]string)
	for _, tok := range strings.Fields(l.Last()) {
		if strings.HasPrefix(tok, "-") {
			name := strings.TrimPrefix(tok, "-")
			delete(c.local, name)
			delete(c.requested, name)
			continue
		}
		name := strings.TrimLeft(tok, "=~")
		if _, ok := c.supported[name]; !ok {
			log.Printf("cap: server acknowledged %s, which was never requested", name)
		}
		c.local[name] = c.remote[name]
		acked[name] = c.remote[name]
		delete(c.requested, name)
	}

	if len(acked) > 0 {
		pev, err := c.conn.Dispatch(ClassCapPerform, "ack", &CapEvent{Line: l, Caps: acked})
		if err != nil {
			return err
		}
		if pev.Paused() {
			c.chains[pev] = true
		}
	}
	return c.maybeEnd()
}

func (c *CapNegotiate) nak(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	log.Printf("cap: server rejected caps: %s", l.Last())
	for _, tok := range strings.Fields(l.Last()) {
		delete(c.requested, strings.TrimLeft(tok, "-=~"))
	}
	return c.maybeEnd()
}

func (c *CapNegotiate) maybeEnd() error {
	if c.state != CapRequesting || len(c.requested) > 0 || len(c.chains) > 0 {
		return nil
	}
	return c.end()
}

// end sends CAP END and lets the connected hook reach everyone else.
func (c *CapNegotiate) end() error {
	if c.state == CapDone || c.state == CapIdle {
		return nil
	}
	c.state = CapEnding
	c.conn.Unschedule(c.timer)
	c.timer = nil
	c.chains = make(map[*event.Event]bool)
	c.requested = make(map[string]bool)

	if err := c.conn.Send("CAP", "END"); err != nil {
		return err
	}
	c.state = CapDone
	_, err := c.conn.Dispatch(extension.ClassHooks, extension.HookConnected, nil)
	return err
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
