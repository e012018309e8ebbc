package extensions

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/dalnet/ircore/internal/event"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/dalnet/ircore/internal/numerics"
)

// DefaultLagInterval is how often LagCheck pings the server.
const DefaultLagInterval = 15 * time.Second

// LagCheck measures round-trip time to the server with periodic PINGs. A
// PING still unanswered when the next one is due ends the connection.
type LagCheck struct {
	conn     extension.Conn
	interval time.Duration
	now      func() time.Time

	lag    time.Duration
	token  string
	sentAt time.Time
	timer  extension.Timer
}

// NewLagCheck returns a factory for the LagCheck extension.
func NewLagCheck(interval time.Duration) extension.Factory {
	if interval <= 0 {
		interval = DefaultLagInterval
	}
	return func(conn extension.Conn) extension.Extension {
		return &LagCheck{conn: conn, interval: interval, now: time.Now}
	}
}

func (lc *LagCheck) Name() string { return "lag" }

func (lc *LagCheck) Describe() extension.Descriptor {
	return extension.Descriptor{
		Commands: map[string]event.Callback{
			numerics.RPL_WELCOME: lc.start,
			"PONG":               lc.pong,
		},
		Hooks: map[string]event.Callback{
			extension.HookDisconnected: lc.disconnected,
		},
	}
}

// Lag returns the last measured round trip, or 0 before the first reply.
func (lc *LagCheck) Lag() time.Duration { return lc.lag }

func (lc *LagCheck) start(ev *event.Event) error {
	lc.ping()
	return nil
}

func (lc *LagCheck) ping() {
	if lc.token != "" {
		log.Printf("Ping timeout: no reply in %s", lc.interval)
		lc.conn.Quit(fmt.Sprintf("Ping timeout: %d seconds", int(lc.interval.Seconds())))
		return
	}

	lc.sentAt = lc.now()
	lc.token = strconv.FormatInt(lc.sentAt.UnixNano(), 10) + "-" + strconv.Itoa(rand.Intn(1e6))
	if err := lc.conn.Send("PING", lc.token); err != nil {
		log.Printf("lag: %v", err)
	}
	lc.timer = lc.conn.Schedule(lc.interval, lc.ping)
}

func (lc *LagCheck) pong(ev *event.Event) error {
	l := ev.Payload.(*line.Line)
	if lc.token == "" || !strings.EqualFold(l.Last(), lc.token) {
		return nil
	}
	lc.lag = lc.now().Sub(lc.sentAt)
	lc.token = ""
	log.Printf("Lag: %s", lc.lag.Round(time.Millisecond))
	return nil
}

func (lc *LagCheck) disconnected(ev *event.Event) error {
	lc.conn.Unschedule(lc.timer)
	lc.timer = nil
	lc.token = ""
	lc.lag = 0
	return nil
}
