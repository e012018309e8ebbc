package irc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dalnet/ircore/internal/config"
	"github.com/dalnet/ircore/internal/extension"
	"github.com/dalnet/ircore/internal/line"
	"github.com/ergochat/irc-go/ircreader"
	"golang.org/x/net/proxy"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"
)

const (
	dialTimeout      = 30 * time.Second
	handshakeTimeout = 30 * time.Second

	readerInitialSize = 1024
	readerMaxSize     = 8192 + 512 // tags plus a full line

	outQueueSize = 64
)

// ErrClosed is returned when writing to a client whose loop has exited.
var ErrClosed = errors.New("connection closed")

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client connects a Session to a server. Everything the session does runs
// on the goroutine that called Run: inbound lines, timer callbacks and
// calls posted with Quit are funnelled onto it.
type Client struct {
	cfg     *config.Config
	session *Session
	dial    dialFunc

	mu     sync.Mutex // guards conn and secure; held for every write
	conn   net.Conn
	secure bool
	reader *ircreader.Reader

	limiter *rate.Limiter
	events  chan func()
	out     chan []byte
	done    chan struct{}
	ctx     context.Context
}

// NewClient creates a client and loads the given extensions.
func NewClient(cfg *config.Config, factories []extension.Factory) (*Client, error) {
	c := &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
		events:  make(chan func()),
		out:     make(chan []byte, outQueueSize),
		done:    make(chan struct{}),
		ctx:     context.Background(),
	}

	d, err := newDialer(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	c.dial = d

	c.session, err = NewSession(c, cfg.Nick, factories)
	if err != nil {
		return nil, fmt.Errorf("failed to load extensions: %w", err)
	}
	return c, nil
}

func newDialer(proxyURL string) (dialFunc, error) {
	direct := &net.Dialer{Timeout: dialTimeout}
	if proxyURL == "" {
		return direct.DialContext, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	d, err := proxy.FromURL(u, direct)
	if err != nil {
		return nil, fmt.Errorf("unsupported proxy: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

// Session returns the protocol session driven by this client.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         c.cfg.Server,
		InsecureSkipVerify: c.cfg.TLSInsecure,
	}
}

// Run connects and runs the event loop until the server closes the
// connection or ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	log.Printf("Connecting to %s...", c.cfg.Addr())
	conn, err := c.dial(ctx, "tcp", c.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if c.cfg.TLS {
		tc := tls.Client(conn, c.tlsConfig())
		hctx, hcancel := context.WithTimeout(ctx, handshakeTimeout)
		err := tc.HandshakeContext(hctx)
		hcancel()
		if err != nil {
			conn.Close()
			return fmt.Errorf("TLS handshake failed: %w", err)
		}
		conn = tc
		c.secure = true
	}

	c.mu.Lock()
	c.conn = conn
	c.reader = c.newReader(conn)
	c.mu.Unlock()

	defer close(c.done)
	defer c.closeConn()

	readErr := make(chan error, 1)
	go c.readLoop(readErr)
	go c.writeLoop(ctx)

	log.Println("Connected to IRC server")
	if err := c.session.Connect(); err != nil {
		log.Printf("irc: connected hook: %v", err)
	}

	for {
		select {
		case fn := <-c.events:
			fn()
		case err := <-readErr:
			if cerr := c.session.Close(); cerr != nil {
				log.Printf("irc: disconnected hook: %v", cerr)
			}
			return err
		case <-ctx.Done():
			c.closeConn()
			c.session.Close()
			return ctx.Err()
		}
	}
}

func (c *Client) newReader(conn net.Conn) *ircreader.Reader {
	r := new(ircreader.Reader)
	r.Initialize(conn, readerInitialSize, readerMaxSize)
	return r
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
}

// post runs fn on the loop goroutine. It reports false once the loop has
// exited.
func (c *Client) post(fn func()) bool {
	select {
	case c.events <- fn:
		return true
	case <-c.done:
		return false
	}
}

// readLoop parks after each line until the loop has handled it, so a
// handler may swap the socket (STARTTLS) before the next read.
func (c *Client) readLoop(errc chan<- error) {
	for {
		b, err := c.reader.ReadLine()
		if err != nil {
			errc <- err
			return
		}
		text := decodeLine(b)

		handled := make(chan struct{})
		ok := c.post(func() {
			defer close(handled)
			if err := c.session.Recv(text); err != nil {
				log.Printf("irc: handling %q: %v", text, err)
			}
		})
		if !ok {
			return
		}
		select {
		case <-handled:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case b := <-c.out:
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			c.mu.Lock()
			_, err := c.conn.Write(b)
			c.mu.Unlock()
			if err != nil {
				log.Printf("irc: write failed: %v", err)
				c.closeConn()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// decodeLine returns b as text. Lines that are not valid UTF-8 are taken to
// be Windows-1252, which is what most legacy clients send.
func decodeLine(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	if d, err := charmap.Windows1252.NewDecoder().Bytes(b); err == nil {
		return string(d)
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// Quit asks the session to send QUIT. It is safe to call from any
// goroutine.
func (c *Client) Quit(message string) {
	c.post(func() {
		c.session.Quit(message)
	})
}

// WriteLine queues l for the writer.
func (c *Client) WriteLine(l *line.Line) error {
	select {
	case c.out <- l.Bytes():
		return nil
	case <-c.done:
		return ErrClosed
	}
}

type timer struct {
	t       *time.Timer
	pending bool
}

func (t *timer) Pending() bool { return t.pending }

// Schedule runs fn on the loop after d. Call it from the loop.
func (c *Client) Schedule(d time.Duration, fn func()) extension.Timer {
	tm := &timer{pending: true}
	tm.t = time.AfterFunc(d, func() {
		c.post(func() {
			// Unschedule may have run after the timer fired but
			// before this reached the loop.
			if !tm.pending {
				return
			}
			tm.pending = false
			fn()
		})
	})
	return tm
}

// Unschedule cancels a timer. Call it from the loop.
func (c *Client) Unschedule(et extension.Timer) {
	tm, ok := et.(*timer)
	if !ok {
		return
	}
	tm.pending = false
	tm.t.Stop()
}

func (c *Client) Secure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.secure
}

// StartTLS upgrades the connection in place. It runs on the loop while the
// reader is parked on the line that triggered it.
func (c *Client) StartTLS() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.secure {
		return errors.New("connection is already using TLS")
	}

	tc := tls.Client(c.conn, c.tlsConfig())
	ctx, cancel := context.WithTimeout(c.ctx, handshakeTimeout)
	defer cancel()
	if err := tc.HandshakeContext(ctx); err != nil {
		return fmt.Errorf("starttls handshake failed: %w", err)
	}

	c.conn = tc
	c.reader = c.newReader(tc)
	c.secure = true
	log.Println("Connection upgraded to TLS")
	return nil
}
