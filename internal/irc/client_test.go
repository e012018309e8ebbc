package irc

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dalnet/ircore/internal/config"
	"github.com/dalnet/ircore/internal/extension"
)

func TestDecodeLine(t *testing.T) {
	if got := decodeLine([]byte("héllo")); got != "héllo" {
		t.Errorf("UTF-8 input changed: %q", got)
	}
	// 0xe9 is é in Windows-1252 and invalid on its own in UTF-8.
	if got := decodeLine([]byte{'h', 0xe9, 'l', 'l', 'o'}); got != "héllo" {
		t.Errorf("Expected Windows-1252 fallback, got %q", got)
	}
}

func TestNewDialerRejectsBadProxy(t *testing.T) {
	if _, err := newDialer("ftp://proxy.example:21"); err == nil {
		t.Errorf("Expected error for unsupported proxy scheme")
	}
	if _, err := newDialer("socks5://127.0.0.1:1080"); err != nil {
		t.Errorf("socks5 proxy rejected: %v", err)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    "irc.example.net",
		Port:      6667,
		Nick:      "tester",
		SendRate:  100,
		SendBurst: 10,
	}
}

func TestClientRun(t *testing.T) {
	var ext *pingExt
	c, err := NewClient(testConfig(), []extension.Factory{
		func(conn extension.Conn) extension.Extension {
			ext = &pingExt{conn: conn}
			return ext
		},
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	server, client := net.Pipe()
	c.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return client, nil
	}

	errc := make(chan error, 1)
	go func() { errc <- c.Run(context.Background()) }()

	server.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := server.Write([]byte("PING :token\r\n")); err != nil {
		t.Fatalf("Server write failed: %v", err)
	}

	r := bufio.NewReader(server)
	reply, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("Server read failed: %v", err)
	}
	if strings.TrimRight(reply, "\r\n") != "PONG token" {
		t.Errorf("Expected PONG, got %q", reply)
	}

	server.Close()
	select {
	case <-errc:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the server closed")
	}

	if len(ext.hooks) != 2 || ext.hooks[1] != "disconnected" {
		t.Errorf("Unexpected hooks: %v", ext.hooks)
	}
}

func TestClientUnscheduleWins(t *testing.T) {
	c, err := NewClient(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	fired := false
	tm := c.Schedule(time.Millisecond, func() { fired = true })

	// Let the timer fire; its callback blocks on the loop channel.
	time.Sleep(20 * time.Millisecond)
	c.Unschedule(tm)
	if tm.Pending() {
		t.Errorf("Timer still pending after Unschedule")
	}

	select {
	case fn := <-c.events:
		fn()
	case <-time.After(time.Second):
		t.Fatal("Timer callback never reached the loop")
	}
	if fired {
		t.Errorf("Unscheduled timer ran")
	}
}
