package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "ircore-config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server: irc.dal.net\nnick: ircore\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 6667 {
		t.Errorf("Expected default port 6667, got %d", cfg.Port)
	}
	if cfg.Username != "ircore" || cfg.IRCName != "ircore" {
		t.Errorf("Expected username and irc_name to default to nick, got %q %q", cfg.Username, cfg.IRCName)
	}
	if cfg.CapTimeout != 15*time.Second {
		t.Errorf("Expected 15s cap timeout, got %v", cfg.CapTimeout)
	}
	if len(cfg.Extensions) != len(DefaultExtensions) {
		t.Errorf("Expected default extensions, got %v", cfg.Extensions)
	}
	if cfg.SASLMechanism != "PLAIN" {
		t.Errorf("Expected PLAIN, got %q", cfg.SASLMechanism)
	}
	if cfg.Addr() != "irc.dal.net:6667" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
server: irc.example.net
tls: true
nick: bot
alternate: bot_
channels:
  - "#one"
  - "#two key"
extensions: [basicrfc, cap, sasl]
caps: [away-notify]
cap_timeout: 5s
lag_interval: 1m
send_rate: 0.5
send_burst: 3
sasl_username: bot
sasl_password: secret
oper_nick: bot
oper_pass: operpw
user_modes: "+inFI -hg"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 6697 {
		t.Errorf("Expected TLS default port 6697, got %d", cfg.Port)
	}
	if len(cfg.Channels) != 2 || cfg.Channels[1] != "#two key" {
		t.Errorf("Unexpected channels: %v", cfg.Channels)
	}
	if len(cfg.Extensions) != 3 || cfg.Extensions[2] != "sasl" {
		t.Errorf("Unexpected extensions: %v", cfg.Extensions)
	}
	if cfg.CapTimeout != 5*time.Second || cfg.LagInterval != time.Minute {
		t.Errorf("Unexpected durations: %v %v", cfg.CapTimeout, cfg.LagInterval)
	}
	if cfg.SendRate != 0.5 || cfg.SendBurst != 3 {
		t.Errorf("Unexpected rate settings: %v %d", cfg.SendRate, cfg.SendBurst)
	}
	if cfg.OperNick != "bot" || cfg.OperPass != "operpw" || cfg.UserModes != "+inFI -hg" {
		t.Errorf("Unexpected oper settings: %q %q %q", cfg.OperNick, cfg.OperPass, cfg.UserModes)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Errorf("Expected error for missing file")
	}

	path := writeConfig(t, "server: [unterminated\n")
	if _, err := Load(path); err == nil {
		t.Errorf("Expected parse error")
	}

	path = writeConfig(t, "nick: bot\n")
	if _, err := Load(path); err == nil {
		t.Errorf("Expected error for missing server")
	}
}
