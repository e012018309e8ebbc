package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all client configuration
type Config struct {
	Server      string `yaml:"server"`
	Port        int    `yaml:"port"`
	TLS         bool   `yaml:"tls"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	Proxy       string `yaml:"proxy"`
	ServerPass  string `yaml:"server_pass"`

	Nick      string `yaml:"nick"`
	Alternate string `yaml:"alternate"`
	Username  string `yaml:"username"`
	IRCName   string `yaml:"irc_name"`

	NickPass      string `yaml:"nick_pass"`
	OperNick      string `yaml:"oper_nick"`
	OperPass      string `yaml:"oper_pass"`
	UserModes     string `yaml:"user_modes"`
	SASLUsername  string `yaml:"sasl_username"`
	SASLPassword  string `yaml:"sasl_password"`
	SASLMechanism string `yaml:"sasl_mechanism"`

	Channels   []string `yaml:"channels"`
	Extensions []string `yaml:"extensions"`
	Caps       []string `yaml:"caps"`

	CapTimeout  time.Duration `yaml:"cap_timeout"`
	LagInterval time.Duration `yaml:"lag_interval"`
	RejoinDelay time.Duration `yaml:"rejoin_delay"`
	CTCPVersion string        `yaml:"ctcp_version"`

	SendRate  float64 `yaml:"send_rate"`
	SendBurst int     `yaml:"send_burst"`
}

// DefaultExtensions is the load order used when the config names none.
// Other built-ins, such as kickrejoin, load only when named.
var DefaultExtensions = []string{
	"basicrfc", "isupport", "cap", "starttls", "sasl",
	"ctcp", "altnick", "modehandler", "lag", "autojoin", "services",
	"basicapi",
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) setDefaults() error {
	if cfg.Server == "" {
		return fmt.Errorf("config: server is required")
	}
	if cfg.Nick == "" {
		return fmt.Errorf("config: nick is required")
	}

	if cfg.Port == 0 {
		cfg.Port = 6667
		if cfg.TLS {
			cfg.Port = 6697
		}
	}
	if cfg.Username == "" {
		cfg.Username = cfg.Nick
	}
	if cfg.IRCName == "" {
		cfg.IRCName = cfg.Nick
	}
	if cfg.SASLMechanism == "" {
		cfg.SASLMechanism = "PLAIN"
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.CapTimeout == 0 {
		cfg.CapTimeout = 15 * time.Second
	}
	if cfg.LagInterval == 0 {
		cfg.LagInterval = 30 * time.Second
	}
	if cfg.SendRate == 0 {
		cfg.SendRate = 2
	}
	if cfg.SendBurst == 0 {
		cfg.SendBurst = 5
	}
	return nil
}

// Addr returns the server address in host:port form.
func (cfg *Config) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
}
