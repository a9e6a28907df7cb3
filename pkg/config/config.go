package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// WebSocketConfig holds WebSocket-specific configuration
type WebSocketConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout"` // Timeout for writing messages to WebSocket
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Timeout for reading messages from WebSocket (keepalive)
	PingInterval time.Duration `yaml:"ping_interval"` // Interval for sending ping messages
}

// WidgetConfig describes the external conferencing widget being embedded.
type WidgetConfig struct {
	Domain     string `yaml:"domain"`      // Host serving the widget, e.g. meet.jit.si
	ScriptURL  string `yaml:"script_url"`  // Bootstrap script URL; derived from Domain when empty
	Width      string `yaml:"width"`       // Widget width passed to the constructor
	Height     string `yaml:"height"`      // Widget height passed to the constructor
	ParentNode string `yaml:"parent_node"` // DOM node id the widget mounts into
}

// SessionConfig controls session lifecycle behavior.
type SessionConfig struct {
	DefaultDisplayName string        `yaml:"default_display_name"`
	PollInterval       time.Duration `yaml:"poll_interval"`     // Delay between constructor availability checks
	MaxPollAttempts    int           `yaml:"max_poll_attempts"` // Bounded retry window for the constructor poll
}

type Config struct {
	// Server configuration
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`

	Widget  WidgetConfig  `yaml:"widget"`
	Session SessionConfig `yaml:"session"`

	// WebSocket configuration
	WebSocket WebSocketConfig `yaml:"websocket"`
}

func defaults() *Config {
	return &Config{
		HTTPAddr: ":8080",
		LogLevel: "info",

		Widget: WidgetConfig{
			Domain:     "meet.jit.si",
			Width:      "100%",
			Height:     "100%",
			ParentNode: "meet",
		},

		Session: SessionConfig{
			DefaultDisplayName: "Guest",
			PollInterval:       500 * time.Millisecond,
			MaxPollAttempts:    12,
		},

		WebSocket: WebSocketConfig{
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  3 * time.Minute,
			PingInterval: 60 * time.Second,
		},
	}
}

// Load builds the configuration: defaults, then an optional YAML file,
// then environment variables, then command line flags.
func Load() (*Config, error) {
	cfg := defaults()

	configFile := os.Getenv("MEET_CONFIG_FILE")
	flag.StringVar(&configFile, "config", configFile, "Path to YAML configuration file")
	flag.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP server address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.Widget.Domain, "domain", cfg.Widget.Domain, "Conferencing widget domain")
	flag.Parse()

	if configFile != "" {
		if err := loadFile(cfg, configFile); err != nil {
			return nil, err
		}
	}
	loadEnv(cfg)

	// Re-apply flags so they win over file and environment values.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTPAddr = f.Value.String()
		case "log-level":
			cfg.LogLevel = f.Value.String()
		case "domain":
			cfg.Widget.Domain = f.Value.String()
		}
	})

	if cfg.Widget.ScriptURL == "" && cfg.Widget.Domain != "" {
		cfg.Widget.ScriptURL = fmt.Sprintf("https://%s/external_api.js", cfg.Widget.Domain)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func loadEnv(cfg *Config) {
	if addr := os.Getenv("MEET_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if level := os.Getenv("MEET_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if domain := os.Getenv("MEET_WIDGET_DOMAIN"); domain != "" {
		cfg.Widget.Domain = domain
	}
	if url := os.Getenv("MEET_WIDGET_SCRIPT_URL"); url != "" {
		cfg.Widget.ScriptURL = url
	}
	if name := os.Getenv("MEET_DEFAULT_DISPLAY_NAME"); name != "" {
		cfg.Session.DefaultDisplayName = name
	}
	if interval := os.Getenv("MEET_POLL_INTERVAL_MS"); interval != "" {
		if ms, err := strconv.Atoi(interval); err == nil {
			cfg.Session.PollInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if attempts := os.Getenv("MEET_MAX_POLL_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			cfg.Session.MaxPollAttempts = n
		}
	}
	if timeout := os.Getenv("MEET_WEBSOCKET_WRITE_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil {
			cfg.WebSocket.WriteTimeout = time.Duration(seconds) * time.Second
		}
	}
	if timeout := os.Getenv("MEET_WEBSOCKET_READ_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil {
			cfg.WebSocket.ReadTimeout = time.Duration(seconds) * time.Second
		}
	}
	if interval := os.Getenv("MEET_WEBSOCKET_PING_INTERVAL"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil {
			cfg.WebSocket.PingInterval = time.Duration(seconds) * time.Second
		}
	}
}

func (c *Config) Validate() error {
	if c.Widget.Domain == "" {
		return ErrMissingDomain
	}
	if c.Session.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.Session.MaxPollAttempts <= 0 {
		return ErrInvalidPollAttempts
	}
	return nil
}
