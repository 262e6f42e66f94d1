// Package config provides application configuration.
//
// Sources, later overriding earlier: built-in defaults, an optional YAML
// file, then environment variables (a .env file in the working directory is
// loaded into the environment first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Brokerage endpoints selected by broker.environment when broker.base_url is unset.
const (
	DemoBaseURL = "https://demo-api-capital.backend-capital.com/api/v1"
	LiveBaseURL = "https://api-capital.backend-capital.com/api/v1"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Broker    BrokerConfig    `koanf:"broker"`
	Log       LogConfig       `koanf:"log"`
	Journal   JournalConfig   `koanf:"journal"`
	Keepalive KeepaliveConfig `koanf:"keepalive"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
	// WebhookToken, when set, must accompany every webhook call.
	WebhookToken string `koanf:"webhook_token"`
}

// BrokerConfig holds brokerage connection settings.
type BrokerConfig struct {
	BaseURL     string `koanf:"base_url"`
	Environment string `koanf:"environment"` // demo or live
	Identifier  string `koanf:"identifier"`
	Password    string `koanf:"password"`
	APIKey      string `koanf:"api_key"`
	Currency    string `koanf:"currency"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JournalConfig holds the optional signal journal settings. Empty Path disables it.
type JournalConfig struct {
	Path string `koanf:"path"`
}

// KeepaliveConfig holds the ping loop settings. Empty URL disables pings.
type KeepaliveConfig struct {
	URL          string        `koanf:"url"`
	Interval     time.Duration `koanf:"interval"`
	ProbeSession bool          `koanf:"probe_session"`
}

// envKeys maps environment variable names onto config keys.
var envKeys = map[string]string{
	"HOST":                    "server.host",
	"PORT":                    "server.port",
	"WEBHOOK_TOKEN":           "server.webhook_token",
	"CAPITAL_API_URL":         "broker.base_url",
	"CAPITAL_ENV":             "broker.environment",
	"CAPITAL_EMAIL":           "broker.identifier",
	"CAPITAL_PASSWORD":        "broker.password",
	"CAPITAL_API_KEY":         "broker.api_key",
	"CAPITAL_CURRENCY":        "broker.currency",
	"LOG_LEVEL":               "log.level",
	"LOG_FORMAT":              "log.format",
	"JOURNAL_PATH":            "journal.path",
	"KEEPALIVE_URL":           "keepalive.url",
	"KEEPALIVE_INTERVAL":      "keepalive.interval",
	"KEEPALIVE_PROBE_SESSION": "keepalive.probe_session",
}

func defaults() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host": "0.0.0.0",
			"port": "8080",
		},
		"broker": map[string]any{
			"currency": "USD",
		},
		"log": map[string]any{
			"level":  "info",
			"format": "json",
		},
		"keepalive": map[string]any{
			"interval":      "5m",
			"probe_session": false,
		},
	}
}

// mapProvider feeds an in-memory map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// Load builds a Config. path may be empty, in which case only defaults and the
// environment are consulted.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", func(s string) string {
		return envKeys[s]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Broker.BaseURL == "" {
		base, err := BaseURL(cfg.Broker.Environment)
		if err != nil {
			return nil, err
		}
		cfg.Broker.BaseURL = base
	}
	cfg.Broker.BaseURL = strings.TrimRight(cfg.Broker.BaseURL, "/")
	cfg.Broker.Currency = strings.ToUpper(strings.TrimSpace(cfg.Broker.Currency))

	return cfg, nil
}

// BaseURL resolves a brokerage environment name. An empty name resolves to an
// empty URL, which MissingBroker then reports.
func BaseURL(environment string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "":
		return "", nil
	case "demo", "practice":
		return DemoBaseURL, nil
	case "live":
		return LiveBaseURL, nil
	default:
		return "", fmt.Errorf("unknown brokerage environment %q (want demo|live)", environment)
	}
}

// MissingBroker returns the environment variable names of required brokerage
// settings that are not set, in a fixed order.
func (c *Config) MissingBroker() []string {
	var missing []string
	if c.Broker.BaseURL == "" {
		missing = append(missing, "CAPITAL_API_URL")
	}
	if c.Broker.Identifier == "" {
		missing = append(missing, "CAPITAL_EMAIL")
	}
	if c.Broker.Password == "" {
		missing = append(missing, "CAPITAL_PASSWORD")
	}
	if c.Broker.APIKey == "" {
		missing = append(missing, "CAPITAL_API_KEY")
	}
	return missing
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// ConfigPathFromEnv returns the config file named by RELAY_CONFIG, if any.
func ConfigPathFromEnv() string {
	return os.Getenv("RELAY_CONFIG")
}
