// Package config loads daemon settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Directory for the journal, settings state, pid file and RPC secret.
	// Defaults to <user config dir>/waqt.
	ConfigDir string `env:"WAQT_CONFIG_DIR"`

	RPCHost   string `env:"WAQT_RPC_HOST" envDefault:"127.0.0.1"`
	RPCPort   int    `env:"WAQT_RPC_PORT" envDefault:"4100"`
	RPCSecret string `env:"WAQT_RPC_SECRET"` // generated into ConfigDir when empty

	// IANA zone schedules are expressed in; empty means the system zone.
	Timezone string `env:"WAQT_TIMEZONE"`

	LogLevel  string `env:"WAQT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"WAQT_LOG_FORMAT" envDefault:"console"` // console, json

	// Profile backend; empty disables remote sync.
	APIBaseURL string        `env:"WAQT_API_BASE_URL"`
	APITimeout time.Duration `env:"WAQT_API_TIMEOUT" envDefault:"10s"`

	MessagesFile string `env:"WAQT_MESSAGES_FILE"`

	TelegramToken  string `env:"WAQT_TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"WAQT_TELEGRAM_CHAT_ID"`

	MQTTBroker   string `env:"WAQT_MQTT_BROKER"`
	MQTTTopic    string `env:"WAQT_MQTT_TOPIC" envDefault:"waqt/reminders"`
	MQTTClientID string `env:"WAQT_MQTT_CLIENT_ID" envDefault:"waqt"`

	RehydrateCron string `env:"WAQT_REHYDRATE_CRON" envDefault:"5 0 * * *"`
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.ConfigDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("%w: no WAQT_CONFIG_DIR and %v", ErrInvalidConfig, err)
		}
		cfg.ConfigDir = filepath.Join(dir, "waqt")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.RPCPort < 0 || c.RPCPort > 65535 {
		errs = append(errs, fmt.Errorf("WAQT_RPC_PORT %d out of range", c.RPCPort))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("WAQT_LOG_FORMAT must be console or json, got %q", c.LogFormat))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("WAQT_API_TIMEOUT must be positive"))
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("WAQT_TELEGRAM_CHAT_ID is required with WAQT_TELEGRAM_TOKEN"))
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		errs = append(errs, errors.New("WAQT_MQTT_TOPIC is required with WAQT_MQTT_BROKER"))
	}
	if c.RehydrateCron != "" && !gronx.New().IsValid(c.RehydrateCron) {
		errs = append(errs, fmt.Errorf("WAQT_REHYDRATE_CRON %q is not a valid cron expression", c.RehydrateCron))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("WAQT_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c *Config) DatabasePath() string { return filepath.Join(c.ConfigDir, "waqt.db") }
func (c *Config) StateDir() string     { return filepath.Join(c.ConfigDir, "state") }
func (c *Config) PidFile() string      { return filepath.Join(c.ConfigDir, "waqt.pid") }
func (c *Config) SecretFile() string   { return filepath.Join(c.ConfigDir, "rpc.secret") }
