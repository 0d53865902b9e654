package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the global ~/.hookchat/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile"`
	MetricsAddr    string `toml:"metrics_addr"`

	Webhook  WebhookConfig  `toml:"webhook"`
	Poll     PollConfig     `toml:"poll"`
	Identity IdentityConfig `toml:"identity"`
	Delivery DeliveryConfig `toml:"delivery"`
	Messages MessagesConfig `toml:"messages"`
	Notify   NotifyConfig   `toml:"notify"`
}

type WebhookConfig struct {
	SendURL     string   `toml:"send_url"`
	PollURL     string   `toml:"poll_url"`
	SendTimeout Duration `toml:"send_timeout"`
	PollTimeout Duration `toml:"poll_timeout"`
}

type PollConfig struct {
	Interval Duration `toml:"interval"`
}

type IdentityConfig struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Phone string `toml:"phone"`
}

type DeliveryConfig struct {
	DeliveredDelay Duration `toml:"delivered_delay"`
	ReadDelay      Duration `toml:"read_delay"`
}

type MessagesConfig struct {
	MaxLength int `toml:"max_length"`
}

type NotifyConfig struct {
	Bell    bool   `toml:"bell"`
	Command string `toml:"command"`
}

// Duration is a time.Duration written as a string such as "3s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Webhook: WebhookConfig{
			SendURL:     "http://localhost:3001/api/relay/webhook",
			SendTimeout: Duration{30 * time.Second},
			PollTimeout: Duration{5 * time.Second},
		},
		Poll: PollConfig{Interval: Duration{3 * time.Second}},
		Identity: IdentityConfig{
			ID:    "user_unknown",
			Name:  "User",
			Phone: "+000000000",
		},
		Delivery: DeliveryConfig{
			DeliveredDelay: Duration{1 * time.Second},
			ReadDelay:      Duration{2 * time.Second},
		},
		Messages: MessagesConfig{MaxLength: 4096},
		Notify:   NotifyConfig{Bell: true},
	}
}

// Load reads config from the given path on top of the defaults. Returns
// an error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored; variables already set win.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv overrides fields from HOOKCHAT_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Webhook.SendURL, "HOOKCHAT_SEND_URL")
	set(&c.Webhook.PollURL, "HOOKCHAT_POLL_URL")
	set(&c.Identity.ID, "HOOKCHAT_USER_ID")
	set(&c.Identity.Name, "HOOKCHAT_USER_NAME")
	set(&c.Identity.Phone, "HOOKCHAT_USER_PHONE")

	if v := getenv("HOOKCHAT_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HOOKCHAT_POLL_INTERVAL: %w", err)
		}
		c.Poll.Interval = Duration{d}
	}
	return nil
}
