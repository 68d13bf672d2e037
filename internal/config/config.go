// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// HTTPDisabled turns the ops server off when used as HTTP_ADDR.
const HTTPDisabled = "off"

// Config holds all application configuration.
type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID        int64  `env:"TELEGRAM_CHAT_ID"`

	APIKey  string `env:"OPENROUTER_API_KEY"`
	Model   string `env:"MODEL" envDefault:"openai/gpt-4o-mini"`
	BaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`

	DailyTime string `env:"DAILY_TIME" envDefault:"13:38"`
	TimeZone  string `env:"TIMEZONE" envDefault:"Local"`
	Debug     bool   `env:"DEBUG_MODE" envDefault:"false"`

	HistoryBackend string `env:"HISTORY_BACKEND" envDefault:"json"`
	HistoryPath    string `env:"HISTORY_PATH" envDefault:"word_history.json"`
	DBPath         string `env:"DB_PATH" envDefault:"./data/vocabot.db"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	PollTimeout      time.Duration `env:"POLL_TIMEOUT" envDefault:"100s"`
	PollIdleInterval time.Duration `env:"POLL_IDLE_INTERVAL" envDefault:"2s"`
	PollErrorBackoff time.Duration `env:"POLL_ERROR_BACKOFF" envDefault:"5s"`

	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMMaxAttempts int           `env:"LLM_MAX_ATTEMPTS" envDefault:"3"`
	LLMRetryDelay  time.Duration `env:"LLM_RETRY_DELAY" envDefault:"2s"`
}

// Load reads configuration from environment variables and validates all of it.
func Load() (*Config, error) {
	return load(env.Options{}, (*Config).Validate)
}

// LoadStorage reads configuration for commands that only touch the word
// history. Credentials are not required.
func LoadStorage() (*Config, error) {
	return load(env.Options{}, (*Config).ValidateStorage)
}

// LoadFrom is Load over an explicit environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ}, (*Config).Validate)
}

func load(opts env.Options, validate func(*Config) error) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.HistoryBackend = strings.ToLower(strings.TrimSpace(cfg.HistoryBackend))

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks credentials, scheduling and storage settings.
func (c *Config) Validate() error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.ChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required"))
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("OPENROUTER_API_KEY is required"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("MODEL cannot be empty"))
	}
	if _, _, err := ParseDailyTime(c.DailyTime); err != nil {
		errs = append(errs, fmt.Errorf("DAILY_TIME: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.PollTimeout < time.Second {
		errs = append(errs, errors.New("POLL_TIMEOUT must be at least 1s"))
	}
	if c.PollIdleInterval <= 0 || c.PollErrorBackoff <= 0 {
		errs = append(errs, errors.New("POLL_IDLE_INTERVAL and POLL_ERROR_BACKOFF must be > 0"))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be > 0"))
	}
	if c.LLMMaxAttempts <= 0 {
		errs = append(errs, errors.New("LLM_MAX_ATTEMPTS must be > 0"))
	}
	if c.LLMRetryDelay < 0 {
		errs = append(errs, errors.New("LLM_RETRY_DELAY cannot be negative"))
	}
	if err := c.ValidateStorage(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateStorage checks the history backend settings.
func (c *Config) ValidateStorage() error {
	switch c.HistoryBackend {
	case "json":
		if c.HistoryPath == "" {
			return errors.New("HISTORY_PATH cannot be empty")
		}
	case "sqlite":
		if c.DBPath == "" {
			return errors.New("DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("HISTORY_BACKEND %q: want json or sqlite", c.HistoryBackend)
	}
	return nil
}

// Location resolves TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || strings.EqualFold(c.TimeZone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// HTTPEnabled reports whether the ops server should run.
func (c *Config) HTTPEnabled() bool {
	return c.HTTPAddr != "" && c.HTTPAddr != HTTPDisabled
}

// ParseDailyTime parses "HH:MM" in 24-hour form.
func ParseDailyTime(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("daily time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("daily time %q: invalid hour", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 || len(m) != 2 {
		return 0, 0, fmt.Errorf("daily time %q: invalid minute", s)
	}
	return hour, minute, nil
}
