package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"TELEGRAM_BOT_TOKEN": "123:abc",
		"TELEGRAM_CHAT_ID":   "-100200300",
		"OPENROUTER_API_KEY": "sk-or-test",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, int64(-100200300), cfg.ChatID)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.Model)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.BaseURL)
	assert.Equal(t, "13:38", cfg.DailyTime)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "json", cfg.HistoryBackend)
	assert.Equal(t, "word_history.json", cfg.HistoryPath)
	assert.Equal(t, 100*time.Second, cfg.PollTimeout)
	assert.Equal(t, 2*time.Second, cfg.PollIdleInterval)
	assert.Equal(t, 5*time.Second, cfg.PollErrorBackoff)
	assert.Equal(t, 3, cfg.LLMMaxAttempts)
	assert.True(t, cfg.HTTPEnabled())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoadOverrides(t *testing.T) {
	environ := baseEnv()
	environ["DEBUG_MODE"] = "true"
	environ["HISTORY_BACKEND"] = " SQLite "
	environ["TIMEZONE"] = "UTC"
	environ["HTTP_ADDR"] = "off"
	environ["LLM_RETRY_DELAY"] = "250ms"

	cfg, err := LoadFrom(environ)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "sqlite", cfg.HistoryBackend)
	assert.False(t, cfg.HTTPEnabled())
	assert.Equal(t, 250*time.Millisecond, cfg.LLMRetryDelay)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{name: "missing token", key: "TELEGRAM_BOT_TOKEN", value: "", want: "TELEGRAM_BOT_TOKEN"},
		{name: "missing api key", key: "OPENROUTER_API_KEY", value: "", want: "OPENROUTER_API_KEY"},
		{name: "bad daily time", key: "DAILY_TIME", value: "25:61", want: "DAILY_TIME"},
		{name: "bad zone", key: "TIMEZONE", value: "Mars/Olympus", want: "TIMEZONE"},
		{name: "bad backend", key: "HISTORY_BACKEND", value: "redis", want: "HISTORY_BACKEND"},
		{name: "zero attempts", key: "LLM_MAX_ATTEMPTS", value: "0", want: "LLM_MAX_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			environ := baseEnv()
			environ[tt.key] = tt.value

			_, err := LoadFrom(environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRejectsMalformedChatID(t *testing.T) {
	environ := baseEnv()
	environ["TELEGRAM_CHAT_ID"] = "not-a-number"

	_, err := LoadFrom(environ)
	assert.Error(t, err)
}

func TestValidateStorageIgnoresCredentials(t *testing.T) {
	cfg := &Config{HistoryBackend: "json", HistoryPath: "h.json"}
	assert.NoError(t, cfg.ValidateStorage())
	assert.Error(t, cfg.Validate())
}

func TestParseDailyTime(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "13:38", hour: 13, minute: 38},
		{in: "00:00", hour: 0, minute: 0},
		{in: " 7:05 ", hour: 7, minute: 5},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseDailyTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}
