package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, 2, cfg.Prediction.BufferDays)
	assert.Equal(t, []string{SinkLog}, cfg.Reminder.Sinks)
	assert.Equal(t, "Call %s", cfg.Reminder.SummaryTemplate)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 10*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, 1000, cfg.Export.MaxDataPoints)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
prediction:
  buffer_days: 5
reminder:
  sinks: [ics, telegram]
  summary_template: "Chiamare %s"
telegram:
  bot_token: tok
  chat_id: "42"
ics:
  dir: /tmp/reminders
scheduler:
  interval: 6h
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Prediction.BufferDays)
	assert.Equal(t, []string{"ics", "telegram"}, cfg.Reminder.Sinks)
	assert.Equal(t, "Chiamare %s", cfg.Reminder.SummaryTemplate)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.Interval)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CALLREMINDER_PREDICTION_BUFFER_DAYS", "7")
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Prediction.BufferDays)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Prediction: PredictionConfig{BufferDays: 2},
			Reminder:   ReminderConfig{Sinks: []string{SinkLog}},
			Scheduler:  SchedulerConfig{Interval: time.Hour},
			Export:     ExportConfig{MaxDataPoints: 10},
			ICS:        ICSConfig{Dir: "out"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "negative buffer", mutate: func(c *Config) { c.Prediction.BufferDays = -1 }, wantErr: true},
		{name: "zero interval", mutate: func(c *Config) { c.Scheduler.Interval = 0 }, wantErr: true},
		{name: "unknown sink", mutate: func(c *Config) { c.Reminder.Sinks = []string{"fax"} }, wantErr: true},
		{name: "telegram without token", mutate: func(c *Config) { c.Reminder.Sinks = []string{SinkTelegram} }, wantErr: true},
		{name: "telegram configured", mutate: func(c *Config) {
			c.Reminder.Sinks = []string{SinkTelegram}
			c.Telegram = TelegramConfig{BotToken: "t", ChatID: "c"}
		}},
		{name: "ics without dir", mutate: func(c *Config) {
			c.Reminder.Sinks = []string{SinkICS}
			c.ICS.Dir = ""
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveOverrides(t *testing.T) {
	cfg := Config{Prediction: PredictionConfig{BufferDays: 2}, Export: ExportConfig{MaxDataPoints: 50}}

	assert.Equal(t, 2, cfg.ResolveBufferDays(-1))
	assert.Equal(t, 0, cfg.ResolveBufferDays(0))
	assert.Equal(t, 50, cfg.ResolveMaxPoints(0))
	assert.Equal(t, 7, cfg.ResolveMaxPoints(7))
}
