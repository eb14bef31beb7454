package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/gilvegliach/CallReminder/internal/logging"
)

// Sink names accepted in reminder.sinks.
const (
	SinkTelegram = "telegram"
	SinkICS      = "ics"
	SinkLog      = "log"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Reminder   ReminderConfig   `mapstructure:"reminder"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	ICS        ICSConfig        `mapstructure:"ics"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Export     ExportConfig     `mapstructure:"export"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// PredictionConfig tunes the reminder projection.
type PredictionConfig struct {
	BufferDays int `mapstructure:"buffer_days"`
}

// ReminderConfig selects sinks and event wording.
type ReminderConfig struct {
	Sinks           []string `mapstructure:"sinks"`
	SummaryTemplate string   `mapstructure:"summary_template"`
	Description     string   `mapstructure:"description"`
}

// TelegramConfig describes the Telegram reminder sink.
type TelegramConfig struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ICSConfig describes the iCalendar file sink.
type ICSConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the periodic scan of customer files.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	InputDir        string        `mapstructure:"input_dir"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// MetricsConfig controls the Prometheus endpoint served by the run command.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CALLREMINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "callreminder")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("prediction.buffer_days", 2)

	v.SetDefault("reminder.sinks", []string{SinkLog})
	v.SetDefault("reminder.summary_template", "Call %s")
	v.SetDefault("reminder.description", "")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", "10s")

	v.SetDefault("ics.dir", "reminders")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.input_dir", "customers")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x63616c6c))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("export.max_data_points", 1000)

	v.SetDefault("metrics.listen_addr", ":9102")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Prediction.BufferDays < 0 {
		return fmt.Errorf("prediction.buffer_days cannot be negative")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	for _, sink := range c.Reminder.Sinks {
		switch strings.ToLower(strings.TrimSpace(sink)) {
		case SinkTelegram:
			if c.Telegram.BotToken == "" {
				return fmt.Errorf("telegram.bot_token is required when the telegram sink is enabled")
			}
			if c.Telegram.ChatID == "" {
				return fmt.Errorf("telegram.chat_id is required when the telegram sink is enabled")
			}
		case SinkICS:
			if c.ICS.Dir == "" {
				return fmt.Errorf("ics.dir is required when the ics sink is enabled")
			}
		case SinkLog:
		default:
			return fmt.Errorf("reminder.sinks: unknown sink %q", sink)
		}
	}
	return nil
}

// ResolveBufferDays returns either the CLI override or config default.
func (c *Config) ResolveBufferDays(override int) int {
	if override >= 0 {
		return override
	}
	return c.Prediction.BufferDays
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
