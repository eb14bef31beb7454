package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gilvegliach/CallReminder/internal/config"
	"github.com/gilvegliach/CallReminder/internal/reminder"
	"github.com/gilvegliach/CallReminder/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
	In     io.Reader
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
		In:     os.Stdin,
	}
}

// newSink builds the configured sinks; names overrides reminder.sinks when set.
func (a *App) newSink(names []string) (reminder.Sink, error) {
	if len(names) == 0 {
		names = a.Config.Reminder.Sinks
	}

	sinks := make(reminder.Multi, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case config.SinkTelegram:
			cfg := a.Config.Telegram
			if cfg.BotToken == "" || cfg.ChatID == "" {
				return nil, fmt.Errorf("telegram sink requires telegram.bot_token and telegram.chat_id")
			}
			sinks = append(sinks, reminder.NewTelegramSink(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger))
		case config.SinkICS:
			sinks = append(sinks, reminder.NewICSSink(a.Config.ICS.Dir, a.Logger))
		case config.SinkLog:
			sinks = append(sinks, reminder.NewLogSink(a.Logger))
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}

	if len(sinks) == 0 {
		return reminder.NewLogSink(a.Logger), nil
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// PredictOptions configure a single prediction.
type PredictOptions struct {
	InputPath  string
	Customer   string
	BufferDays int
	DryRun     bool
	Sinks      []string
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting a customer's diagnostics.
type ExportOptions struct {
	InputPath  string
	CSVPath    string
	PNGPath    string
	MaxPoints  int
	BufferDays int
}
