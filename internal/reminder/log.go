package reminder

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink records reminders in the application log only.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink constructs a sink that logs each reminder.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "reminder_log").Logger()}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// CreateReminder implements Sink.
func (s *LogSink) CreateReminder(ctx context.Context, r Reminder) error {
	s.logger.Info().
		Str("run_id", r.RunID).
		Str("customer", r.Customer).
		Str("date", r.Date.Format("2006-01-02")).
		Str("summary", r.Summary).
		Msg("reminder created")
	return nil
}

var _ Sink = (*LogSink)(nil)
