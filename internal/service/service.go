package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gilvegliach/CallReminder/internal/config"
	"github.com/gilvegliach/CallReminder/internal/metrics"
	"github.com/gilvegliach/CallReminder/internal/orders"
	"github.com/gilvegliach/CallReminder/internal/predictor"
	"github.com/gilvegliach/CallReminder/internal/reminder"
	"github.com/gilvegliach/CallReminder/internal/storage"
)

var (
	// ErrMissingCustomer is returned when a request carries no customer identifier.
	ErrMissingCustomer = errors.New("customer identifier is required")
	// ErrNoSink is returned when a reminder must be delivered but no sink is configured.
	ErrNoSink = errors.New("no reminder sink configured")
)

// Request is one customer's raw order log.
type Request struct {
	Customer string
	// Records holds the header followed by date,quantity records.
	Records []string
	DryRun  bool
	// SkipDelivered suppresses delivery when the same reminder date was
	// already delivered for this customer.
	SkipDelivered bool
}

// Outcome describes a completed prediction run.
type Outcome struct {
	RunID     uuid.UUID
	Customer  string
	History   orders.History
	Result    predictor.Result
	Reminder  reminder.Reminder
	Delivered bool
	Skipped   bool
}

// Service orchestrates parsing, prediction, persistence and delivery.
type Service struct {
	predictor   predictor.Predictor
	sink        reminder.Sink
	store       storage.ReminderStore
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	summary     string
	description string
	locker      storage.AdvisoryLocker
	lockKey     int64
	newRunID    func() uuid.UUID
}

// New constructs the reminder service. store and m may be nil.
func New(cfg *config.Config, bufferDays int, sink reminder.Sink, store storage.ReminderStore, m *metrics.Metrics, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := store.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		predictor:   predictor.New(bufferDays),
		sink:        sink,
		store:       store,
		metrics:     m,
		logger:      logger.With().Str("component", "service").Logger(),
		summary:     cfg.Reminder.SummaryTemplate,
		description: cfg.Reminder.Description,
		locker:      locker,
		lockKey:     cfg.Scheduler.AdvisoryLockKey,
		newRunID:    uuid.New,
	}
}

// Process parses the request, predicts the reminder date and delivers it.
func (s *Service) Process(ctx context.Context, req Request) (Outcome, error) {
	customer := req.Customer
	if strings.TrimSpace(customer) == "" {
		s.metrics.RecordPrediction(metrics.OutcomeError)
		return Outcome{}, ErrMissingCustomer
	}

	history, err := orders.Parse(req.Records)
	if err != nil {
		s.metrics.RecordPrediction(metrics.OutcomeParseError)
		return Outcome{}, fmt.Errorf("parse orders for %q: %w", customer, err)
	}

	result, err := s.predictor.Predict(history)
	if err != nil {
		s.metrics.RecordPrediction(metrics.OutcomeDegenerate)
		return Outcome{}, fmt.Errorf("predict for %q: %w", customer, err)
	}
	s.metrics.RecordPrediction(metrics.OutcomeOK)

	runID := s.newRunID()
	out := Outcome{
		RunID:    runID,
		Customer: customer,
		History:  history,
		Result:   result,
		Reminder: reminder.New(runID.String(), customer, result.ReminderDate, s.summary, s.description),
	}

	s.logger.Info().
		Str("run_id", runID.String()).
		Str("customer", customer).
		Int("orders", len(history)).
		Str("reminder_date", result.ReminderDate.Format(orders.DateLayout)).
		Float64("avg_daily_consumption", result.AverageDailyConsumption).
		Float64("avg_days_between_orders", result.AverageDaysBetweenOrders).
		Msg("reminder predicted")

	if req.SkipDelivered && s.alreadyDelivered(ctx, customer, result.ReminderDate) {
		s.logger.Debug().Str("customer", customer).Msg("reminder already delivered; skipping")
		out.Skipped = true
		return out, nil
	}

	if !req.DryRun && s.sink == nil {
		return out, ErrNoSink
	}

	status := storage.StatusPending
	if req.DryRun {
		status = storage.StatusDryRun
	}
	s.persist(ctx, out, status)

	if req.DryRun {
		return out, nil
	}

	if err := s.sink.CreateReminder(ctx, out.Reminder); err != nil {
		s.metrics.RecordDelivery(s.sink.Name(), err)
		msg := err.Error()
		s.markStatus(ctx, runID, storage.StatusFailed, &msg)
		return out, &reminder.DeliveryError{
			Sink:     s.sink.Name(),
			Customer: customer,
			Date:     result.ReminderDate,
			Err:      err,
		}
	}

	s.metrics.RecordDelivery(s.sink.Name(), nil)
	s.markStatus(ctx, runID, storage.StatusDelivered, nil)
	out.Delivered = true
	return out, nil
}

func (s *Service) alreadyDelivered(ctx context.Context, customer string, date time.Time) bool {
	if s.store == nil {
		return false
	}
	rec, err := s.store.LatestDelivered(ctx, customer)
	if err != nil {
		s.logger.Error().Err(err).Str("customer", customer).Msg("failed to look up previous reminder")
		return false
	}
	return rec != nil && rec.ReminderDate.Format(orders.DateLayout) == date.Format(orders.DateLayout)
}

func (s *Service) persist(ctx context.Context, out Outcome, status string) {
	if s.store == nil {
		return
	}

	latest := out.History.Latest()
	rec := storage.ReminderRecord{
		RunID:                    out.RunID,
		Customer:                 out.Customer,
		ReminderDate:             out.Result.ReminderDate,
		LatestOrderDate:          latest.Date,
		LatestQuantity:           latest.Quantity,
		OrderCount:               len(out.History),
		AverageDailyConsumption:  decimal.NewFromFloat(out.Result.AverageDailyConsumption),
		AverageDaysBetweenOrders: decimal.NewFromFloat(out.Result.AverageDaysBetweenOrders),
		DaysOfSupply:             out.Result.DaysOfSupplyRemaining,
		BufferDays:               s.predictor.BufferDays,
		Status:                   status,
		CreatedAt:                time.Now().UTC(),
	}
	if s.sink != nil {
		rec.Sinks = strings.Split(s.sink.Name(), "+")
	}

	if err := s.store.UpsertReminder(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("run_id", out.RunID.String()).Msg("failed to persist reminder")
	}
}

func (s *Service) markStatus(ctx context.Context, runID uuid.UUID, status string, errMsg *string) {
	if s.store == nil {
		return
	}
	if err := s.store.MarkReminderStatus(ctx, runID, status, errMsg); err != nil {
		s.logger.Error().Err(err).Str("run_id", runID.String()).Msg("failed to update reminder status")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
