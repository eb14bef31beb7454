package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gilvegliach/CallReminder/internal/metrics"
	"github.com/gilvegliach/CallReminder/internal/scheduler"
	"github.com/gilvegliach/CallReminder/internal/service"
	"github.com/gilvegliach/CallReminder/internal/storage"
	"github.com/gilvegliach/CallReminder/internal/version"
)

// Run executes the long-running scan service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; reminders will be re-sent on every scan")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sink, err := a.newSink(nil)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	stopMetrics := a.serveMetrics(registry)
	defer stopMetrics()

	var reminderStore storage.ReminderStore
	if store != nil {
		reminderStore = store
	}

	svc := service.New(a.Config, a.Config.Prediction.BufferDays, sink, reminderStore, m, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   true,
	}, a.Logger)

	dir := a.Config.Scheduler.InputDir
	a.Logger.Info().Str("version", version.Version).Str("dir", dir).Dur("interval", a.Config.Scheduler.Interval).Msg("starting reminder service")
	err = sched.Run(ctx, func(ctx context.Context, bucket time.Time) error {
		_, err := svc.ScanDir(ctx, dir)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("reminder service stopped")
	return nil
}

func (a *App) serveMetrics(registry *prometheus.Registry) func() {
	addr := a.Config.Metrics.ListenAddr
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
