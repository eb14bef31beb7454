package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/gilvegliach/CallReminder/internal/orders"
	"github.com/gilvegliach/CallReminder/internal/reminder"
	"github.com/gilvegliach/CallReminder/internal/service"
	"github.com/gilvegliach/CallReminder/internal/storage"
)

// Predict reads one customer's order log, prints the projection and delivers
// the reminder.
func (a *App) Predict(ctx context.Context, opts PredictOptions) error {
	req, err := a.readRequest(opts.InputPath)
	if err != nil {
		return err
	}
	if opts.Customer != "" {
		req.Customer = opts.Customer
	}
	req.DryRun = opts.DryRun

	sink, err := a.newSink(opts.Sinks)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var reminderStore storage.ReminderStore
	if store != nil {
		reminderStore = store
	}

	svc := service.New(a.Config, a.Config.ResolveBufferDays(opts.BufferDays), sink, reminderStore, nil, a.Logger)
	out, err := svc.Process(ctx, req)
	if err != nil && !reminder.IsDeliveryError(err) {
		return err
	}

	a.printOutcome(out)
	if err != nil {
		return err
	}

	switch {
	case opts.DryRun:
		fmt.Fprintln(a.Out, "Dry run: no reminder created")
	case out.Delivered:
		fmt.Fprintf(a.Out, "Reminder created (%s)\n", sink.Name())
	}
	return nil
}

func (a *App) printOutcome(out service.Outcome) {
	res := out.Result
	fmt.Fprintf(a.Out, "Customer: %s\n", out.Customer)
	fmt.Fprintf(a.Out, "Call on: %s\n", res.ReminderDate.Format(orders.DateLayout))
	fmt.Fprintf(a.Out, "Average units per day: %s\n", formatFloat(res.AverageDailyConsumption, 3))
	for _, gap := range res.PerIntervalDays {
		fmt.Fprintf(a.Out, "Days between orders: %s\n", formatFloat(gap, 0))
	}
	fmt.Fprintf(a.Out, "Average days between orders: %s\n", formatFloat(res.AverageDaysBetweenOrders, 3))
}

func (a *App) readRequest(path string) (service.Request, error) {
	var r io.Reader = a.In
	if path != "" && path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return service.Request{}, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		r = file
	}
	return service.ReadRequest(r)
}

func formatFloat(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
