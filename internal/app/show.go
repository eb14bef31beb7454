package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gilvegliach/CallReminder/internal/orders"
)

// Show prints recently persisted reminders.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show reminders")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentReminders(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no reminders found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Created (UTC)\tCustomer\tCall on\tUnits/day\tAvg gap\tSinks\tStatus\tError")

	for _, rec := range records {
		errMsg := ""
		if rec.Error != nil {
			errMsg = sanitizeInline(*rec.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.UTC().Format(time.RFC3339),
			sanitizeInline(rec.Customer),
			rec.ReminderDate.Format(orders.DateLayout),
			rec.AverageDailyConsumption.StringFixed(3),
			rec.AverageDaysBetweenOrders.StringFixed(1),
			strings.Join(rec.Sinks, ","),
			rec.Status,
			errMsg,
		)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
