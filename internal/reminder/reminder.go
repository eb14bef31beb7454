package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Reminder is the event handed to a sink after a successful prediction.
type Reminder struct {
	RunID       string
	Customer    string
	Date        time.Time
	Summary     string
	Description string
}

// Sink creates reminder events in an external system.
type Sink interface {
	Name() string
	CreateReminder(ctx context.Context, r Reminder) error
}

// DeliveryError wraps a failure reported by a sink.
type DeliveryError struct {
	Sink     string
	Customer string
	Date     time.Time
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver reminder for %q on %s via %s: %v", e.Customer, e.Date.Format("2006-01-02"), e.Sink, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryError reports whether err is, or wraps, a *DeliveryError.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// DefaultSummaryTemplate is the event title; the first %s is replaced by the
// customer and everything else is kept literally.
const DefaultSummaryTemplate = "Call %s"

// New builds a reminder, rendering the summary from template.
func New(runID, customer string, date time.Time, template, description string) Reminder {
	if template == "" || !strings.Contains(template, "%s") {
		template = DefaultSummaryTemplate
	}
	return Reminder{
		RunID:       runID,
		Customer:    customer,
		Date:        date,
		Summary:     strings.Replace(template, "%s", customer, 1),
		Description: description,
	}
}

// Multi fans a reminder out to several sinks. The first failure stops delivery.
type Multi []Sink

// Name joins the names of the wrapped sinks.
func (m Multi) Name() string {
	names := make([]string, 0, len(m))
	for _, s := range m {
		names = append(names, s.Name())
	}
	return strings.Join(names, "+")
}

// CreateReminder delivers to each sink in order.
func (m Multi) CreateReminder(ctx context.Context, r Reminder) error {
	for _, s := range m {
		if err := s.CreateReminder(ctx, r); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

var _ Sink = Multi(nil)
