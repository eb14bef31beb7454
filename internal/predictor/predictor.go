package predictor

import (
	"math"
	"time"

	"github.com/gilvegliach/CallReminder/internal/orders"
)

// DefaultBufferDays is the safety margin subtracted from the stock-out date.
const DefaultBufferDays = 2

// MaxSupplyDays bounds the projected days of supply; larger projections are
// rejected instead of producing a date centuries away.
const MaxSupplyDays = 100 * 366

// Result holds the projected reminder date and the statistics behind it.
type Result struct {
	ReminderDate             time.Time
	AverageDailyConsumption  float64
	AverageDaysBetweenOrders float64
	// PerIntervalDays lists the gap of each consecutive pair, most recent pair first.
	PerIntervalDays       []float64
	DaysOfSupplyRemaining int
	TotalSpanDays         int
	ConsumedQuantity      int
}

// Predictor estimates consumption from an order history.
type Predictor struct {
	BufferDays int
}

// New constructs a Predictor with the given buffer.
func New(bufferDays int) Predictor {
	return Predictor{BufferDays: bufferDays}
}

// Predict computes the reminder date for a date-descending history.
func (p Predictor) Predict(history orders.History) (Result, error) {
	n := len(history)
	if n == 0 {
		return Result{}, &DegenerateHistoryError{Reason: ReasonEmptyHistory, Orders: 0}
	}
	if n < 2 {
		return Result{}, &DegenerateHistoryError{Reason: ReasonTooFewOrders, Orders: n}
	}

	latest := history.Latest()
	oldest := history.Oldest()

	span := daysBetween(oldest.Date, latest.Date)
	if span == 0 {
		return Result{}, &DegenerateHistoryError{Reason: ReasonZeroSpan, Orders: n}
	}

	consumed := consumedQuantity(history)
	if consumed == 0 {
		return Result{}, &DegenerateHistoryError{Reason: ReasonNoConsumption, Orders: n, SpanDays: span}
	}

	rate := float64(consumed) / float64(span)
	days := math.Floor(float64(latest.Quantity) / rate)
	if days > MaxSupplyDays {
		return Result{}, &DegenerateHistoryError{Reason: ReasonUnboundedSupply, Orders: n, SpanDays: span}
	}
	supply := int(days)
	reminder := latest.Date.AddDate(0, 0, supply-p.BufferDays)

	intervals := make([]float64, 0, n-1)
	var sum float64
	for i := 0; i < n-1; i++ {
		gap := float64(daysBetween(history[i+1].Date, history[i].Date))
		intervals = append(intervals, gap)
		sum += gap
	}

	return Result{
		ReminderDate:             reminder,
		AverageDailyConsumption:  rate,
		AverageDaysBetweenOrders: sum / float64(n-1),
		PerIntervalDays:          intervals,
		DaysOfSupplyRemaining:    supply,
		TotalSpanDays:            span,
		ConsumedQuantity:         consumed,
	}, nil
}

// consumedQuantity sums every order except the most recent one: the latest
// delivery has not been drawn down yet.
func consumedQuantity(history orders.History) int {
	total := 0
	for _, o := range history[1:] {
		total += o.Quantity
	}
	return total
}

// daysBetween counts whole calendar days from earlier to later.
func daysBetween(earlier, later time.Time) int {
	e := time.Date(earlier.Year(), earlier.Month(), earlier.Day(), 0, 0, 0, 0, time.UTC)
	l := time.Date(later.Year(), later.Month(), later.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(l.Sub(e).Hours() / 24))
}
