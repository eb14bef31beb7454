package predictor

import (
	"errors"
	"fmt"
)

// Reason distinguishes why a history cannot produce statistics.
type Reason string

const (
	ReasonEmptyHistory    Reason = "empty_history"
	ReasonTooFewOrders    Reason = "too_few_orders"
	ReasonZeroSpan        Reason = "zero_span"
	ReasonNoConsumption   Reason = "no_consumption"
	ReasonUnboundedSupply Reason = "unbounded_supply"
)

// DegenerateHistoryError is returned when rate or interval statistics are undefined.
type DegenerateHistoryError struct {
	Reason   Reason
	Orders   int
	SpanDays int
}

func (e *DegenerateHistoryError) Error() string {
	switch e.Reason {
	case ReasonEmptyHistory:
		return "degenerate history: no orders"
	case ReasonTooFewOrders:
		return fmt.Sprintf("degenerate history: %d order(s), at least 2 required", e.Orders)
	case ReasonZeroSpan:
		return fmt.Sprintf("degenerate history: all %d orders share one date", e.Orders)
	case ReasonNoConsumption:
		return fmt.Sprintf("degenerate history: nothing consumed over %d days", e.SpanDays)
	case ReasonUnboundedSupply:
		return fmt.Sprintf("degenerate history: supply exceeds %d days at the rate observed over %d days", MaxSupplyDays, e.SpanDays)
	default:
		return "degenerate history: " + string(e.Reason)
	}
}

// IsDegenerate reports whether err is a *DegenerateHistoryError.
func IsDegenerate(err error) bool {
	var de *DegenerateHistoryError
	return errors.As(err, &de)
}

// DegenerateReason extracts the reason from err, if any.
func DegenerateReason(err error) (Reason, bool) {
	var de *DegenerateHistoryError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}
