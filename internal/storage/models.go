package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reminder statuses.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusDryRun    = "dry_run"
)

// ReminderRecord is the persisted outcome of one prediction run.
type ReminderRecord struct {
	RunID                    uuid.UUID
	Customer                 string
	ReminderDate             time.Time
	LatestOrderDate          time.Time
	LatestQuantity           int
	OrderCount               int
	AverageDailyConsumption  decimal.Decimal
	AverageDaysBetweenOrders decimal.Decimal
	DaysOfSupply             int
	BufferDays               int
	Sinks                    []string
	Status                   string
	Error                    *string
	CreatedAt                time.Time
}
