package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS reminders (
        run_id                      UUID PRIMARY KEY,
        customer                    TEXT NOT NULL,
        reminder_date               DATE NOT NULL,
        latest_order_date           DATE NOT NULL,
        latest_quantity             INTEGER NOT NULL,
        order_count                 INTEGER NOT NULL,
        avg_daily_consumption       NUMERIC NOT NULL,
        avg_days_between_orders     NUMERIC NOT NULL,
        days_of_supply              INTEGER NOT NULL,
        buffer_days                 INTEGER NOT NULL,
        sinks                       TEXT[] NOT NULL DEFAULT '{}',
        status                      TEXT NOT NULL,
        error                       TEXT,
        created_at                  TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS reminders_customer_idx ON reminders (customer, reminder_date);`

	upsertReminderSQL = `INSERT INTO reminders (
        run_id,
        customer,
        reminder_date,
        latest_order_date,
        latest_quantity,
        order_count,
        avg_daily_consumption,
        avg_days_between_orders,
        days_of_supply,
        buffer_days,
        sinks,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
    )
    ON CONFLICT (run_id) DO UPDATE
    SET
        reminder_date           = EXCLUDED.reminder_date,
        avg_daily_consumption   = EXCLUDED.avg_daily_consumption,
        avg_days_between_orders = EXCLUDED.avg_days_between_orders,
        days_of_supply          = EXCLUDED.days_of_supply,
        sinks                   = EXCLUDED.sinks,
        status                  = EXCLUDED.status,
        error                   = EXCLUDED.error;`

	selectReminderColumns = `SELECT
        run_id::text,
        customer,
        reminder_date,
        latest_order_date,
        latest_quantity,
        order_count,
        avg_daily_consumption,
        avg_days_between_orders,
        days_of_supply,
        buffer_days,
        sinks,
        status,
        error,
        created_at
    FROM reminders`

	listRecentRemindersSQL = selectReminderColumns + `
    ORDER BY created_at DESC
    LIMIT $1;`

	latestForCustomerSQL = selectReminderColumns + `
    WHERE customer = $1
      AND status = 'delivered'
    ORDER BY created_at DESC
    LIMIT 1;`

	markReminderStatusSQL = `UPDATE reminders
    SET status = $2, error = $3
    WHERE run_id = $1;`

	countRemindersSQL = `SELECT COUNT(*) FROM reminders;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ReminderStore defines operations for reminder persistence.
type ReminderStore interface {
	UpsertReminder(ctx context.Context, rec ReminderRecord) error
	MarkReminderStatus(ctx context.Context, runID uuid.UUID, status string, errMsg *string) error
	ListRecentReminders(ctx context.Context, limit int) ([]ReminderRecord, error)
	LatestDelivered(ctx context.Context, customer string) (*ReminderRecord, error)
	CountReminders(ctx context.Context) (int64, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store provides access to persisted reminders.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the reminders table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// unlock best effort
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertReminder persists or updates a reminder record.
func (s *Store) UpsertReminder(ctx context.Context, rec ReminderRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var errMsg interface{}
	if rec.Error != nil {
		errMsg = *rec.Error
	}

	sinks := rec.Sinks
	if sinks == nil {
		sinks = []string{}
	}

	_, execErr := pool.Exec(ctx, upsertReminderSQL,
		rec.RunID.String(),
		rec.Customer,
		rec.ReminderDate,
		rec.LatestOrderDate,
		rec.LatestQuantity,
		rec.OrderCount,
		rec.AverageDailyConsumption.String(),
		rec.AverageDaysBetweenOrders.String(),
		rec.DaysOfSupply,
		rec.BufferDays,
		sinks,
		rec.Status,
		errMsg,
	)
	if execErr != nil {
		return fmt.Errorf("upsert reminder: %w", execErr)
	}
	return nil
}

// MarkReminderStatus updates the delivery status of a run.
func (s *Store) MarkReminderStatus(ctx context.Context, runID uuid.UUID, status string, errMsg *string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var msg interface{}
	if errMsg != nil {
		msg = *errMsg
	}

	cmdTag, execErr := pool.Exec(ctx, markReminderStatusSQL, runID.String(), status, msg)
	if execErr != nil {
		return fmt.Errorf("mark reminder status: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListRecentReminders lists the most recent reminders, newest first.
func (s *Store) ListRecentReminders(ctx context.Context, limit int) ([]ReminderRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRemindersSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent reminders: %w", queryErr)
	}
	defer rows.Close()

	records := make([]ReminderRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanReminder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// LatestDelivered returns the newest delivered reminder for customer, or nil.
func (s *Store) LatestDelivered(ctx context.Context, customer string) (*ReminderRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, latestForCustomerSQL, customer)
	if queryErr != nil {
		return nil, fmt.Errorf("latest reminder: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, scanErr := scanReminder(rows)
	if scanErr != nil {
		return nil, scanErr
	}
	return &rec, nil
}

// CountReminders counts stored reminders.
func (s *Store) CountReminders(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countRemindersSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count reminders: %w", scanErr)
	}
	return count, nil
}

func scanReminder(rows pgx.Rows) (ReminderRecord, error) {
	var (
		runID        string
		rec          ReminderRecord
		avgDailyStr  string
		avgIntervals string
		errMsg       sql.NullString
	)

	if err := rows.Scan(
		&runID,
		&rec.Customer,
		&rec.ReminderDate,
		&rec.LatestOrderDate,
		&rec.LatestQuantity,
		&rec.OrderCount,
		&avgDailyStr,
		&avgIntervals,
		&rec.DaysOfSupply,
		&rec.BufferDays,
		&rec.Sinks,
		&rec.Status,
		&errMsg,
		&rec.CreatedAt,
	); err != nil {
		return ReminderRecord{}, err
	}

	id, err := uuid.Parse(runID)
	if err != nil {
		return ReminderRecord{}, fmt.Errorf("parse run id: %w", err)
	}
	rec.RunID = id

	rec.AverageDailyConsumption, err = decimal.NewFromString(avgDailyStr)
	if err != nil {
		return ReminderRecord{}, fmt.Errorf("parse avg daily consumption: %w", err)
	}
	rec.AverageDaysBetweenOrders, err = decimal.NewFromString(avgIntervals)
	if err != nil {
		return ReminderRecord{}, fmt.Errorf("parse avg days between orders: %w", err)
	}

	if errMsg.Valid {
		msg := errMsg.String
		rec.Error = &msg
	}
	return rec, nil
}
