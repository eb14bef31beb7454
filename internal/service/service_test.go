package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilvegliach/CallReminder/internal/config"
	"github.com/gilvegliach/CallReminder/internal/metrics"
	"github.com/gilvegliach/CallReminder/internal/orders"
	"github.com/gilvegliach/CallReminder/internal/predictor"
	"github.com/gilvegliach/CallReminder/internal/reminder"
	"github.com/gilvegliach/CallReminder/internal/storage"
)

type fakeSink struct {
	err error
	got []reminder.Reminder
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) CreateReminder(ctx context.Context, r reminder.Reminder) error {
	f.got = append(f.got, r)
	return f.err
}

type memoryStore struct {
	mu       sync.Mutex
	records  map[uuid.UUID]storage.ReminderRecord
	locked   bool
	lockCall int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uuid.UUID]storage.ReminderRecord)}
}

func (m *memoryStore) UpsertReminder(ctx context.Context, rec storage.ReminderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.RunID] = rec
	return nil
}

func (m *memoryStore) MarkReminderStatus(ctx context.Context, runID uuid.UUID, status string, errMsg *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[runID]
	if !ok {
		return errors.New("not found")
	}
	rec.Status = status
	rec.Error = errMsg
	m.records[runID] = rec
	return nil
}

func (m *memoryStore) ListRecentReminders(ctx context.Context, limit int) ([]storage.ReminderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.ReminderRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memoryStore) LatestDelivered(ctx context.Context, customer string) (*storage.ReminderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *storage.ReminderRecord
	for _, rec := range m.records {
		rec := rec
		if rec.Customer != customer || rec.Status != storage.StatusDelivered {
			continue
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = &rec
		}
	}
	return latest, nil
}

func (m *memoryStore) CountReminders(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.records)), nil
}

func (m *memoryStore) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	m.lockCall++
	if m.locked {
		return nil, false, nil
	}
	return func() {}, true, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Reminder:  config.ReminderConfig{SummaryTemplate: "Chiamare %s", Description: "Altri dati..."},
		Scheduler: config.SchedulerConfig{AdvisoryLockKey: 7},
	}
}

func newTestService(sink reminder.Sink, store storage.ReminderStore) *Service {
	return New(testConfig(), predictor.DefaultBufferDays, sink, store, metrics.New(prometheus.NewRegistry()), zerolog.Nop())
}

func sampleRequest() Request {
	return Request{
		Customer: "Acme",
		Records:  []string{"date,quantity", "2023-01-01,100", "2023-01-11,80"},
	}
}

func TestProcessDeliversReminder(t *testing.T) {
	sink := &fakeSink{}
	store := newMemoryStore()
	svc := newTestService(sink, store)

	out, err := svc.Process(context.Background(), sampleRequest())
	require.NoError(t, err)

	want := time.Date(2023, 1, 17, 0, 0, 0, 0, time.UTC)
	assert.True(t, out.Delivered)
	assert.Equal(t, want, out.Result.ReminderDate)
	require.Len(t, sink.got, 1)
	assert.Equal(t, "Acme", sink.got[0].Customer)
	assert.Equal(t, want, sink.got[0].Date)
	assert.Equal(t, "Chiamare Acme", sink.got[0].Summary)
	assert.Equal(t, out.RunID.String(), sink.got[0].RunID)

	rec := store.records[out.RunID]
	assert.Equal(t, storage.StatusDelivered, rec.Status)
	assert.Equal(t, 2, rec.OrderCount)
	assert.Equal(t, "10", rec.AverageDailyConsumption.String())
	assert.Equal(t, []string{"fake"}, rec.Sinks)
}

func TestProcessPassesCustomerThrough(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(sink, nil)

	req := sampleRequest()
	req.Customer = "Rossi & Figli S.r.l. (Milano)"
	_, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Rossi & Figli S.r.l. (Milano)", sink.got[0].Customer)
}

func TestProcessDryRunSkipsSink(t *testing.T) {
	sink := &fakeSink{}
	store := newMemoryStore()
	svc := newTestService(sink, store)

	req := sampleRequest()
	req.DryRun = true
	out, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, out.Delivered)
	assert.Empty(t, sink.got)
	assert.Equal(t, storage.StatusDryRun, store.records[out.RunID].Status)
}

func TestProcessWrapsSinkFailure(t *testing.T) {
	cause := errors.New("calendar unavailable")
	sink := &fakeSink{err: cause}
	store := newMemoryStore()
	svc := newTestService(sink, store)

	out, err := svc.Process(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.True(t, reminder.IsDeliveryError(err))
	assert.ErrorIs(t, err, cause)

	var de *reminder.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "fake", de.Sink)
	assert.Equal(t, "Acme", de.Customer)

	assert.Len(t, sink.got, 1, "no retries")
	rec := store.records[out.RunID]
	assert.Equal(t, storage.StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Contains(t, *rec.Error, "calendar unavailable")
}

func TestProcessParseError(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(sink, nil)

	req := sampleRequest()
	req.Records = append(req.Records, "2023-02-30,1")
	_, err := svc.Process(context.Background(), req)
	require.Error(t, err)
	assert.True(t, orders.IsParseError(err))
	assert.Empty(t, sink.got)
}

func TestProcessDegenerateHistory(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestService(sink, nil)

	req := sampleRequest()
	req.Records = []string{"date,quantity", "2023-01-01,100"}
	_, err := svc.Process(context.Background(), req)

	reason, ok := predictor.DegenerateReason(err)
	require.True(t, ok)
	assert.Equal(t, predictor.ReasonTooFewOrders, reason)
	assert.Empty(t, sink.got)
}

func TestProcessRequiresCustomer(t *testing.T) {
	svc := newTestService(&fakeSink{}, nil)

	req := sampleRequest()
	req.Customer = "   "
	_, err := svc.Process(context.Background(), req)
	assert.ErrorIs(t, err, ErrMissingCustomer)
}

func TestProcessWithoutSink(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(nil, store)

	_, err := svc.Process(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrNoSink)
	assert.Empty(t, store.records, "no pending row without a sink")

	req := sampleRequest()
	req.DryRun = true
	out, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusDryRun, store.records[out.RunID].Status)
}

func TestProcessSkipsAlreadyDelivered(t *testing.T) {
	sink := &fakeSink{}
	store := newMemoryStore()
	svc := newTestService(sink, store)

	req := sampleRequest()
	req.SkipDelivered = true
	_, err := svc.Process(context.Background(), req)
	require.NoError(t, err)

	out, err := svc.Process(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Len(t, sink.got, 1)
}

func TestReadRequest(t *testing.T) {
	req, err := ReadRequest(strings.NewReader("Acme\ndate,quantity\n2023-01-01,100\n2023-01-11,80\n"))
	require.NoError(t, err)
	assert.Equal(t, "Acme", req.Customer)
	assert.Equal(t, []string{"date,quantity", "2023-01-01,100", "2023-01-11,80"}, req.Records)

	_, err = ReadRequest(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func writeCustomerFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	writeCustomerFile(t, dir, "a.csv", "Acme\ndate,quantity\n2023-01-01,100\n2023-01-11,80\n")
	writeCustomerFile(t, dir, "b.csv", "Bravo\ndate,quantity\n2023-01-01,100\n")
	writeCustomerFile(t, dir, "c.csv", "Charlie\ndate,quantity\n2023-03-01,30\n2023-03-31,30\n")
	writeCustomerFile(t, dir, "notes.txt", "ignored")

	sink := &fakeSink{}
	store := newMemoryStore()
	svc := newTestService(sink, store)

	res, err := svc.ScanDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Processed: 2, Failed: 1}, res)
	require.Len(t, sink.got, 2)
	assert.Equal(t, "Acme", sink.got[0].Customer)
	assert.Equal(t, "Charlie", sink.got[1].Customer)

	res, err = svc.ScanDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Skipped: 2, Failed: 1}, res)
}

func TestScanDirHonoursAdvisoryLock(t *testing.T) {
	dir := t.TempDir()
	writeCustomerFile(t, dir, "a.csv", "Acme\ndate,quantity\n2023-01-01,100\n2023-01-11,80\n")

	sink := &fakeSink{}
	store := newMemoryStore()
	store.locked = true
	svc := newTestService(sink, store)

	res, err := svc.ScanDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, res)
	assert.Equal(t, 1, store.lockCall)
	assert.Empty(t, sink.got)
}
