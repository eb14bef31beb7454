package orders

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used by order records.
const DateLayout = "2006-01-02"

// Order is a single historical purchase.
type Order struct {
	Date     time.Time
	Quantity int
}

// String renders the order as a date,quantity record.
func (o Order) String() string {
	return o.Date.Format(DateLayout) + "," + strconv.Itoa(o.Quantity)
}

// History is a sequence of orders sorted by date, most recent first.
type History []Order

// Latest returns the most recent order.
func (h History) Latest() Order { return h[0] }

// Oldest returns the earliest order.
func (h History) Oldest() Order { return h[len(h)-1] }

// Records re-serializes the history as date,quantity records without a header.
func (h History) Records() []string {
	out := make([]string, 0, len(h))
	for _, o := range h {
		out = append(out, o.String())
	}
	return out
}

// Parse turns raw records into a date-descending history. Record 0 is the
// header and is always dropped. Blank records are skipped.
func Parse(records []string) (History, error) {
	if len(records) == 0 {
		return History{}, nil
	}

	history := make(History, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		raw := strings.TrimSpace(records[i])
		if raw == "" {
			continue
		}
		order, err := parseRecord(i, records[i], raw)
		if err != nil {
			return nil, err
		}
		history = append(history, order)
	}

	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.After(history[j].Date)
	})
	return history, nil
}

func parseRecord(index int, original, raw string) (Order, error) {
	fields := strings.Split(raw, ",")
	if len(fields) != 2 {
		return Order{}, &ParseError{
			Index:  index,
			Record: original,
			Field:  FieldRecord,
			Err:    fmt.Errorf("expected 2 fields, got %d", len(fields)),
		}
	}

	date, err := time.Parse(DateLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return Order{}, &ParseError{Index: index, Record: original, Field: FieldDate, Err: err}
	}

	parsed, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 32)
	if err != nil {
		return Order{}, &ParseError{Index: index, Record: original, Field: FieldQuantity, Err: err}
	}
	quantity := int(parsed)
	if quantity < 0 {
		return Order{}, &ParseError{
			Index:  index,
			Record: original,
			Field:  FieldQuantity,
			Err:    fmt.Errorf("quantity %d is negative", quantity),
		}
	}

	return Order{Date: date, Quantity: quantity}, nil
}

// ReadRecords reads newline separated records from r, trimming each line.
func ReadRecords(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	records := make([]string, 0, 16)
	for scanner.Scan() {
		records = append(records, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return records, nil
}
