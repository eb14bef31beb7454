package orders

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestParseSortsDescendingAndDropsHeader(t *testing.T) {
	history, err := Parse([]string{
		"date,quantity",
		"2023-01-01,100",
		"  2023-01-21 , 50 ",
		"2023-01-11,80",
	})
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, date(t, "2023-01-21"), history[0].Date)
	assert.Equal(t, 50, history[0].Quantity)
	assert.Equal(t, date(t, "2023-01-11"), history[1].Date)
	assert.Equal(t, date(t, "2023-01-01"), history.Oldest().Date)
	assert.Equal(t, history[0], history.Latest())
}

func TestParseHeaderIsDiscardedRegardlessOfContent(t *testing.T) {
	history, err := Parse([]string{"2020-05-05,999", "2023-01-01,1"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Quantity)
}

func TestParseKeepsSameDateOrders(t *testing.T) {
	history, err := Parse([]string{"h", "2023-01-01,10", "2023-01-01,20"})
	require.NoError(t, err)
	require.Len(t, history, 2)

	total := history[0].Quantity + history[1].Quantity
	assert.Equal(t, 30, total)
}

func TestParseSkipsBlankRecords(t *testing.T) {
	history, err := Parse([]string{"h", "", "2023-01-01,10", "   "})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestParseEmptyInput(t *testing.T) {
	history, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = Parse([]string{"header only"})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		record string
		field  Field
	}{
		{name: "bad date", record: "2023-13-01,10", field: FieldDate},
		{name: "non iso date", record: "01/02/2023,10", field: FieldDate},
		{name: "bad quantity", record: "2023-01-01,ten", field: FieldQuantity},
		{name: "negative quantity", record: "2023-01-01,-4", field: FieldQuantity},
		{name: "quantity above int32", record: "2023-01-01,2147483648", field: FieldQuantity},
		{name: "huge quantity", record: "2100-01-01,9000000000000000000", field: FieldQuantity},
		{name: "missing field", record: "2023-01-01", field: FieldRecord},
		{name: "extra field", record: "2023-01-01,1,2", field: FieldRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := Parse([]string{"h", "2023-01-05,1", tt.record})
			require.Error(t, err)
			assert.Nil(t, history)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, 2, pe.Index)
			assert.Equal(t, tt.record, pe.Record)
			assert.Equal(t, tt.field, pe.Field)
			assert.True(t, IsParseError(err))
			assert.Contains(t, err.Error(), string(tt.field))
		})
	}
}

func TestParseQuantityRange(t *testing.T) {
	history, err := Parse([]string{"h", "2023-01-01,2147483647"})
	require.NoError(t, err)
	assert.Equal(t, 2147483647, history[0].Quantity)

	_, err = Parse([]string{"h", "2023-01-01,2147483648"})
	assert.ErrorIs(t, err, strconv.ErrRange)
}

func TestParseIsSortedNonAscending(t *testing.T) {
	records := []string{"header"}
	base := date(t, "2022-03-01")
	for i, offset := range []int{17, 3, 44, 3, 0, 91, 12} {
		d := base.AddDate(0, 0, offset)
		records = append(records, d.Format(DateLayout)+","+strconv.Itoa(i*7))
	}

	history, err := Parse(records)
	require.NoError(t, err)
	for i := 0; i+1 < len(history); i++ {
		assert.False(t, history[i].Date.Before(history[i+1].Date), "index %d", i)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	input := []string{"2023-02-01,3", "2023-01-01,100", "2023-01-11,80", "2023-01-11,0"}
	history, err := Parse(append([]string{"date,quantity"}, input...))
	require.NoError(t, err)

	got := history.Records()
	want := append([]string(nil), input...)
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestReadRecords(t *testing.T) {
	records, err := ReadRecords(strings.NewReader("Acme\r\ndate,quantity\n 2023-01-01,100 \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "date,quantity", "2023-01-01,100"}, records)
}
