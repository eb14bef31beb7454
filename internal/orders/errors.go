package orders

import (
	"errors"
	"fmt"
)

// Field identifies the part of a record that failed to parse.
type Field string

const (
	FieldRecord   Field = "record"
	FieldDate     Field = "date"
	FieldQuantity Field = "quantity"
)

// ParseError reports a malformed input record.
type ParseError struct {
	Index  int
	Record string
	Field  Field
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse record %d %q: invalid %s: %v", e.Index, e.Record, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
