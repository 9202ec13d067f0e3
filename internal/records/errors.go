package records

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is returned for lines that are neither comments nor "<name> <non-negative integer>".
	ErrMalformedRecord = errors.New(`malformed record, expected "<name> <non-negative integer>"`)
	// ErrValueRange is returned when a record value does not fit a 64-bit integer.
	ErrValueRange = errors.New("record value out of range")
)

// ParseError locates an invalid line within a records file.
type ParseError struct {
	Path string // Empty when parsing a bare reader.
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("%s:%d: %v: %q", e.Path, e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }
