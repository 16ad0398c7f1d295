package transform

import (
	"errors"
	"fmt"
)

// ErrMalformedInput means the payload violates the minimum shape contract and
// nothing from it may be loaded.
var ErrMalformedInput = errors.New("malformed input")

// CoercionWarning records a single field that could not be parsed. The row it
// belongs to is kept (with a null value) or dropped, depending on the field.
type CoercionWarning struct {
	Country string
	Date    string
	Field   string
	Value   any
	Reason  string
}

func (w CoercionWarning) Error() string {
	return fmt.Sprintf("cannot coerce %s=%v for %q on %q: %s", w.Field, w.Value, w.Country, w.Date, w.Reason)
}
