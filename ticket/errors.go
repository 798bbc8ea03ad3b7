package ticket

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRequiredField = errors.New("ticket: missing required field")
	ErrMissingSignature     = errors.New("ticket: missing signature")
	ErrFieldTooLong         = errors.New("ticket: field too long")
	ErrMalformedInteger     = errors.New("ticket: malformed integer")
	ErrTicketTooLong        = errors.New("ticket: raw ticket too long")
)

// ParseError reports which field caused a parse failure. Match the reason
// with errors.Is against the package sentinels.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), e.Field)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(field string, err error) error {
	return &ParseError{Field: field, Err: err}
}
