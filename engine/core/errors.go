package core

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the single rejection category of every operation.
var ErrInvalidInput = errors.New("invalid input")

// Reason classifies why a value was rejected.
type Reason string

const (
	ReasonWrongType    Reason = "wrong_type"
	ReasonOutOfRange   Reason = "out_of_range"
	ReasonEmpty        Reason = "empty"
	ReasonMissing      Reason = "missing"
	ReasonUnknownValue Reason = "unknown_value"
)

// InvalidInputError describes a rejected field. It matches ErrInvalidInput
// under errors.Is.
type InvalidInputError struct {
	Field  string
	Reason Reason
	Detail string
}

func (e *InvalidInputError) Error() string {
	switch {
	case e.Field == "" && e.Detail == "":
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	case e.Field == "":
		return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Reason, e.Detail)
	case e.Detail == "":
		return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Reason)
	default:
		return fmt.Sprintf("%s: %s: %s: %s", ErrInvalidInput, e.Field, e.Reason, e.Detail)
	}
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid builds an *InvalidInputError.
func Invalid(field string, reason Reason, detail string) error {
	return &InvalidInputError{Field: field, Reason: reason, Detail: detail}
}

// InField prefixes the field path of an *InvalidInputError. Other errors are
// returned unchanged.
func InField(field string, err error) error {
	var inv *InvalidInputError
	if field == "" || !errors.As(err, &inv) {
		return err
	}
	path := field
	if inv.Field != "" {
		path = field + "." + inv.Field
	}
	return &InvalidInputError{Field: path, Reason: inv.Reason, Detail: inv.Detail}
}

// ReasonOf extracts the rejection reason of err, or "" when err is not an
// input rejection.
func ReasonOf(err error) Reason {
	var inv *InvalidInputError
	if errors.As(err, &inv) {
		return inv.Reason
	}
	return ""
}
