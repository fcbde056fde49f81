package markerbed

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by markerbed operations.
var (
	// ErrConfirmationRequired is returned by Clear when the caller did not confirm.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrEmptyBatch is returned when a batch or replace call carries no records.
	ErrEmptyBatch = errors.New("no records supplied")

	// ErrMalformedRow is returned when a dataset row cannot be decoded.
	ErrMalformedRow = errors.New("malformed dataset row")

	// ErrMalformedRequest marks a request whose body could not be decoded.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrInvalidConfig is returned when a store option is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError describes the first field of a candidate that failed
// validation. A required field with no matching alias in the payload surfaces
// here as an empty field.
type ValidationError struct {
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RecordError is a validation failure at a position in a batch.
type RecordError struct {
	Index int    `json:"index"`
	Field Field  `json:"field"`
	Error string `json:"error"`
}

// BatchError rejects a whole batch or replace call. Nothing is written when it
// is returned.
type BatchError struct {
	Errors     []RecordError `json:"errors"`
	ValidCount int           `json:"validCount"`
	TotalCount int           `json:"totalCount"`
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, re := range e.Errors {
		parts = append(parts, fmt.Sprintf("record %d: %s: %s", re.Index, re.Field, re.Error))
	}
	return fmt.Sprintf("%d of %d records invalid: %s",
		len(e.Errors), e.TotalCount, strings.Join(parts, "; "))
}

// RowError points at a dataset line that could not be decoded.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrMalformedRow }
