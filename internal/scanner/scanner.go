package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/dossier/internal/core/model"
)

// Scanner is one pluggable source of raw intelligence for a query.
type Scanner interface {
	Name() string
	Category() string
	CanHandle(q model.Query) bool
	Scan(ctx context.Context, q model.Query) (Output, error)
}

// Toggler is implemented by scanners that can be switched off without
// being unregistered. Scanners without it are always enabled.
type Toggler interface {
	Enabled() bool
}

// Output is the raw scanner payload. Data is opaque to the orchestrator.
type Output struct {
	Data       map[string]interface{}
	Confidence float64
}

func isEnabled(s Scanner) bool {
	if t, ok := s.(Toggler); ok {
		return t.Enabled()
	}
	return true
}

// ValidationError marks bad input; retrying cannot help.
type ValidationError struct {
	Scanner string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scanner %s: invalid input: %v", e.Scanner, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TransientError marks a failure that may succeed on another attempt.
type TransientError struct {
	Scanner string
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("scanner %s: transient failure: %v", e.Scanner, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func Invalid(scanner string, err error) error {
	return &ValidationError{Scanner: scanner, Err: err}
}

func Transient(scanner string, err error) error {
	return &TransientError{Scanner: scanner, Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
