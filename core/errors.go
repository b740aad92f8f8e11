package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned for bad input, either as a whole or per field.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown reports a state the process cannot recover from, like a database schema
// that does not match the binary. It deliberately has no Cause method so that
// errors.Cause stops on it even when it wraps a driver error.
type shutdown struct {
	message string
	err     error
}

// NewShutdownError returns an error that causes the API server to signal a graceful shutdown.
func NewShutdownError(err error, msg string) error {
	return &shutdown{message: msg, err: err}
}

func (s *shutdown) Error() string {
	if s.err == nil {
		return s.message
	}
	return s.message + ": " + s.err.Error()
}

func (s *shutdown) Unwrap() error { return s.err }

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
