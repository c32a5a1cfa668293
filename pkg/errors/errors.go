// Package errors holds the sentinel errors shared across termsearch and maps
// them to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCorpus = errors.New("invalid corpus location")
	ErrDocumentRead  = errors.New("document read failed")
	ErrEmptyQuery    = errors.New("empty query")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")
)

// AppError attaches a client-facing message to a sentinel. Its status code
// is the sentinel's.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string { return e.Err.Error() + ": " + e.Message }

func (e *AppError) Unwrap() error { return e.Err }

// Newf wraps sentinel with a formatted message.
func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}

// DocumentReadError reports that a single document could not be opened or
// read. It never aborts indexing or scoring; the document is treated as
// absent for that pass.
type DocumentReadError struct {
	Location string
	Op       string
	Err      error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Location, e.Err)
}

func (e *DocumentReadError) Unwrap() []error {
	return []error{ErrDocumentRead, e.Err}
}

func NewDocumentReadError(location, op string, err error) *DocumentReadError {
	return &DocumentReadError{Location: location, Op: op, Err: err}
}

// HTTPStatusCode maps err onto a response code: bad client input is 400,
// an unusable corpus is 422, anything else is 500.
func HTTPStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCorpus):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
