package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Taxonomy. Wrap with fmt.Errorf("...: %w", ErrX) and map with From.
var (
	ErrValidation = errors.New("validation failed")
	ErrProvider   = errors.New("provider failed")
	ErrOwnership  = errors.New("access denied")
	ErrNotFound   = errors.New("not found")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Provider(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}

// From maps any error onto the HTTP taxonomy. Unknown errors become 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ErrValidation):
		return New(http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, ErrOwnership):
		return New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrProvider):
		return New(http.StatusBadGateway, "provider_error", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
