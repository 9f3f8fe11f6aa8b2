package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/mingle/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limited")
)

// Error codes written in error bodies.
const (
	codeUnauthenticated = "UNAUTHENTICATED"
	codeInvalidArgument = "INVALID_ARGUMENT"
	codeNotFound        = "NOT_FOUND"
	codeRateLimited     = "RATE_LIMITED"
	codeInternal        = "INTERNAL"
)

// kindError tags a cause with an API kind and the failing handler.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	}
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &kindError{op: op, kind: kind, err: err}
}

// NewKind returns an error of kind for op with no further cause.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// statusOf maps an error to its HTTP status and error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeInvalidArgument
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, codeRateLimited
	}

	switch service.KindOf(err) {
	case service.ErrUnauthenticated:
		return http.StatusUnauthorized, codeUnauthenticated
	case service.ErrInvalidArgument:
		return http.StatusBadRequest, codeInvalidArgument
	case service.ErrNotFound:
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
