package apierr

import (
	"errors"
	"fmt"
	"net/http"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
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

func BadRequest(err error) *Error {
	return New(http.StatusBadRequest, "bad_request", err)
}

// FromError maps graph errors to an HTTP status and code. An *Error passes through.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, types.ErrStoreUnavailable):
		return New(http.StatusServiceUnavailable, "store_unavailable", err)
	case errors.Is(err, types.ErrDuplicateEntity):
		return New(http.StatusUnprocessableEntity, "duplicate_entity", err)
	case errors.Is(err, types.ErrMalformedTuple):
		return New(http.StatusUnprocessableEntity, "malformed_tuple", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
