package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable marks connection and auth failures of the backing store.
	ErrStoreUnavailable = errors.New("graph store unavailable")
	// ErrDuplicateEntity is returned when one rebuild sees the same (kind, id) twice.
	ErrDuplicateEntity = errors.New("duplicate entity")
	// ErrMalformedTuple marks a tuple missing a required field.
	ErrMalformedTuple = errors.New("malformed tuple")
)

// RebuildError aborts a rebuild. Applied counts the tuples merged before the failure.
type RebuildError struct {
	Applied int
	Index   int
	Err     error
}

func (e *RebuildError) Error() string {
	if e == nil {
		return "rebuild failed"
	}
	return fmt.Sprintf("rebuild aborted at tuple %d (%d applied): %v", e.Index, e.Applied, e.Err)
}

func (e *RebuildError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Unavailable wraps err so that errors.Is(err, ErrStoreUnavailable) holds.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
