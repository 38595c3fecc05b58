package service

import (
	"errors"
	"fmt"
)

// Failure kinds returned by every operation in this package.  Each error
// wraps exactly one of them, so callers branch with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidBid   = errors.New("invalid bid")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrDatabase     = errors.New("database error")
)

// Kind names the failure kind of err, or "" when err wraps none.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidBid):
		return "invalid_bid"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrDatabase):
		return "database_error"
	}
	return ""
}

func dbError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDatabase, err)
}
