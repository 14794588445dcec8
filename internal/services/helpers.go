package services

import (
	"errors"
	"fmt"
	"time"

	intdb "seatledger/internal/db"
	"seatledger/internal/domain"
	"seatledger/internal/repositories"
)

// wrapErr passes domain errors through and turns everything else into a 500,
// except lock waits and deadlocks which are a concurrent modification clash.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case domain.IsValidation(err), domain.IsNotFound(err), domain.IsConflict(err),
		domain.IsInsufficientBalance(err), domain.IsUnauthorized(err), domain.IsInternal(err):
		return err
	case intdb.IsLockConflict(err):
		return domain.ConflictError{Resource: "booking", Msg: "concurrent modification, retry the request", Err: err}
	default:
		return domain.InternalError{Msg: "persistence failure", Err: err}
	}
}

// notFound maps repositories.ErrNotFound to a NotFoundError for resource.
func notFound(resource string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return domain.NotFoundError{Resource: resource, Err: err}
	}
	return err
}

func requirePositive(field string, v int64) error {
	if v <= 0 {
		return domain.ValidationError{Field: field, Msg: "must be a positive id"}
	}
	return nil
}

func nowFunc(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}

func forbidden(resource string) error {
	return domain.UnauthorizedError{Msg: fmt.Sprintf("%s does not belong to caller", resource)}
}
