package store

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidCoupon     = errors.New("invalid coupon")
	ErrBusinessRule      = errors.New("business rule violation")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPersistence       = errors.New("persistence error")
)

// dbErr wraps a driver error so it matches both ErrPersistence and the
// original error.
func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
