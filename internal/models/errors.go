package models

import (
	"errors"
	"fmt"
)

// Error kinds returned by the engine. Match them with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrConflict         = errors.New("conflict")
	ErrNotFound         = errors.New("not found")
	ErrState            = errors.New("invalid state")
	ErrCapacity         = errors.New("tier capacity exceeded")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpired          = errors.New("token expired")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrAlreadyDone      = errors.New("already done")
)

// PercentageError is returned when an allocation would push the vault over 100%.
type PercentageError struct {
	Current   float64
	Attempted float64
}

func (e *PercentageError) Error() string {
	return fmt.Sprintf("total allocation would exceed 100%%: current=%g%%, attempted=%g%%", e.Current, e.Attempted)
}

func (e *PercentageError) Unwrap() error {
	return ErrValidation
}
