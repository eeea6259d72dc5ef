package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/ledger"
)

var (
	// ErrInvalidInput is wrapped by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoChanges means a profile update would not change anything.
	ErrNoChanges = errors.New("no changes")
	// ErrCooldown means the resend cooldown is still running.
	ErrCooldown = errors.New("cooldown active")
	// ErrBusy means another auth operation is in flight.
	ErrBusy = errors.New("operation in progress")
	// ErrNoPending is returned when there is no account awaiting verification.
	ErrNoPending = ledger.ErrNoPending
)

// ValidationError is a client-side shape check that failed before any
// network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// CooldownError reports how long until the next resend is allowed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, %s remaining", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }
