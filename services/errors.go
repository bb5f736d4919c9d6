package services

import (
	"errors"
	"fmt"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/ehson1111/chocoberry-bot/repository"
	"github.com/google/uuid"
)

type PreconditionReason string

const (
	ReasonCartEmpty      PreconditionReason = "cart_empty"
	ReasonProfileMissing PreconditionReason = "profile_missing"
)

// PreconditionError aborts StartCheckout before anything is mutated.
type PreconditionError struct {
	Reason PreconditionReason
}

func (e *PreconditionError) Error() string {
	switch e.Reason {
	case ReasonCartEmpty:
		return "cart is empty"
	case ReasonProfileMissing:
		return "delivery profile is incomplete"
	}
	return string(e.Reason)
}

// InvalidChoiceError is returned for input outside the set accepted at the
// session's current step. The session is left unchanged.
type InvalidChoiceError struct {
	Step    models.CheckoutStep
	Input   string
	Allowed []string
}

func (e *InvalidChoiceError) Error() string {
	return fmt.Sprintf("invalid choice %q at step %s (allowed: %v)", e.Input, e.Step, e.Allowed)
}

// NotificationDeliveryError reports a staff notification that could not be
// delivered. The checkout it belongs to is committed regardless.
type NotificationDeliveryError struct {
	CheckoutID uuid.UUID
	Err        error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("staff notification for checkout %s failed: %v", e.CheckoutID, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}

var (
	ErrNoActiveSession = errors.New("no active checkout session")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidAmount   = errors.New("amount must not be negative")
	ErrInvalidUser     = errors.New("invalid user id")

	ErrProductNotFound = repository.ErrProductNotFound
	ErrLedgerUnderflow = repository.ErrLedgerUnderflow
)
