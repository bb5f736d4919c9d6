package repository

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrLedgerUnderflow means a debit asked for more than the balance held.
	ErrLedgerUnderflow = errors.New("cashback debit exceeds balance")
	ErrNegativeAmount  = errors.New("amount must not be negative")
)
