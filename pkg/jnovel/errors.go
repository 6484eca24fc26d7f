package jnovel

import (
	"errors"
	"fmt"
)

// Sentinel errors for the catalog API. Callers branch with errors.Is:
// ErrBadCredentials aborts the run, ErrUnauthorized triggers a re-login,
// ErrInsufficientFunds hard-stops the acquisition pass, ErrAlreadyOwned is
// an idempotent no-op and ErrNotAvailable means retry on a later run.
var (
	ErrBadCredentials    = errors.New("login rejected")
	ErrUnauthorized      = errors.New("authorization token rejected")
	ErrAlreadyOwned      = errors.New("book already ordered")
	ErrInsufficientFunds = errors.New("not enough coins")
	ErrNotAvailable      = errors.New("content not available")
	ErrCoinAmount        = errors.New("coin amount out of purchasable range")
)

// StatusError is any other non-success API response.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}
