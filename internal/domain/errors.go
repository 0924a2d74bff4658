package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternalError     = errors.New("internal error")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrUserNotFound      = errors.New("user not found")

	ErrLoanNotFound    = errors.New("loan not found")
	ErrCycleNotFound   = errors.New("cycle not found")
	ErrPaymentNotFound = errors.New("payment not found")

	ErrLoanNotActive = errors.New("loan is not active")
)

// ErrNoActiveCycle signals a broken invariant: an active loan must always
// have exactly one active cycle. The operation that hits it must abort
// rather than repair state.
type ErrNoActiveCycle struct {
	LoanID string
}

func (e ErrNoActiveCycle) Error() string {
	return fmt.Sprintf("invariant violation: no active cycle for active loan %s", e.LoanID)
}

// Payment validation rules, used to identify which check rejected an amount.
const (
	RuleAmountPositive     = "amount_positive"
	RuleCompleteCoversOwed = "complete_covers_total_owed"
	RuleInterestExact      = "interest_only_exact"
	RulePartialWithinDebt  = "partial_within_principal"
)

// PaymentValidationError reports a payment amount that failed the rule for
// its declared type. It is recoverable: surfaced to the caller for
// correction, never persisted.
type PaymentValidationError struct {
	Rule   string
	Reason string
}

func (e PaymentValidationError) Error() string {
	return e.Reason
}
