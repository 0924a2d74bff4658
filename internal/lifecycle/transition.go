package lifecycle

import (
	"time"

	"github.com/google/uuid"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// CycleClose marks the active cycle for closing at the given end date.
type CycleClose struct {
	CycleID uuid.UUID
	EndDate time.Time
}

// Effect is the full mutation set one payment produces. Computing it is pure;
// the caller persists every part in a single transaction or none at all.
type Effect struct {
	Payment    *domain.Payment
	Loan       *domain.Loan
	CloseCycle *CycleClose
	NewCycle   *domain.Cycle
	// LoanCompleted reports whether this payment ends the loan.
	LoanCompleted bool
}

// Apply runs the lifecycle state machine for one payment against an enriched
// loan view and its active cycle. It re-validates the amount (defense against
// stale client state), then computes the transition:
//
//	complete      -> loan completed, cycle closed
//	interest_only -> cycle closed, next cycle opened at the closed cycle's
//	                 due date (the anchor day never shifts, even for a late
//	                 renewal)
//	partial       -> principal reduced; completes the loan when it hits zero
//
// Elapsed time alone never transitions a loan: overdue is derived, not a
// state.
func Apply(view *domain.LoanView, cycle *domain.Cycle, intent Intent, now time.Time) (*Effect, error) {
	if !view.IsActive() {
		return nil, domain.ErrLoanNotActive
	}
	if cycle == nil || cycle.Status != domain.CycleStatusActive || cycle.LoanID != view.ID {
		return nil, domain.ErrNoActiveCycle{LoanID: view.ID.String()}
	}

	if res := Validate(intent, view.Principal, view.CurrentInterest); !res.Valid {
		return nil, domain.PaymentValidationError{Rule: res.Rule, Reason: res.Reason}
	}

	loan := view.Loan
	loan.UpdatedAt = now

	effect := &Effect{
		Payment: &domain.Payment{
			ID:          uuid.New(),
			WorkspaceID: view.WorkspaceID,
			LoanID:      view.ID,
			CycleID:     cycle.ID,
			Amount:      intent.amount(),
			PaymentType: intent.PaymentType(),
			PaymentDate: now,
			CreatedAt:   now,
		},
		Loan: &loan,
	}

	switch intent.(type) {
	case Complete:
		loan.Status = domain.LoanStatusCompleted
		effect.CloseCycle = &CycleClose{CycleID: cycle.ID, EndDate: now}
		effect.LoanCompleted = true

	case InterestOnly:
		// The next cycle starts at the closed cycle's due date, not at the
		// payment date: a renewal on the 18th of a loan anchored on the 13th
		// keeps the 13th.
		loan.CurrentCycle++
		loan.CycleStartDate = view.DueDate
		effect.CloseCycle = &CycleClose{CycleID: cycle.ID, EndDate: now}
		effect.NewCycle = &domain.Cycle{
			ID:          uuid.New(),
			WorkspaceID: view.WorkspaceID,
			LoanID:      view.ID,
			CycleNumber: loan.CurrentCycle,
			StartDate:   view.DueDate,
			Status:      domain.CycleStatusActive,
			CreatedAt:   now,
		}

	case Partial:
		loan.Principal = loan.Principal.Sub(intent.amount())
		if loan.Principal.LessThanOrEqual(decimal.Zero) {
			loan.Status = domain.LoanStatusCompleted
			effect.CloseCycle = &CycleClose{CycleID: cycle.ID, EndDate: now}
			effect.LoanCompleted = true
		}

	default:
		return nil, domain.ErrPaymentTypeInvalid
	}

	return effect, nil
}
