package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/interest"
	"github.com/rmarquez/prestia/prestia-backend/internal/lifecycle"
	"github.com/rmarquez/prestia/prestia-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// PaymentService handles payment recording and queries
type PaymentService struct {
	db             TxBeginner
	loanRepo       domain.LoanRepository
	cycleRepo      domain.CycleRepository
	paymentRepo    domain.PaymentRepository
	policy         interest.Policy
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(db TxBeginner, loanRepo domain.LoanRepository, cycleRepo domain.CycleRepository, paymentRepo domain.PaymentRepository, policy interest.Policy) *PaymentService {
	return &PaymentService{
		db:          db,
		loanRepo:    loanRepo,
		cycleRepo:   cycleRepo,
		paymentRepo: paymentRepo,
		policy:      policy,
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *PaymentService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, event)
	}
}

// PaymentResult is what recording one payment produced
type PaymentResult struct {
	Payment       *domain.Payment  `json:"payment"`
	Loan          *domain.LoanView `json:"loan"`
	NewCycle      *domain.Cycle    `json:"newCycle,omitempty"`
	LoanCompleted bool             `json:"loanCompleted"`
}

// RecordPayment validates and records a payment, applying its lifecycle
// transition atomically: the payment row, the loan update and any cycle
// close or renewal all commit together or not at all.
func (s *PaymentService) RecordPayment(workspaceID int32, loanID uuid.UUID, paymentType string, amount decimal.Decimal, photoURL, notes *string) (*PaymentResult, error) {
	now := s.now()

	// 1. Load the loan and its active cycle
	loan, err := s.loanRepo.GetByID(workspaceID, loanID)
	if err != nil {
		return nil, err
	}

	cycle, err := s.cycleRepo.GetActiveByLoanID(loanID)
	if err != nil {
		if err == domain.ErrCycleNotFound && loan.IsActive() {
			return nil, domain.ErrNoActiveCycle{LoanID: loanID.String()}
		}
		if err == domain.ErrCycleNotFound {
			return nil, domain.ErrLoanNotActive
		}
		return nil, err
	}

	// 2. Compute the derived view and the transition
	view := s.policy.Enrich(loan, now)

	intent, err := lifecycle.IntentFor(paymentType, amount)
	if err != nil {
		return nil, err
	}

	effect, err := lifecycle.Apply(view, cycle, intent, now)
	if err != nil {
		return nil, err
	}

	effect.Payment.PhotoURL = photoURL
	effect.Payment.Notes = notes

	// 3. Persist every part of the effect in one transaction
	ctx := context.Background()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	payment, err := s.paymentRepo.CreateTx(tx, effect.Payment)
	if err != nil {
		return nil, err
	}

	if effect.CloseCycle != nil {
		if err := s.cycleRepo.CloseTx(tx, effect.CloseCycle.CycleID, effect.CloseCycle.EndDate); err != nil {
			return nil, err
		}
	}

	var newCycle *domain.Cycle
	if effect.NewCycle != nil {
		newCycle, err = s.cycleRepo.CreateTx(tx, effect.NewCycle)
		if err != nil {
			return nil, err
		}
	}

	updatedLoan, err := s.loanRepo.UpdateTx(tx, effect.Loan)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	// 4. Publish events after the commit
	updatedView := s.policy.Enrich(updatedLoan, now)
	s.publishEvent(workspaceID, websocket.PaymentRecorded(payment))
	if effect.LoanCompleted {
		s.publishEvent(workspaceID, websocket.LoanCompleted(updatedView))
	} else {
		s.publishEvent(workspaceID, websocket.LoanUpdated(updatedView))
	}
	if newCycle != nil {
		s.publishEvent(workspaceID, websocket.CycleRenewed(newCycle))
	}

	return &PaymentResult{
		Payment:       payment,
		Loan:          updatedView,
		NewCycle:      newCycle,
		LoanCompleted: effect.LoanCompleted,
	}, nil
}

// ValidatePayment checks a payment amount against the current state of the
// loan without recording anything, for pre-submission feedback.
func (s *PaymentService) ValidatePayment(workspaceID int32, loanID uuid.UUID, paymentType string, amount decimal.Decimal) (*lifecycle.Result, error) {
	loan, err := s.loanRepo.GetByID(workspaceID, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, domain.ErrLoanNotActive
	}

	intent, err := lifecycle.IntentFor(paymentType, amount)
	if err != nil {
		return nil, err
	}

	view := s.policy.Enrich(loan, s.now())
	result := lifecycle.Validate(intent, view.Principal, view.CurrentInterest)
	return &result, nil
}

// GetPaymentsByLoanID retrieves all payments for a loan, validating
// workspace ownership
func (s *PaymentService) GetPaymentsByLoanID(workspaceID int32, loanID uuid.UUID) ([]*domain.Payment, error) {
	if _, err := s.loanRepo.GetByID(workspaceID, loanID); err != nil {
		return nil, err
	}
	return s.paymentRepo.GetByLoanID(loanID)
}

// GetPaymentsByCycleID retrieves all payments recorded against a cycle
func (s *PaymentService) GetPaymentsByCycleID(workspaceID int32, cycleID uuid.UUID) ([]*domain.Payment, error) {
	cycle, err := s.cycleRepo.GetByID(cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.WorkspaceID != workspaceID {
		return nil, domain.ErrCycleNotFound
	}
	return s.paymentRepo.GetByCycleID(cycleID)
}

// GetRecentPayments retrieves the most recent payments across a workspace
func (s *PaymentService) GetRecentPayments(workspaceID int32, limit int) ([]*domain.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.paymentRepo.GetRecent(workspaceID, limit)
}

// GetPaymentStats aggregates the payments recorded against one loan
func (s *PaymentService) GetPaymentStats(workspaceID int32, loanID uuid.UUID) (*domain.PaymentStats, error) {
	payments, err := s.GetPaymentsByLoanID(workspaceID, loanID)
	if err != nil {
		return nil, err
	}

	stats := &domain.PaymentStats{
		TotalAmount:    decimal.Zero,
		InterestAmount: decimal.Zero,
		PartialAmount:  decimal.Zero,
	}
	for _, payment := range payments {
		stats.TotalPayments++
		stats.TotalAmount = stats.TotalAmount.Add(payment.Amount)
		switch payment.PaymentType {
		case domain.PaymentTypeInterestOnly:
			stats.InterestPayments++
			stats.InterestAmount = stats.InterestAmount.Add(payment.Amount)
		case domain.PaymentTypePartial:
			stats.PartialPayments++
			stats.PartialAmount = stats.PartialAmount.Add(payment.Amount)
		}
	}
	return stats, nil
}
