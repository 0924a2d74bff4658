package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentTypeComplete     = "complete"
	PaymentTypeInterestOnly = "interest_only"
	PaymentTypePartial      = "partial"
)

var (
	ErrPaymentAmountInvalid = errors.New("payment amount must be positive")
	ErrPaymentTypeInvalid   = errors.New("payment type must be complete, interest_only or partial")
)

// Payment is an immutable record of money received against a loan. It is
// never updated or deleted except through cascading loan deletion.
type Payment struct {
	ID          uuid.UUID       `json:"id"`
	WorkspaceID int32           `json:"workspaceId"`
	LoanID      uuid.UUID       `json:"loanId"`
	CycleID     uuid.UUID       `json:"cycleId"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentType string          `json:"paymentType"`
	PaymentDate time.Time       `json:"paymentDate"`
	PhotoURL    *string         `json:"photoUrl,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (p *Payment) Validate() error {
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrPaymentAmountInvalid
	}
	switch p.PaymentType {
	case PaymentTypeComplete, PaymentTypeInterestOnly, PaymentTypePartial:
	default:
		return ErrPaymentTypeInvalid
	}
	return nil
}

// PaymentStats aggregates the payments recorded against one loan.
type PaymentStats struct {
	TotalPayments    int             `json:"totalPayments"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	InterestPayments int             `json:"interestPayments"`
	InterestAmount   decimal.Decimal `json:"interestAmount"`
	PartialPayments  int             `json:"partialPayments"`
	PartialAmount    decimal.Decimal `json:"partialAmount"`
}

type PaymentRepository interface {
	CreateTx(tx interface{}, payment *Payment) (*Payment, error)
	GetByID(id uuid.UUID) (*Payment, error)
	GetByLoanID(loanID uuid.UUID) ([]*Payment, error)
	GetByCycleID(cycleID uuid.UUID) ([]*Payment, error)
	GetRecent(workspaceID int32, limit int) ([]*Payment, error)
	GetAllByWorkspace(workspaceID int32) ([]*Payment, error)
	SumAmountByType(workspaceID int32, paymentType string) (decimal.Decimal, error)
	Upsert(payment *Payment) error
	DeleteByLoanIDTx(tx interface{}, loanID uuid.UUID) error
}
