package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	// LoanStatusOverdue exists in the status domain for API compatibility but
	// is never persisted: overdue is always derived from the current date.
	LoanStatusOverdue = "overdue"
)

var (
	ErrClientNameEmpty    = errors.New("client name is required")
	ErrClientNameTooLong  = errors.New("client name must be 200 characters or less")
	ErrPrincipalInvalid   = errors.New("principal must be positive")
	ErrLoanStatusInvalid  = errors.New("loan status must be active or completed")
	ErrCurrentCycleInvalid = errors.New("current cycle must be at least 1")
)

// Loan is a borrower's outstanding debt. Principal is the capital still owed
// for the current cycle; interest is never stored, only derived.
type Loan struct {
	ID             uuid.UUID       `json:"id"`
	WorkspaceID    int32           `json:"workspaceId"`
	ClientName     string          `json:"clientName"`
	Principal      decimal.Decimal `json:"principal"`
	PhotoURL       *string         `json:"photoUrl,omitempty"`
	Status         string          `json:"status"`
	CurrentCycle   int32           `json:"currentCycle"`
	CycleStartDate time.Time       `json:"cycleStartDate"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (l *Loan) Validate() error {
	if l.ClientName == "" {
		return ErrClientNameEmpty
	}
	if len(l.ClientName) > 200 {
		return ErrClientNameTooLong
	}
	if l.Principal.LessThanOrEqual(decimal.Zero) {
		return ErrPrincipalInvalid
	}
	if l.Status != LoanStatusActive && l.Status != LoanStatusCompleted {
		return ErrLoanStatusInvalid
	}
	if l.CurrentCycle < 1 {
		return ErrCurrentCycleInvalid
	}
	return nil
}

// IsActive reports whether the loan still accrues interest.
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// LoanView is a Loan enriched with the derived fields computed against a
// caller-supplied "now". Never persisted; recomputed on every read.
type LoanView struct {
	Loan
	DaysElapsed         int             `json:"daysElapsed"`
	CurrentInterestRate decimal.Decimal `json:"currentInterestRate"`
	CurrentInterest     decimal.Decimal `json:"currentInterest"`
	TotalOwed           decimal.Decimal `json:"totalOwed"`
	DueDate             time.Time       `json:"dueDate"`
	IsOverdue           bool            `json:"isOverdue"`
	DaysUntilDue        int             `json:"daysUntilDue"`
}

// LoanStatusCounts holds per-status loan counts for a workspace. Overdue is
// counted from derived state, not from the persisted status column.
type LoanStatusCounts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
}

type LoanRepository interface {
	Create(loan *Loan) (*Loan, error)
	CreateTx(tx interface{}, loan *Loan) (*Loan, error) // Transactional create
	GetByID(workspaceID int32, id uuid.UUID) (*Loan, error)
	GetAllByWorkspace(workspaceID int32) ([]*Loan, error)
	GetByStatus(workspaceID int32, status string) ([]*Loan, error)
	SearchByClientName(workspaceID int32, term string) ([]*Loan, error)
	Update(loan *Loan) (*Loan, error)
	UpdateTx(tx interface{}, loan *Loan) (*Loan, error)
	// Upsert replaces the whole record, used by replica reconciliation.
	Upsert(loan *Loan) error
	DeleteTx(tx interface{}, workspaceID int32, id uuid.UUID) error
}
