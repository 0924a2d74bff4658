package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	CycleStatusActive    = "active"
	CycleStatusCompleted = "completed"
)

var (
	ErrCycleNumberInvalid = errors.New("cycle number must be at least 1")
	ErrCycleLoanIDMissing = errors.New("cycle loan ID is required")
)

// Cycle is one billing period of a loan, bounded by a start date and either
// an end date (closed) or none (active).
type Cycle struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID int32      `json:"workspaceId"`
	LoanID      uuid.UUID  `json:"loanId"`
	CycleNumber int32      `json:"cycleNumber"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (c *Cycle) Validate() error {
	if c.LoanID == uuid.Nil {
		return ErrCycleLoanIDMissing
	}
	if c.CycleNumber < 1 {
		return ErrCycleNumberInvalid
	}
	return nil
}

// CycleHistory summarizes all cycles of a loan.
type CycleHistory struct {
	TotalCycles     int      `json:"totalCycles"`
	CompletedCycles int      `json:"completedCycles"`
	CurrentCycle    *Cycle   `json:"currentCycle,omitempty"`
	Cycles          []*Cycle `json:"cycles"`
}

type CycleRepository interface {
	Create(cycle *Cycle) (*Cycle, error)
	CreateTx(tx interface{}, cycle *Cycle) (*Cycle, error)
	GetByID(id uuid.UUID) (*Cycle, error)
	GetByLoanID(loanID uuid.UUID) ([]*Cycle, error)
	// GetActiveByLoanID returns ErrCycleNotFound when no cycle is active.
	GetActiveByLoanID(loanID uuid.UUID) (*Cycle, error)
	GetAllByWorkspace(workspaceID int32) ([]*Cycle, error)
	CloseTx(tx interface{}, id uuid.UUID, endDate time.Time) error
	Upsert(cycle *Cycle) error
	DeleteByLoanIDTx(tx interface{}, loanID uuid.UUID) error
}
