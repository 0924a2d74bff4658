package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/interest"
	"github.com/rmarquez/prestia/prestia-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TxBeginner abstracts pgxpool.Pool transaction start so services can be
// tested against in-memory repositories.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// LoanService handles loan lifecycle business logic
type LoanService struct {
	db             TxBeginner
	loanRepo       domain.LoanRepository
	cycleRepo      domain.CycleRepository
	paymentRepo    domain.PaymentRepository
	policy         interest.Policy
	replica        domain.ReplicaStore
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewLoanService creates a new LoanService
func NewLoanService(db TxBeginner, loanRepo domain.LoanRepository, cycleRepo domain.CycleRepository, paymentRepo domain.PaymentRepository, policy interest.Policy) *LoanService {
	return &LoanService{
		db:          db,
		loanRepo:    loanRepo,
		cycleRepo:   cycleRepo,
		paymentRepo: paymentRepo,
		policy:      policy,
		now:         time.Now,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetReplica sets the replica store used to propagate loan deletions
func (s *LoanService) SetReplica(replica domain.ReplicaStore) {
	s.replica = replica
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *LoanService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(workspaceID, event)
	}
}

// CreateLoan creates a loan together with its first cycle. Both rows are
// written in one transaction: a loan without an active cycle must never
// exist.
func (s *LoanService) CreateLoan(workspaceID int32, clientName string, principal decimal.Decimal, photoURL *string, startDate *time.Time) (*domain.LoanView, error) {
	now := s.now()

	start := now
	if startDate != nil {
		start = *startDate
	}

	loan := &domain.Loan{
		ID:             uuid.New(),
		WorkspaceID:    workspaceID,
		ClientName:     clientName,
		Principal:      principal,
		PhotoURL:       photoURL,
		Status:         domain.LoanStatusActive,
		CurrentCycle:   1,
		CycleStartDate: start,
	}
	if err := loan.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created, err := s.loanRepo.CreateTx(tx, loan)
	if err != nil {
		return nil, err
	}

	_, err = s.cycleRepo.CreateTx(tx, &domain.Cycle{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		LoanID:      created.ID,
		CycleNumber: 1,
		StartDate:   start,
		Status:      domain.CycleStatusActive,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	view := s.policy.Enrich(created, now)
	s.publishEvent(workspaceID, websocket.LoanCreated(view))
	return view, nil
}

// GetLoan retrieves a loan with its derived fields
func (s *LoanService) GetLoan(workspaceID int32, id uuid.UUID) (*domain.LoanView, error) {
	loan, err := s.loanRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	return s.policy.Enrich(loan, s.now()), nil
}

// GetLoans retrieves all loans of a workspace with derived fields
func (s *LoanService) GetLoans(workspaceID int32) ([]*domain.LoanView, error) {
	loans, err := s.loanRepo.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	return s.enrichAll(loans), nil
}

// GetLoansByStatus retrieves loans filtered by status. "active" and
// "completed" filter on the persisted column; "overdue" is derived, so it
// selects the active loans whose due date has passed.
func (s *LoanService) GetLoansByStatus(workspaceID int32, status string) ([]*domain.LoanView, error) {
	if status == domain.LoanStatusOverdue {
		loans, err := s.loanRepo.GetByStatus(workspaceID, domain.LoanStatusActive)
		if err != nil {
			return nil, err
		}
		views := []*domain.LoanView{}
		for _, view := range s.enrichAll(loans) {
			if view.IsOverdue {
				views = append(views, view)
			}
		}
		return views, nil
	}

	if status != domain.LoanStatusActive && status != domain.LoanStatusCompleted {
		return nil, domain.ErrLoanStatusInvalid
	}
	loans, err := s.loanRepo.GetByStatus(workspaceID, status)
	if err != nil {
		return nil, err
	}
	return s.enrichAll(loans), nil
}

// SearchLoans retrieves loans whose client name matches the term
func (s *LoanService) SearchLoans(workspaceID int32, term string) ([]*domain.LoanView, error) {
	loans, err := s.loanRepo.SearchByClientName(workspaceID, term)
	if err != nil {
		return nil, err
	}
	return s.enrichAll(loans), nil
}

// UpdateLoan edits a loan's client name and/or principal. Only active loans
// can be edited; changing the principal rebases what the current cycle's
// interest accrues on.
func (s *LoanService) UpdateLoan(workspaceID int32, id uuid.UUID, clientName *string, principal *decimal.Decimal) (*domain.LoanView, error) {
	loan, err := s.loanRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if !loan.IsActive() {
		return nil, domain.ErrLoanNotActive
	}

	if clientName != nil {
		loan.ClientName = *clientName
	}
	if principal != nil {
		loan.Principal = *principal
	}
	if err := loan.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.loanRepo.Update(loan)
	if err != nil {
		return nil, err
	}

	view := s.policy.Enrich(updated, s.now())
	s.publishEvent(workspaceID, websocket.LoanUpdated(view))
	return view, nil
}

// UpdateLoanPhoto attaches or replaces the client photo URL
func (s *LoanService) UpdateLoanPhoto(workspaceID int32, id uuid.UUID, photoURL string) (*domain.LoanView, error) {
	loan, err := s.loanRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	loan.PhotoURL = &photoURL

	updated, err := s.loanRepo.Update(loan)
	if err != nil {
		return nil, err
	}

	view := s.policy.Enrich(updated, s.now())
	s.publishEvent(workspaceID, websocket.LoanUpdated(view))
	return view, nil
}

// DeleteLoan removes a loan and all its cycles and payments in one
// transaction, then propagates the deletion to the replica best-effort.
func (s *LoanService) DeleteLoan(workspaceID int32, id uuid.UUID) error {
	// 1. Verify the loan exists in this workspace
	if _, err := s.loanRepo.GetByID(workspaceID, id); err != nil {
		return err
	}

	// 2. Delete dependents first, then the loan
	ctx := context.Background()
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.paymentRepo.DeleteByLoanIDTx(tx, id); err != nil {
		return err
	}
	if err := s.cycleRepo.DeleteByLoanIDTx(tx, id); err != nil {
		return err
	}
	if err := s.loanRepo.DeleteTx(tx, workspaceID, id); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// 3. Propagate to the replica; a failure here never fails the local
	// delete, the record just lingers remotely until the next manual cleanup
	if s.replica != nil {
		if err := s.replica.DeleteLoan(workspaceID, id); err != nil {
			log.Warn().
				Err(err).
				Int32("workspace_id", workspaceID).
				Str("loan_id", id.String()).
				Msg("Failed to propagate loan deletion to replica")
		}
	}

	s.publishEvent(workspaceID, websocket.LoanDeleted(map[string]string{"id": id.String()}))
	return nil
}

// GetStatusCounts tallies loans per status. The overdue count comes from
// derived state and overlaps the active count.
func (s *LoanService) GetStatusCounts(workspaceID int32) (*domain.LoanStatusCounts, error) {
	loans, err := s.loanRepo.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}

	counts := &domain.LoanStatusCounts{}
	now := s.now()
	for _, loan := range loans {
		switch loan.Status {
		case domain.LoanStatusActive:
			counts.Active++
			if s.policy.Enrich(loan, now).IsOverdue {
				counts.Overdue++
			}
		case domain.LoanStatusCompleted:
			counts.Completed++
		}
	}
	return counts, nil
}

// GetCycleHistory retrieves the cycle history of a loan
func (s *LoanService) GetCycleHistory(workspaceID int32, loanID uuid.UUID) (*domain.CycleHistory, error) {
	if _, err := s.loanRepo.GetByID(workspaceID, loanID); err != nil {
		return nil, err
	}

	cycles, err := s.cycleRepo.GetByLoanID(loanID)
	if err != nil {
		return nil, err
	}

	history := &domain.CycleHistory{
		TotalCycles: len(cycles),
		Cycles:      cycles,
	}
	for _, cycle := range cycles {
		if cycle.Status == domain.CycleStatusCompleted {
			history.CompletedCycles++
		} else if cycle.Status == domain.CycleStatusActive {
			history.CurrentCycle = cycle
		}
	}
	return history, nil
}

func (s *LoanService) enrichAll(loans []*domain.Loan) []*domain.LoanView {
	now := s.now()
	views := make([]*domain.LoanView, len(loans))
	for i, loan := range loans {
		views[i] = s.policy.Enrich(loan, now)
	}
	return views
}
