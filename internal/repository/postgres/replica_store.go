package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
)

// ReplicaStore implements domain.ReplicaStore against a second PostgreSQL
// database holding the remote copy of every workspace. It reuses the same
// repositories as the primary, pointed at the replica pool; the schema on
// both sides is identical.
type ReplicaStore struct {
	pool     *pgxpool.Pool
	loans    *LoanRepository
	cycles   *CycleRepository
	payments *PaymentRepository
}

// NewReplicaStore creates a ReplicaStore on the given replica pool
func NewReplicaStore(pool *pgxpool.Pool) *ReplicaStore {
	return &ReplicaStore{
		pool:     pool,
		loans:    NewLoanRepository(pool),
		cycles:   NewCycleRepository(pool),
		payments: NewPaymentRepository(pool),
	}
}

// Snapshot pulls every record of a workspace from the replica
func (s *ReplicaStore) Snapshot(workspaceID int32) (*domain.WorkspaceSnapshot, error) {
	loans, err := s.loans.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	cycles, err := s.cycles.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	return &domain.WorkspaceSnapshot{
		Loans:    loans,
		Cycles:   cycles,
		Payments: payments,
	}, nil
}

// PushLoan writes a loan to the replica
func (s *ReplicaStore) PushLoan(loan *domain.Loan) error {
	return s.loans.Upsert(loan)
}

// PushCycle writes a cycle to the replica
func (s *ReplicaStore) PushCycle(cycle *domain.Cycle) error {
	return s.cycles.Upsert(cycle)
}

// PushPayment writes a payment to the replica
func (s *ReplicaStore) PushPayment(payment *domain.Payment) error {
	return s.payments.Upsert(payment)
}

// DeleteLoan removes a loan and its dependent records from the replica
func (s *ReplicaStore) DeleteLoan(workspaceID int32, id uuid.UUID) error {
	ctx := context.Background()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.payments.DeleteByLoanIDTx(tx, id); err != nil {
		return err
	}
	if err := s.cycles.DeleteByLoanIDTx(tx, id); err != nil {
		return err
	}
	if err := s.loans.DeleteTx(tx, workspaceID, id); err != nil && err != domain.ErrLoanNotFound {
		return err
	}

	return tx.Commit(ctx)
}
