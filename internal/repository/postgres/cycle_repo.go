package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
)

const cycleColumns = `id, workspace_id, loan_id, cycle_number, start_date, end_date, status, created_at`

// CycleRepository implements domain.CycleRepository using PostgreSQL
type CycleRepository struct {
	pool *pgxpool.Pool
}

// NewCycleRepository creates a new CycleRepository
func NewCycleRepository(pool *pgxpool.Pool) *CycleRepository {
	return &CycleRepository{pool: pool}
}

// Create creates a new cycle
func (r *CycleRepository) Create(cycle *domain.Cycle) (*domain.Cycle, error) {
	return r.createCycle(context.Background(), r.pool, cycle)
}

// CreateTx creates a new cycle within an existing transaction
func (r *CycleRepository) CreateTx(tx interface{}, cycle *domain.Cycle) (*domain.Cycle, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return r.createCycle(context.Background(), q, cycle)
}

func (r *CycleRepository) createCycle(ctx context.Context, q querier, cycle *domain.Cycle) (*domain.Cycle, error) {
	if cycle.ID == uuid.Nil {
		cycle.ID = uuid.New()
	}

	row := q.QueryRow(ctx, `
		INSERT INTO cycles (id, workspace_id, loan_id, cycle_number, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+cycleColumns,
		pgUUID(cycle.ID), cycle.WorkspaceID, pgUUID(cycle.LoanID), cycle.CycleNumber,
		pgDate(cycle.StartDate), pgDatePtr(cycle.EndDate), cycle.Status,
	)
	return scanCycle(row)
}

// GetByID retrieves a cycle by its ID
func (r *CycleRepository) GetByID(id uuid.UUID) (*domain.Cycle, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT `+cycleColumns+` FROM cycles WHERE id = $1`,
		pgUUID(id),
	)
	cycle, err := scanCycle(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCycleNotFound
		}
		return nil, err
	}
	return cycle, nil
}

// GetByLoanID retrieves all cycles of a loan in cycle order
func (r *CycleRepository) GetByLoanID(loanID uuid.UUID) ([]*domain.Cycle, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+cycleColumns+` FROM cycles
		WHERE loan_id = $1
		ORDER BY cycle_number`,
		pgUUID(loanID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCycles(rows)
}

// GetActiveByLoanID retrieves the single active cycle of a loan. Returns
// domain.ErrCycleNotFound when none is active.
func (r *CycleRepository) GetActiveByLoanID(loanID uuid.UUID) (*domain.Cycle, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT `+cycleColumns+` FROM cycles
		WHERE loan_id = $1 AND status = $2`,
		pgUUID(loanID), domain.CycleStatusActive,
	)
	cycle, err := scanCycle(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCycleNotFound
		}
		return nil, err
	}
	return cycle, nil
}

// GetAllByWorkspace retrieves all cycles for a workspace
func (r *CycleRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Cycle, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+cycleColumns+` FROM cycles
		WHERE workspace_id = $1
		ORDER BY created_at`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCycles(rows)
}

// CloseTx marks a cycle completed with the given end date, within an
// existing transaction
func (r *CycleRepository) CloseTx(tx interface{}, id uuid.UUID, endDate time.Time) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(context.Background(), `
		UPDATE cycles SET status = $2, end_date = $3 WHERE id = $1`,
		pgUUID(id), domain.CycleStatusCompleted, pgDate(endDate),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCycleNotFound
	}
	return nil
}

// Upsert writes a cycle record as-is, replacing any existing row
func (r *CycleRepository) Upsert(cycle *domain.Cycle) error {
	_, err := r.pool.Exec(context.Background(), `
		INSERT INTO cycles (id, workspace_id, loan_id, cycle_number, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			cycle_number = EXCLUDED.cycle_number,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			status = EXCLUDED.status`,
		pgUUID(cycle.ID), cycle.WorkspaceID, pgUUID(cycle.LoanID), cycle.CycleNumber,
		pgDate(cycle.StartDate), pgDatePtr(cycle.EndDate), cycle.Status, cycle.CreatedAt,
	)
	return err
}

// DeleteByLoanIDTx removes all cycles of a loan within an existing transaction
func (r *CycleRepository) DeleteByLoanIDTx(tx interface{}, loanID uuid.UUID) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}
	_, err = q.Exec(context.Background(), `
		DELETE FROM cycles WHERE loan_id = $1`,
		pgUUID(loanID),
	)
	return err
}

func scanCycle(row pgx.Row) (*domain.Cycle, error) {
	var (
		id        pgtype.UUID
		loanID    pgtype.UUID
		startDate pgtype.Date
		endDate   pgtype.Date
		createdAt pgtype.Timestamptz
		cycle     domain.Cycle
	)
	err := row.Scan(&id, &cycle.WorkspaceID, &loanID, &cycle.CycleNumber,
		&startDate, &endDate, &cycle.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	cycle.ID = uuidFromPg(id)
	cycle.LoanID = uuidFromPg(loanID)
	cycle.StartDate = startDate.Time
	cycle.EndDate = datePtr(endDate)
	cycle.CreatedAt = createdAt.Time
	return &cycle, nil
}

func scanCycles(rows pgx.Rows) ([]*domain.Cycle, error) {
	cycles := []*domain.Cycle{}
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}
