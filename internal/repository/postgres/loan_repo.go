package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
)

const loanColumns = `id, workspace_id, client_name, principal, photo_url, status, current_cycle, cycle_start_date, created_at, updated_at`

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

// Create creates a new loan
func (r *LoanRepository) Create(loan *domain.Loan) (*domain.Loan, error) {
	return r.createLoan(context.Background(), r.pool, loan)
}

// CreateTx creates a new loan within an existing transaction
func (r *LoanRepository) CreateTx(tx interface{}, loan *domain.Loan) (*domain.Loan, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return r.createLoan(context.Background(), q, loan)
}

func (r *LoanRepository) createLoan(ctx context.Context, q querier, loan *domain.Loan) (*domain.Loan, error) {
	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return nil, fmt.Errorf("invalid principal: %w", err)
	}

	if loan.ID == uuid.Nil {
		loan.ID = uuid.New()
	}

	row := q.QueryRow(ctx, `
		INSERT INTO loans (id, workspace_id, client_name, principal, photo_url, status, current_cycle, cycle_start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+loanColumns,
		pgUUID(loan.ID), loan.WorkspaceID, loan.ClientName, principal,
		pgText(loan.PhotoURL), loan.Status, loan.CurrentCycle, pgDate(loan.CycleStartDate),
	)
	return scanLoan(row)
}

// GetByID retrieves a loan by its ID within a workspace
func (r *LoanRepository) GetByID(workspaceID int32, id uuid.UUID) (*domain.Loan, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT `+loanColumns+` FROM loans
		WHERE workspace_id = $1 AND id = $2`,
		workspaceID, pgUUID(id),
	)
	loan, err := scanLoan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// GetAllByWorkspace retrieves all loans for a workspace, newest first
func (r *LoanRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+loanColumns+` FROM loans
		WHERE workspace_id = $1
		ORDER BY created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLoans(rows)
}

// GetByStatus retrieves loans with the given persisted status
func (r *LoanRepository) GetByStatus(workspaceID int32, status string) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+loanColumns+` FROM loans
		WHERE workspace_id = $1 AND status = $2
		ORDER BY created_at DESC`,
		workspaceID, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLoans(rows)
}

// SearchByClientName retrieves loans whose client name contains the term,
// case-insensitively
func (r *LoanRepository) SearchByClientName(workspaceID int32, term string) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+loanColumns+` FROM loans
		WHERE workspace_id = $1 AND client_name ILIKE '%' || $2 || '%'
		ORDER BY client_name`,
		workspaceID, term,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLoans(rows)
}

// Update updates a loan's mutable fields
func (r *LoanRepository) Update(loan *domain.Loan) (*domain.Loan, error) {
	return r.updateLoan(context.Background(), r.pool, loan)
}

// UpdateTx updates a loan within an existing transaction
func (r *LoanRepository) UpdateTx(tx interface{}, loan *domain.Loan) (*domain.Loan, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}
	return r.updateLoan(context.Background(), q, loan)
}

func (r *LoanRepository) updateLoan(ctx context.Context, q querier, loan *domain.Loan) (*domain.Loan, error) {
	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return nil, fmt.Errorf("invalid principal: %w", err)
	}

	row := q.QueryRow(ctx, `
		UPDATE loans
		SET client_name = $3, principal = $4, photo_url = $5, status = $6,
		    current_cycle = $7, cycle_start_date = $8, updated_at = now()
		WHERE workspace_id = $1 AND id = $2
		RETURNING `+loanColumns,
		loan.WorkspaceID, pgUUID(loan.ID), loan.ClientName, principal,
		pgText(loan.PhotoURL), loan.Status, loan.CurrentCycle, pgDate(loan.CycleStartDate),
	)
	updated, err := scanLoan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Upsert writes a loan record as-is, replacing any existing row. Used by
// replica reconciliation, which has already decided which side wins.
func (r *LoanRepository) Upsert(loan *domain.Loan) error {
	principal, err := decimalToPgNumeric(loan.Principal)
	if err != nil {
		return fmt.Errorf("invalid principal: %w", err)
	}

	_, err = r.pool.Exec(context.Background(), `
		INSERT INTO loans (id, workspace_id, client_name, principal, photo_url, status, current_cycle, cycle_start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			client_name = EXCLUDED.client_name,
			principal = EXCLUDED.principal,
			photo_url = EXCLUDED.photo_url,
			status = EXCLUDED.status,
			current_cycle = EXCLUDED.current_cycle,
			cycle_start_date = EXCLUDED.cycle_start_date,
			updated_at = EXCLUDED.updated_at`,
		pgUUID(loan.ID), loan.WorkspaceID, loan.ClientName, principal,
		pgText(loan.PhotoURL), loan.Status, loan.CurrentCycle, pgDate(loan.CycleStartDate),
		loan.CreatedAt, loan.UpdatedAt,
	)
	return err
}

// DeleteTx removes a loan within an existing transaction. Cycles and
// payments must be deleted first by the caller.
func (r *LoanRepository) DeleteTx(tx interface{}, workspaceID int32, id uuid.UUID) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(context.Background(), `
		DELETE FROM loans WHERE workspace_id = $1 AND id = $2`,
		workspaceID, pgUUID(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		id             pgtype.UUID
		principal      pgtype.Numeric
		photoURL       pgtype.Text
		cycleStartDate pgtype.Date
		createdAt      pgtype.Timestamptz
		updatedAt      pgtype.Timestamptz
		loan           domain.Loan
	)
	err := row.Scan(&id, &loan.WorkspaceID, &loan.ClientName, &principal,
		&photoURL, &loan.Status, &loan.CurrentCycle, &cycleStartDate,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	loan.ID = uuidFromPg(id)
	loan.Principal = pgNumericToDecimal(principal)
	loan.PhotoURL = textPtr(photoURL)
	loan.CycleStartDate = cycleStartDate.Time
	loan.CreatedAt = createdAt.Time
	loan.UpdatedAt = updatedAt.Time
	return &loan, nil
}

func scanLoans(rows pgx.Rows) ([]*domain.Loan, error) {
	loans := []*domain.Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}
