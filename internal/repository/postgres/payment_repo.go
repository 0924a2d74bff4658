package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, workspace_id, loan_id, cycle_id, amount, payment_type, payment_date, photo_url, notes, created_at`

// PaymentRepository implements domain.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// CreateTx inserts a payment within an existing transaction. Payments are
// only ever written as part of a lifecycle transition, so there is no
// pool-backed Create.
func (r *PaymentRepository) CreateTx(tx interface{}, payment *domain.Payment) (*domain.Payment, error) {
	q, err := txQuerier(tx)
	if err != nil {
		return nil, err
	}

	amount, err := decimalToPgNumeric(payment.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	row := q.QueryRow(context.Background(), `
		INSERT INTO payments (id, workspace_id, loan_id, cycle_id, amount, payment_type, payment_date, photo_url, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+paymentColumns,
		pgUUID(payment.ID), payment.WorkspaceID, pgUUID(payment.LoanID), pgUUID(payment.CycleID),
		amount, payment.PaymentType, payment.PaymentDate, pgText(payment.PhotoURL), pgText(payment.Notes),
	)
	return scanPayment(row)
}

// GetByID retrieves a payment by its ID
func (r *PaymentRepository) GetByID(id uuid.UUID) (*domain.Payment, error) {
	row := r.pool.QueryRow(context.Background(), `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1`,
		pgUUID(id),
	)
	payment, err := scanPayment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// GetByLoanID retrieves all payments of a loan, newest first
func (r *PaymentRepository) GetByLoanID(loanID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+paymentColumns+` FROM payments
		WHERE loan_id = $1
		ORDER BY payment_date DESC`,
		pgUUID(loanID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// GetByCycleID retrieves all payments recorded against a cycle
func (r *PaymentRepository) GetByCycleID(cycleID uuid.UUID) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+paymentColumns+` FROM payments
		WHERE cycle_id = $1
		ORDER BY payment_date DESC`,
		pgUUID(cycleID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// GetRecent retrieves the most recent payments across a workspace
func (r *PaymentRepository) GetRecent(workspaceID int32, limit int) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+paymentColumns+` FROM payments
		WHERE workspace_id = $1
		ORDER BY payment_date DESC, created_at DESC
		LIMIT $2`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// GetAllByWorkspace retrieves all payments for a workspace
func (r *PaymentRepository) GetAllByWorkspace(workspaceID int32) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(context.Background(), `
		SELECT `+paymentColumns+` FROM payments
		WHERE workspace_id = $1
		ORDER BY payment_date DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// SumAmountByType sums payment amounts of one type across a workspace
func (r *PaymentRepository) SumAmountByType(workspaceID int32, paymentType string) (decimal.Decimal, error) {
	var sum pgtype.Numeric
	err := r.pool.QueryRow(context.Background(), `
		SELECT COALESCE(SUM(amount), 0) FROM payments
		WHERE workspace_id = $1 AND payment_type = $2`,
		workspaceID, paymentType,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(sum), nil
}

// Upsert writes a payment record as-is, replacing any existing row
func (r *PaymentRepository) Upsert(payment *domain.Payment) error {
	amount, err := decimalToPgNumeric(payment.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	_, err = r.pool.Exec(context.Background(), `
		INSERT INTO payments (id, workspace_id, loan_id, cycle_id, amount, payment_type, payment_date, photo_url, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			payment_type = EXCLUDED.payment_type,
			payment_date = EXCLUDED.payment_date,
			photo_url = EXCLUDED.photo_url,
			notes = EXCLUDED.notes`,
		pgUUID(payment.ID), payment.WorkspaceID, pgUUID(payment.LoanID), pgUUID(payment.CycleID),
		amount, payment.PaymentType, payment.PaymentDate, pgText(payment.PhotoURL), pgText(payment.Notes),
		payment.CreatedAt,
	)
	return err
}

// DeleteByLoanIDTx removes all payments of a loan within an existing
// transaction
func (r *PaymentRepository) DeleteByLoanIDTx(tx interface{}, loanID uuid.UUID) error {
	q, err := txQuerier(tx)
	if err != nil {
		return err
	}
	_, err = q.Exec(context.Background(), `
		DELETE FROM payments WHERE loan_id = $1`,
		pgUUID(loanID),
	)
	return err
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		id          pgtype.UUID
		loanID      pgtype.UUID
		cycleID     pgtype.UUID
		amount      pgtype.Numeric
		paymentDate pgtype.Timestamptz
		photoURL    pgtype.Text
		notes       pgtype.Text
		createdAt   pgtype.Timestamptz
		payment     domain.Payment
	)
	err := row.Scan(&id, &payment.WorkspaceID, &loanID, &cycleID, &amount,
		&payment.PaymentType, &paymentDate, &photoURL, &notes, &createdAt)
	if err != nil {
		return nil, err
	}
	payment.ID = uuidFromPg(id)
	payment.LoanID = uuidFromPg(loanID)
	payment.CycleID = uuidFromPg(cycleID)
	payment.Amount = pgNumericToDecimal(amount)
	payment.PaymentDate = paymentDate.Time
	payment.PhotoURL = textPtr(photoURL)
	payment.Notes = textPtr(notes)
	payment.CreatedAt = createdAt.Time
	return &payment, nil
}

func scanPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	payments := []*domain.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}
