package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/interest"
	"github.com/rmarquez/prestia/prestia-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type paymentFixture struct {
	svc         *PaymentService
	db          *testutil.MockTxBeginner
	loanRepo    *testutil.MockLoanRepository
	cycleRepo   *testutil.MockCycleRepository
	paymentRepo *testutil.MockPaymentRepository
	publisher   *testutil.CapturingPublisher
	loan        *domain.Loan
	cycle       *domain.Cycle
	now         time.Time
}

// newPaymentFixture seeds an active loan of 1000 that started on March 13
// with "now" fixed to March 18, five days in: 10% band, interest 100.
func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		db:          &testutil.MockTxBeginner{},
		loanRepo:    testutil.NewMockLoanRepository(),
		cycleRepo:   testutil.NewMockCycleRepository(),
		paymentRepo: testutil.NewMockPaymentRepository(),
		publisher:   &testutil.CapturingPublisher{},
		now:         time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC),
	}
	f.svc = NewPaymentService(f.db, f.loanRepo, f.cycleRepo, f.paymentRepo, interest.DefaultPolicy)
	f.svc.SetEventPublisher(f.publisher)
	f.svc.now = func() time.Time { return f.now }

	f.loan = &domain.Loan{
		ID:             uuid.New(),
		WorkspaceID:    1,
		ClientName:     "Maria Gomez",
		Principal:      decimal.NewFromInt(1000),
		Status:         domain.LoanStatusActive,
		CurrentCycle:   1,
		CycleStartDate: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
	}
	f.loanRepo.AddLoan(f.loan)

	f.cycle = &domain.Cycle{
		ID:          uuid.New(),
		WorkspaceID: 1,
		LoanID:      f.loan.ID,
		CycleNumber: 1,
		StartDate:   f.loan.CycleStartDate,
		Status:      domain.CycleStatusActive,
	}
	f.cycleRepo.AddCycle(f.cycle)
	return f
}

func (f *paymentFixture) eventTypes() []string {
	types := make([]string, len(f.publisher.Events))
	for i, e := range f.publisher.Events {
		types[i] = e.Type
	}
	return types
}

func TestRecordPayment_Complete(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypeComplete, decimal.NewFromInt(1100), nil, nil)
	assert.NoError(t, err)
	assert.True(t, result.LoanCompleted)
	assert.Nil(t, result.NewCycle)
	assert.Equal(t, domain.LoanStatusCompleted, result.Loan.Status)
	assert.True(t, f.db.LastTx.Committed)

	// Cycle closed at the payment date
	cycle, err := f.cycleRepo.GetByID(f.cycle.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.CycleStatusCompleted, cycle.Status)
	assert.Equal(t, f.now, *cycle.EndDate)

	assert.Equal(t, []string{"payment.created", "loan.completed"}, f.eventTypes())
}

func TestRecordPayment_CompleteBelowOwedRejected(t *testing.T) {
	f := newPaymentFixture()

	// Owes 1100, offers 1099
	_, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypeComplete, decimal.NewFromInt(1099), nil, nil)

	var verr domain.PaymentValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.RuleCompleteCoversOwed, verr.Rule)

	// Nothing written, nothing published
	assert.Nil(t, f.db.LastTx)
	assert.Empty(t, f.paymentRepo.Payments)
	assert.Equal(t, domain.LoanStatusActive, f.loanRepo.Loans[f.loan.ID].Status)
	assert.Empty(t, f.publisher.Events)
}

func TestRecordPayment_InterestOnlyRenewsAtDueDate(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypeInterestOnly, decimal.NewFromInt(100), nil, nil)
	assert.NoError(t, err)
	assert.False(t, result.LoanCompleted)
	assert.NotNil(t, result.NewCycle)

	// The renewal anchors on the previous cycle's due date (April 13), not on
	// the payment date
	wantStart := time.Date(2025, 4, 13, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, wantStart, result.NewCycle.StartDate)
	assert.Equal(t, int32(2), result.NewCycle.CycleNumber)
	assert.Equal(t, int32(2), result.Loan.CurrentCycle)
	assert.Equal(t, wantStart, result.Loan.CycleStartDate)
	assert.True(t, result.Loan.Principal.Equal(decimal.NewFromInt(1000)), "principal untouched by a renewal")

	// Old cycle closed, new one active
	oldCycle, _ := f.cycleRepo.GetByID(f.cycle.ID)
	assert.Equal(t, domain.CycleStatusCompleted, oldCycle.Status)
	active, err := f.cycleRepo.GetActiveByLoanID(f.loan.ID)
	assert.NoError(t, err)
	assert.Equal(t, result.NewCycle.ID, active.ID)

	assert.Equal(t, []string{"payment.created", "loan.updated", "cycle.renewed"}, f.eventTypes())
}

func TestRecordPayment_InterestOnlyTolerance(t *testing.T) {
	f := newPaymentFixture()

	// One cent off is accepted
	result, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypeInterestOnly, decimal.NewFromFloat(100.01), nil, nil)
	assert.NoError(t, err)
	assert.NotNil(t, result.NewCycle)
}

func TestRecordPayment_InterestOnlyWrongAmountRejected(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypeInterestOnly, decimal.NewFromInt(50), nil, nil)

	var verr domain.PaymentValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.RuleInterestExact, verr.Rule)
	assert.Nil(t, f.db.LastTx)
}

func TestRecordPayment_LateRenewalKeepsAnchorDay(t *testing.T) {
	f := newPaymentFixture()
	// 18 days in: late band, interest 150, due date already April 13
	f.now = time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)

	result, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypeInterestOnly, decimal.NewFromInt(150), nil, nil)
	assert.NoError(t, err)

	// Paying on the 18th still anchors the next cycle on the 13th
	assert.Equal(t, time.Date(2025, 4, 13, 0, 0, 0, 0, time.UTC), result.NewCycle.StartDate)
}

func TestRecordPayment_PartialReducesPrincipal(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypePartial, decimal.NewFromInt(400), nil, nil)
	assert.NoError(t, err)
	assert.False(t, result.LoanCompleted)
	assert.Nil(t, result.NewCycle)
	assert.True(t, result.Loan.Principal.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, domain.LoanStatusActive, result.Loan.Status)

	// The cycle stays open
	active, err := f.cycleRepo.GetActiveByLoanID(f.loan.ID)
	assert.NoError(t, err)
	assert.Equal(t, f.cycle.ID, active.ID)
}

func TestRecordPayment_PartialToZeroCompletes(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypePartial, decimal.NewFromInt(1000), nil, nil)
	assert.NoError(t, err)
	assert.True(t, result.LoanCompleted)
	assert.Equal(t, domain.LoanStatusCompleted, result.Loan.Status)
	assert.True(t, result.Loan.Principal.IsZero())

	cycle, _ := f.cycleRepo.GetByID(f.cycle.ID)
	assert.Equal(t, domain.CycleStatusCompleted, cycle.Status)
	assert.Equal(t, []string{"payment.created", "loan.completed"}, f.eventTypes())
}

func TestRecordPayment_PartialOverPrincipalRejected(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypePartial, decimal.NewFromInt(1001), nil, nil)

	var verr domain.PaymentValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.RulePartialWithinDebt, verr.Rule)
}

func TestRecordPayment_NegativeAmountRejected(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypePartial, decimal.NewFromInt(-5), nil, nil)

	var verr domain.PaymentValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.RuleAmountPositive, verr.Rule)
}

func TestRecordPayment_InvalidType(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.RecordPayment(1, f.loan.ID, "refund", decimal.NewFromInt(100), nil, nil)
	assert.Equal(t, domain.ErrPaymentTypeInvalid, err)
}

func TestRecordPayment_CompletedLoanRejected(t *testing.T) {
	f := newPaymentFixture()
	f.loan.Status = domain.LoanStatusCompleted
	f.cycle.Status = domain.CycleStatusCompleted

	_, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypePartial, decimal.NewFromInt(100), nil, nil)
	assert.Equal(t, domain.ErrLoanNotActive, err)
}

func TestRecordPayment_NoActiveCycleInvariant(t *testing.T) {
	f := newPaymentFixture()
	// Corrupt state: active loan, no active cycle
	f.cycle.Status = domain.CycleStatusCompleted

	_, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypePartial, decimal.NewFromInt(100), nil, nil)

	var inv domain.ErrNoActiveCycle
	assert.ErrorAs(t, err, &inv)
	assert.Equal(t, f.loan.ID.String(), inv.LoanID)
	assert.Nil(t, f.db.LastTx, "the operation aborts without repairing state")
}

func TestRecordPayment_AttachesReceiptAndNotes(t *testing.T) {
	f := newPaymentFixture()

	photo := "workspaces/1/receipts/abc/display.jpg"
	notes := "paid in cash"
	result, err := f.svc.RecordPayment(1, f.loan.ID, domain.PaymentTypePartial, decimal.NewFromInt(100), &photo, &notes)
	assert.NoError(t, err)
	assert.Equal(t, &photo, result.Payment.PhotoURL)
	assert.Equal(t, &notes, result.Payment.Notes)
}

func TestValidatePayment_DoesNotWrite(t *testing.T) {
	f := newPaymentFixture()

	result, err := f.svc.ValidatePayment(1, f.loan.ID, domain.PaymentTypeComplete, decimal.NewFromInt(500))
	assert.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, domain.RuleCompleteCoversOwed, result.Rule)

	result, err = f.svc.ValidatePayment(1, f.loan.ID, domain.PaymentTypeComplete, decimal.NewFromInt(1100))
	assert.NoError(t, err)
	assert.True(t, result.Valid)

	assert.Empty(t, f.paymentRepo.Payments)
	assert.Nil(t, f.db.LastTx)
}

func TestGetPaymentsByCycleID_WrongWorkspace(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.GetPaymentsByCycleID(2, f.cycle.ID)
	assert.Equal(t, domain.ErrCycleNotFound, err)
}

func TestGetRecentPayments_ClampsLimit(t *testing.T) {
	f := newPaymentFixture()
	for i := 0; i < 30; i++ {
		f.paymentRepo.AddPayment(&domain.Payment{
			ID: uuid.New(), WorkspaceID: 1, LoanID: f.loan.ID, CycleID: f.cycle.ID,
			Amount:      decimal.NewFromInt(10),
			PaymentType: domain.PaymentTypePartial,
			PaymentDate: f.now.AddDate(0, 0, -i),
		})
	}

	payments, err := f.svc.GetRecentPayments(1, -1)
	assert.NoError(t, err)
	assert.Len(t, payments, 20, "invalid limits fall back to the default")

	payments, err = f.svc.GetRecentPayments(1, 5)
	assert.NoError(t, err)
	assert.Len(t, payments, 5)
	assert.Equal(t, f.now, payments[0].PaymentDate, "newest first")
}

func TestGetPaymentStats(t *testing.T) {
	f := newPaymentFixture()
	f.paymentRepo.AddPayment(&domain.Payment{
		ID: uuid.New(), WorkspaceID: 1, LoanID: f.loan.ID, CycleID: f.cycle.ID,
		Amount: decimal.NewFromInt(100), PaymentType: domain.PaymentTypeInterestOnly,
	})
	f.paymentRepo.AddPayment(&domain.Payment{
		ID: uuid.New(), WorkspaceID: 1, LoanID: f.loan.ID, CycleID: f.cycle.ID,
		Amount: decimal.NewFromInt(300), PaymentType: domain.PaymentTypePartial,
	})

	stats, err := f.svc.GetPaymentStats(1, f.loan.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPayments)
	assert.True(t, stats.TotalAmount.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 1, stats.InterestPayments)
	assert.True(t, stats.InterestAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, stats.PartialPayments)
	assert.True(t, stats.PartialAmount.Equal(decimal.NewFromInt(300)))
}
