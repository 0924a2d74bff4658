package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/interest"
	"github.com/rmarquez/prestia/prestia-backend/internal/lifecycle"
	"github.com/rmarquez/prestia/prestia-backend/internal/service"
	"github.com/rmarquez/prestia/prestia-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

type paymentHandlerFixture struct {
	handler     *PaymentHandler
	loanRepo    *testutil.MockLoanRepository
	cycleRepo   *testutil.MockCycleRepository
	paymentRepo *testutil.MockPaymentRepository
	loan        *domain.Loan
	cycle       *domain.Cycle
}

// newPaymentHandlerFixture seeds an active 1000.00 loan whose cycle started
// today, so the current interest is exactly 100.00 and the total owed 1100.00
func newPaymentHandlerFixture() *paymentHandlerFixture {
	loanRepo := testutil.NewMockLoanRepository()
	cycleRepo := testutil.NewMockCycleRepository()
	paymentRepo := testutil.NewMockPaymentRepository()
	paymentService := service.NewPaymentService(&testutil.MockTxBeginner{}, loanRepo, cycleRepo, paymentRepo, interest.DefaultPolicy)

	start := time.Now()
	loan := &domain.Loan{
		ID:             uuid.New(),
		WorkspaceID:    1,
		ClientName:     "Maria Gomez",
		Principal:      decimal.NewFromInt(1000),
		Status:         domain.LoanStatusActive,
		CurrentCycle:   1,
		CycleStartDate: start,
	}
	cycle := &domain.Cycle{
		ID:          uuid.New(),
		WorkspaceID: 1,
		LoanID:      loan.ID,
		CycleNumber: 1,
		StartDate:   start,
		Status:      domain.CycleStatusActive,
	}
	loanRepo.AddLoan(loan)
	cycleRepo.AddCycle(cycle)

	return &paymentHandlerFixture{
		handler:     NewPaymentHandler(paymentService),
		loanRepo:    loanRepo,
		cycleRepo:   cycleRepo,
		paymentRepo: paymentRepo,
		loan:        loan,
		cycle:       cycle,
	}
}

func (f *paymentHandlerFixture) recordPayment(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/"+f.loan.ID.String()+"/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.loan.ID.String())
	setWorkspace(c, 1)

	if err := f.handler.RecordPayment(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return rec
}

func TestRecordPaymentHandler_Complete(t *testing.T) {
	f := newPaymentHandlerFixture()

	rec := f.recordPayment(t, `{"paymentType": "complete", "amount": "1100.00"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var response RecordPaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if !response.LoanCompleted {
		t.Error("Expected loanCompleted to be true")
	}
	if response.Loan.Status != "completed" {
		t.Errorf("Expected loan status 'completed', got %s", response.Loan.Status)
	}
	if response.Payment.Amount != "1100.00" {
		t.Errorf("Expected payment amount '1100.00', got %s", response.Payment.Amount)
	}
	if response.NewCycle != nil {
		t.Error("Expected no new cycle on a complete payment")
	}
}

func TestRecordPaymentHandler_InterestOnlyRenews(t *testing.T) {
	f := newPaymentHandlerFixture()

	rec := f.recordPayment(t, `{"paymentType": "interest_only", "amount": "100.00"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var response RecordPaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.LoanCompleted {
		t.Error("Expected loanCompleted to be false")
	}
	if response.NewCycle == nil {
		t.Fatal("Expected a new cycle after an interest-only payment")
	}
	if response.NewCycle.CycleNumber != 2 {
		t.Errorf("Expected cycle number 2, got %d", response.NewCycle.CycleNumber)
	}
	if response.Loan.Principal != "1000.00" {
		t.Errorf("Expected principal unchanged at '1000.00', got %s", response.Loan.Principal)
	}
}

func TestRecordPaymentHandler_RuleRejected(t *testing.T) {
	f := newPaymentHandlerFixture()

	rec := f.recordPayment(t, `{"paymentType": "complete", "amount": "1099.00"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problem.Rule != domain.RuleCompleteCoversOwed {
		t.Errorf("Expected rule %q, got %q", domain.RuleCompleteCoversOwed, problem.Rule)
	}
	if len(f.paymentRepo.Payments) != 0 {
		t.Error("Expected no payment to be recorded")
	}
}

func TestRecordPaymentHandler_InvalidType(t *testing.T) {
	f := newPaymentHandlerFixture()

	rec := f.recordPayment(t, `{"paymentType": "refund", "amount": "100.00"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestRecordPaymentHandler_InvalidAmount(t *testing.T) {
	f := newPaymentHandlerFixture()

	rec := f.recordPayment(t, `{"paymentType": "partial", "amount": "lots"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestRecordPaymentHandler_LoanNotFound(t *testing.T) {
	f := newPaymentHandlerFixture()
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/"+uuid.NewString()+"/payments",
		strings.NewReader(`{"paymentType": "partial", "amount": "100.00"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	setWorkspace(c, 1)

	if err := f.handler.RecordPayment(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestRecordPaymentHandler_NoActiveCycleConflict(t *testing.T) {
	f := newPaymentHandlerFixture()

	// Corrupt the invariant: active loan, no active cycle
	endDate := time.Now()
	f.cycle.Status = domain.CycleStatusCompleted
	f.cycle.EndDate = &endDate

	rec := f.recordPayment(t, `{"paymentType": "partial", "amount": "100.00"}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problem.Type != ErrorTypeInvariant {
		t.Errorf("Expected invariant problem type, got %s", problem.Type)
	}
}

func TestValidatePaymentHandler_DoesNotWrite(t *testing.T) {
	f := newPaymentHandlerFixture()
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/"+f.loan.ID.String()+"/payments/validate",
		strings.NewReader(`{"paymentType": "partial", "amount": "1001.00"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(f.loan.ID.String())
	setWorkspace(c, 1)

	if err := f.handler.ValidatePayment(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var result lifecycle.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if result.Valid {
		t.Error("Expected the amount to be rejected")
	}
	if result.Rule != domain.RulePartialWithinDebt {
		t.Errorf("Expected rule %q, got %q", domain.RulePartialWithinDebt, result.Rule)
	}
	if len(f.paymentRepo.Payments) != 0 {
		t.Error("Expected validation to record nothing")
	}
}

func TestGetRecentPaymentsHandler_InvalidLimit(t *testing.T) {
	f := newPaymentHandlerFixture()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/recent?limit=abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setWorkspace(c, 1)

	if err := f.handler.GetRecentPayments(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}
