package handler

import (
	"context"
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
	"github.com/rmarquez/prestia/prestia-backend/internal/middleware"
	"github.com/rmarquez/prestia/prestia-backend/internal/service"
	"github.com/rmarquez/prestia/prestia-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

// setWorkspace places a workspace ID in the request context, standing in for
// the auth middleware
func setWorkspace(c echo.Context, workspaceID int32) {
	ctx := context.WithValue(c.Request().Context(), middleware.WorkspaceIDKey, workspaceID)
	c.SetRequest(c.Request().WithContext(ctx))
}

func newLoanHandlerForTest() (*LoanHandler, *testutil.MockLoanRepository, *testutil.MockCycleRepository) {
	loanRepo := testutil.NewMockLoanRepository()
	cycleRepo := testutil.NewMockCycleRepository()
	paymentRepo := testutil.NewMockPaymentRepository()
	loanService := service.NewLoanService(&testutil.MockTxBeginner{}, loanRepo, cycleRepo, paymentRepo, interest.DefaultPolicy)
	return NewLoanHandler(loanService), loanRepo, cycleRepo
}

func TestCreateLoanHandler_Success(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerForTest()

	reqBody := `{
		"clientName": "Maria Gomez",
		"principal": "1000.00",
		"startDate": "2025-03-13"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setWorkspace(c, 1)

	if err := handler.CreateLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response LoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.ClientName != "Maria Gomez" {
		t.Errorf("Expected client name 'Maria Gomez', got %s", response.ClientName)
	}
	if response.Principal != "1000.00" {
		t.Errorf("Expected principal '1000.00', got %s", response.Principal)
	}
	if response.Status != "active" {
		t.Errorf("Expected status 'active', got %s", response.Status)
	}
	if response.DueDate != "2025-04-13" {
		t.Errorf("Expected due date '2025-04-13', got %s", response.DueDate)
	}
}

func TestCreateLoanHandler_ValidationError(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerForTest()

	reqBody := `{"clientName": "", "principal": "1000.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setWorkspace(c, 1)

	if err := handler.CreateLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problem.Type != ErrorTypeValidation {
		t.Errorf("Expected validation problem type, got %s", problem.Type)
	}
	if len(problem.Errors) == 0 || problem.Errors[0].Field != "clientName" {
		t.Errorf("Expected a clientName field error, got %+v", problem.Errors)
	}
}

func TestCreateLoanHandler_InvalidPrincipal(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerForTest()

	reqBody := `{"clientName": "Maria Gomez", "principal": "not-a-number"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setWorkspace(c, 1)

	if err := handler.CreateLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateLoanHandler_NoWorkspace(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerForTest()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.CreateLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestGetLoanHandler_NotFound(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerForTest()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	setWorkspace(c, 1)

	if err := handler.GetLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetLoansHandler_InvalidStatusFilter(t *testing.T) {
	e := echo.New()
	handler, _, _ := newLoanHandlerForTest()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans?status=defaulted", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setWorkspace(c, 1)

	if err := handler.GetLoans(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestUpdateLoanHandler_CompletedLoanConflict(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newLoanHandlerForTest()

	loan := &domain.Loan{
		ID:             uuid.New(),
		WorkspaceID:    1,
		ClientName:     "Maria Gomez",
		Principal:      decimal.NewFromInt(1000),
		Status:         domain.LoanStatusCompleted,
		CurrentCycle:   1,
		CycleStartDate: time.Now(),
	}
	loanRepo.AddLoan(loan)

	reqBody := `{"clientName": "New Name"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/loans/"+loan.ID.String(), strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(loan.ID.String())
	setWorkspace(c, 1)

	if err := handler.UpdateLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestDeleteLoanHandler_Success(t *testing.T) {
	e := echo.New()
	handler, loanRepo, _ := newLoanHandlerForTest()

	loan := &domain.Loan{
		ID:             uuid.New(),
		WorkspaceID:    1,
		ClientName:     "Maria Gomez",
		Principal:      decimal.NewFromInt(1000),
		Status:         domain.LoanStatusActive,
		CurrentCycle:   1,
		CycleStartDate: time.Now(),
	}
	loanRepo.AddLoan(loan)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/loans/"+loan.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(loan.ID.String())
	setWorkspace(c, 1)

	if err := handler.DeleteLoan(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
	if len(loanRepo.Loans) != 0 {
		t.Error("Expected loan to be deleted")
	}
}
