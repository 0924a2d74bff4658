package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/middleware"
	"github.com/rmarquez/prestia/prestia-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest represents the create loan request body
type CreateLoanRequest struct {
	ClientName string  `json:"clientName"`
	Principal  string  `json:"principal"`
	PhotoURL   *string `json:"photoUrl,omitempty"`
	StartDate  *string `json:"startDate,omitempty"` // YYYY-MM-DD, defaults to today
}

// UpdateLoanRequest represents the update loan request body
type UpdateLoanRequest struct {
	ClientName *string `json:"clientName,omitempty"`
	Principal  *string `json:"principal,omitempty"`
}

// UpdateLoanPhotoRequest represents the photo update request body
type UpdateLoanPhotoRequest struct {
	PhotoURL string `json:"photoUrl"`
}

// LoanResponse represents a loan with its derived fields in API responses
type LoanResponse struct {
	ID                  string  `json:"id"`
	ClientName          string  `json:"clientName"`
	Principal           string  `json:"principal"`
	PhotoURL            *string `json:"photoUrl,omitempty"`
	Status              string  `json:"status"`
	CurrentCycle        int32   `json:"currentCycle"`
	CycleStartDate      string  `json:"cycleStartDate"`
	DaysElapsed         int     `json:"daysElapsed"`
	CurrentInterestRate string  `json:"currentInterestRate"`
	CurrentInterest     string  `json:"currentInterest"`
	TotalOwed           string  `json:"totalOwed"`
	DueDate             string  `json:"dueDate"`
	IsOverdue           bool    `json:"isOverdue"`
	DaysUntilDue        int     `json:"daysUntilDue"`
	CreatedAt           string  `json:"createdAt"`
	UpdatedAt           string  `json:"updatedAt"`
}

// CycleHistoryResponse represents a loan's cycle history
type CycleHistoryResponse struct {
	TotalCycles     int             `json:"totalCycles"`
	CompletedCycles int             `json:"completedCycles"`
	CurrentCycle    *CycleResponse  `json:"currentCycle,omitempty"`
	Cycles          []CycleResponse `json:"cycles"`
}

// CycleResponse represents a cycle in API responses
type CycleResponse struct {
	ID          string  `json:"id"`
	LoanID      string  `json:"loanId"`
	CycleNumber int32   `json:"cycleNumber"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate,omitempty"`
	Status      string  `json:"status"`
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}

	var startDate *time.Time
	if req.StartDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			return NewValidationError(c, "Invalid start date", []ValidationError{
				{Field: "startDate", Message: "Must be a date in YYYY-MM-DD format"},
			})
		}
		startDate = &parsed
	}

	loan, err := h.loanService.CreateLoan(workspaceID, req.ClientName, principal, req.PhotoURL, startDate)
	if err != nil {
		if verr := loanValidationResponse(c, err); verr != nil {
			return verr
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to create loan")
		return NewInternalError(c, "Failed to create loan")
	}

	log.Info().Int32("workspace_id", workspaceID).Str("loan_id", loan.ID.String()).Str("client", loan.ClientName).Msg("Loan created")
	return c.JSON(http.StatusCreated, toLoanResponse(loan))
}

// GetLoans handles GET /api/v1/loans with optional status and search filters
func (h *LoanHandler) GetLoans(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var (
		loans []*domain.LoanView
		err   error
	)
	switch {
	case c.QueryParam("search") != "":
		loans, err = h.loanService.SearchLoans(workspaceID, c.QueryParam("search"))
	case c.QueryParam("status") != "":
		loans, err = h.loanService.GetLoansByStatus(workspaceID, c.QueryParam("status"))
	default:
		loans, err = h.loanService.GetLoans(workspaceID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrLoanStatusInvalid) {
			return NewValidationError(c, "Invalid status filter", []ValidationError{
				{Field: "status", Message: "Must be one of: active, completed, overdue"},
			})
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get loans")
		return NewInternalError(c, "Failed to get loans")
	}

	response := make([]LoanResponse, len(loans))
	for i, loan := range loans {
		response[i] = toLoanResponse(loan)
	}
	return c.JSON(http.StatusOK, response)
}

// GetLoan handles GET /api/v1/loans/:id
func (h *LoanHandler) GetLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	loan, err := h.loanService.GetLoan(workspaceID, id)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", id.String()).Msg("Failed to get loan")
		return NewInternalError(c, "Failed to get loan")
	}

	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// UpdateLoan handles PUT /api/v1/loans/:id
func (h *LoanHandler) UpdateLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req UpdateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var principal *decimal.Decimal
	if req.Principal != nil {
		parsed, err := decimal.NewFromString(*req.Principal)
		if err != nil {
			return NewValidationError(c, "Invalid principal", []ValidationError{
				{Field: "principal", Message: "Must be a valid decimal number"},
			})
		}
		principal = &parsed
	}

	loan, err := h.loanService.UpdateLoan(workspaceID, id, req.ClientName, principal)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		if errors.Is(err, domain.ErrLoanNotActive) {
			return NewConflictError(c, "Only active loans can be edited")
		}
		if verr := loanValidationResponse(c, err); verr != nil {
			return verr
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", id.String()).Msg("Failed to update loan")
		return NewInternalError(c, "Failed to update loan")
	}

	log.Info().Int32("workspace_id", workspaceID).Str("loan_id", id.String()).Msg("Loan updated")
	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// UpdateLoanPhoto handles PATCH /api/v1/loans/:id/photo
func (h *LoanHandler) UpdateLoanPhoto(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req UpdateLoanPhotoRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.PhotoURL == "" {
		return NewValidationError(c, "Invalid photo URL", []ValidationError{
			{Field: "photoUrl", Message: "Photo URL is required"},
		})
	}

	loan, err := h.loanService.UpdateLoanPhoto(workspaceID, id, req.PhotoURL)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", id.String()).Msg("Failed to update loan photo")
		return NewInternalError(c, "Failed to update loan photo")
	}

	return c.JSON(http.StatusOK, toLoanResponse(loan))
}

// DeleteLoan handles DELETE /api/v1/loans/:id
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	if err := h.loanService.DeleteLoan(workspaceID, id); err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", id.String()).Msg("Failed to delete loan")
		return NewInternalError(c, "Failed to delete loan")
	}

	log.Info().Int32("workspace_id", workspaceID).Str("loan_id", id.String()).Msg("Loan deleted")
	return c.NoContent(http.StatusNoContent)
}

// GetCycleHistory handles GET /api/v1/loans/:id/cycles
func (h *LoanHandler) GetCycleHistory(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	history, err := h.loanService.GetCycleHistory(workspaceID, id)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", id.String()).Msg("Failed to get cycle history")
		return NewInternalError(c, "Failed to get cycle history")
	}

	response := CycleHistoryResponse{
		TotalCycles:     history.TotalCycles,
		CompletedCycles: history.CompletedCycles,
		Cycles:          make([]CycleResponse, len(history.Cycles)),
	}
	for i, cycle := range history.Cycles {
		response.Cycles[i] = toCycleResponse(cycle)
	}
	if history.CurrentCycle != nil {
		current := toCycleResponse(history.CurrentCycle)
		response.CurrentCycle = &current
	}
	return c.JSON(http.StatusOK, response)
}

// loanValidationResponse maps loan field validation errors to a response,
// or returns nil when err is not one of them
func loanValidationResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrClientNameEmpty):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "clientName", Message: "Client name is required"},
		})
	case errors.Is(err, domain.ErrClientNameTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "clientName", Message: "Client name must be 200 characters or less"},
		})
	case errors.Is(err, domain.ErrPrincipalInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "principal", Message: "Principal must be greater than 0"},
		})
	}
	return nil
}

func toLoanResponse(loan *domain.LoanView) LoanResponse {
	return LoanResponse{
		ID:                  loan.ID.String(),
		ClientName:          loan.ClientName,
		Principal:           loan.Principal.StringFixed(2),
		PhotoURL:            loan.PhotoURL,
		Status:              loan.Status,
		CurrentCycle:        loan.CurrentCycle,
		CycleStartDate:      loan.CycleStartDate.Format("2006-01-02"),
		DaysElapsed:         loan.DaysElapsed,
		CurrentInterestRate: loan.CurrentInterestRate.String(),
		CurrentInterest:     loan.CurrentInterest.StringFixed(2),
		TotalOwed:           loan.TotalOwed.StringFixed(2),
		DueDate:             loan.DueDate.Format("2006-01-02"),
		IsOverdue:           loan.IsOverdue,
		DaysUntilDue:        loan.DaysUntilDue,
		CreatedAt:           loan.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           loan.UpdatedAt.Format(time.RFC3339),
	}
}

func toCycleResponse(cycle *domain.Cycle) CycleResponse {
	resp := CycleResponse{
		ID:          cycle.ID.String(),
		LoanID:      cycle.LoanID.String(),
		CycleNumber: cycle.CycleNumber,
		StartDate:   cycle.StartDate.Format("2006-01-02"),
		Status:      cycle.Status,
	}
	if cycle.EndDate != nil {
		endDate := cycle.EndDate.Format("2006-01-02")
		resp.EndDate = &endDate
	}
	return resp
}
