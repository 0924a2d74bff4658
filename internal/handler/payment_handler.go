package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/middleware"
	"github.com/rmarquez/prestia/prestia-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RecordPaymentRequest represents the record payment request body
type RecordPaymentRequest struct {
	PaymentType string  `json:"paymentType"`
	Amount      string  `json:"amount"`
	PhotoURL    *string `json:"photoUrl,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// ValidatePaymentRequest represents the payment validation request body
type ValidatePaymentRequest struct {
	PaymentType string `json:"paymentType"`
	Amount      string `json:"amount"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID          string  `json:"id"`
	LoanID      string  `json:"loanId"`
	CycleID     string  `json:"cycleId"`
	Amount      string  `json:"amount"`
	PaymentType string  `json:"paymentType"`
	PaymentDate string  `json:"paymentDate"`
	PhotoURL    *string `json:"photoUrl,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// RecordPaymentResponse represents the result of recording a payment
type RecordPaymentResponse struct {
	Payment       PaymentResponse `json:"payment"`
	Loan          LoanResponse    `json:"loan"`
	NewCycle      *CycleResponse  `json:"newCycle,omitempty"`
	LoanCompleted bool            `json:"loanCompleted"`
}

// PaymentStatsResponse represents aggregated payments of one loan
type PaymentStatsResponse struct {
	TotalPayments    int    `json:"totalPayments"`
	TotalAmount      string `json:"totalAmount"`
	InterestPayments int    `json:"interestPayments"`
	InterestAmount   string `json:"interestAmount"`
	PartialPayments  int    `json:"partialPayments"`
	PartialAmount    string `json:"partialAmount"`
}

// RecordPayment handles POST /api/v1/loans/:id/payments
func (h *PaymentHandler) RecordPayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req RecordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	result, err := h.paymentService.RecordPayment(workspaceID, loanID, req.PaymentType, amount, req.PhotoURL, req.Notes)
	if err != nil {
		return paymentErrorResponse(c, workspaceID, loanID, err)
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Str("loan_id", loanID.String()).
		Str("payment_type", req.PaymentType).
		Str("amount", amount.StringFixed(2)).
		Bool("loan_completed", result.LoanCompleted).
		Msg("Payment recorded")

	response := RecordPaymentResponse{
		Payment:       toPaymentResponse(result.Payment),
		Loan:          toLoanResponse(result.Loan),
		LoanCompleted: result.LoanCompleted,
	}
	if result.NewCycle != nil {
		newCycle := toCycleResponse(result.NewCycle)
		response.NewCycle = &newCycle
	}
	return c.JSON(http.StatusCreated, response)
}

// ValidatePayment handles POST /api/v1/loans/:id/payments/validate. It
// reports whether the amount would be accepted, without recording anything.
func (h *PaymentHandler) ValidatePayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	var req ValidatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	result, err := h.paymentService.ValidatePayment(workspaceID, loanID, req.PaymentType, amount)
	if err != nil {
		return paymentErrorResponse(c, workspaceID, loanID, err)
	}

	return c.JSON(http.StatusOK, result)
}

// GetPaymentsByLoan handles GET /api/v1/loans/:id/payments
func (h *PaymentHandler) GetPaymentsByLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	payments, err := h.paymentService.GetPaymentsByLoanID(workspaceID, loanID)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", loanID.String()).Msg("Failed to get payments")
		return NewInternalError(c, "Failed to get payments")
	}

	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// GetPaymentStats handles GET /api/v1/loans/:id/payments/stats
func (h *PaymentHandler) GetPaymentStats(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	loanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid loan ID", nil)
	}

	stats, err := h.paymentService.GetPaymentStats(workspaceID, loanID)
	if err != nil {
		if errors.Is(err, domain.ErrLoanNotFound) {
			return NewNotFoundError(c, "Loan not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", loanID.String()).Msg("Failed to get payment stats")
		return NewInternalError(c, "Failed to get payment stats")
	}

	return c.JSON(http.StatusOK, PaymentStatsResponse{
		TotalPayments:    stats.TotalPayments,
		TotalAmount:      stats.TotalAmount.StringFixed(2),
		InterestPayments: stats.InterestPayments,
		InterestAmount:   stats.InterestAmount.StringFixed(2),
		PartialPayments:  stats.PartialPayments,
		PartialAmount:    stats.PartialAmount.StringFixed(2),
	})
}

// GetRecentPayments handles GET /api/v1/payments/recent
func (h *PaymentHandler) GetRecentPayments(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return NewValidationError(c, "Invalid limit", []ValidationError{
				{Field: "limit", Message: "Must be an integer"},
			})
		}
		limit = parsed
	}

	payments, err := h.paymentService.GetRecentPayments(workspaceID, limit)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get recent payments")
		return NewInternalError(c, "Failed to get recent payments")
	}

	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// GetPaymentsByCycle handles GET /api/v1/cycles/:id/payments
func (h *PaymentHandler) GetPaymentsByCycle(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	cycleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid cycle ID", nil)
	}

	payments, err := h.paymentService.GetPaymentsByCycleID(workspaceID, cycleID)
	if err != nil {
		if errors.Is(err, domain.ErrCycleNotFound) {
			return NewNotFoundError(c, "Cycle not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("cycle_id", cycleID.String()).Msg("Failed to get payments")
		return NewInternalError(c, "Failed to get payments")
	}

	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// paymentErrorResponse maps payment domain errors to HTTP responses
func paymentErrorResponse(c echo.Context, workspaceID int32, loanID uuid.UUID, err error) error {
	var verr domain.PaymentValidationError
	var inv domain.ErrNoActiveCycle

	switch {
	case errors.Is(err, domain.ErrLoanNotFound):
		return NewNotFoundError(c, "Loan not found")
	case errors.Is(err, domain.ErrLoanNotActive):
		return NewConflictError(c, "Loan is not active")
	case errors.Is(err, domain.ErrPaymentTypeInvalid):
		return NewValidationError(c, "Invalid payment type", []ValidationError{
			{Field: "paymentType", Message: "Must be one of: complete, interest_only, partial"},
		})
	case errors.As(err, &verr):
		return NewPaymentRuleError(c, verr.Rule, verr.Reason)
	case errors.As(err, &inv):
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", loanID.String()).Msg("Lifecycle invariant violated")
		return NewInvariantError(c, err.Error())
	}

	log.Error().Err(err).Int32("workspace_id", workspaceID).Str("loan_id", loanID.String()).Msg("Payment operation failed")
	return NewInternalError(c, "Payment operation failed")
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          payment.ID.String(),
		LoanID:      payment.LoanID.String(),
		CycleID:     payment.CycleID.String(),
		Amount:      payment.Amount.StringFixed(2),
		PaymentType: payment.PaymentType,
		PaymentDate: payment.PaymentDate.Format(time.RFC3339),
		PhotoURL:    payment.PhotoURL,
		Notes:       payment.Notes,
	}
}

func toPaymentResponses(payments []*domain.Payment) []PaymentResponse {
	response := make([]PaymentResponse, len(payments))
	for i, payment := range payments {
		response[i] = toPaymentResponse(payment)
	}
	return response
}
