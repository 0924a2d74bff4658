package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rmarquez/prestia/prestia-backend/internal/middleware"
	"github.com/rmarquez/prestia/prestia-backend/internal/service"
	"github.com/rs/zerolog/log"
)

// StatsHandler handles portfolio statistics HTTP requests
type StatsHandler struct {
	statsService *service.StatsService
	loanService  *service.LoanService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(statsService *service.StatsService, loanService *service.LoanService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		loanService:  loanService,
	}
}

// FinancialSummaryResponse represents the workspace summary
type FinancialSummaryResponse struct {
	ActiveLoans       int    `json:"activeLoans"`
	CompletedLoans    int    `json:"completedLoans"`
	OverdueLoans      int    `json:"overdueLoans"`
	TotalPrincipal    string `json:"totalPrincipal"`
	ProjectedInterest string `json:"projectedInterest"`
	TotalOwed         string `json:"totalOwed"`
	CollectedInterest string `json:"collectedInterest"`
	CollectedTotal    string `json:"collectedTotal"`
}

// NotificationResponse represents a loan needing attention
type NotificationResponse struct {
	Kind         string `json:"kind"`
	LoanID       string `json:"loanId"`
	ClientName   string `json:"clientName"`
	TotalOwed    string `json:"totalOwed"`
	DueDate      string `json:"dueDate"`
	DaysUntilDue int    `json:"daysUntilDue"`
}

// GetSummary handles GET /api/v1/stats/summary
func (h *StatsHandler) GetSummary(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	summary, err := h.statsService.GetFinancialSummary(workspaceID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get financial summary")
		return NewInternalError(c, "Failed to get financial summary")
	}

	return c.JSON(http.StatusOK, FinancialSummaryResponse{
		ActiveLoans:       summary.ActiveLoans,
		CompletedLoans:    summary.CompletedLoans,
		OverdueLoans:      summary.OverdueLoans,
		TotalPrincipal:    summary.TotalPrincipal.StringFixed(2),
		ProjectedInterest: summary.ProjectedInterest.StringFixed(2),
		TotalOwed:         summary.TotalOwed.StringFixed(2),
		CollectedInterest: summary.CollectedInterest.StringFixed(2),
		CollectedTotal:    summary.CollectedTotal.StringFixed(2),
	})
}

// GetStatusCounts handles GET /api/v1/stats/status-counts
func (h *StatsHandler) GetStatusCounts(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	counts, err := h.loanService.GetStatusCounts(workspaceID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get status counts")
		return NewInternalError(c, "Failed to get status counts")
	}

	return c.JSON(http.StatusOK, counts)
}

// GetNotifications handles GET /api/v1/notifications
func (h *StatsHandler) GetNotifications(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	withinDays := 0
	if raw := c.QueryParam("withinDays"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return NewValidationError(c, "Invalid withinDays", []ValidationError{
				{Field: "withinDays", Message: "Must be an integer"},
			})
		}
		withinDays = parsed
	}

	notifications, err := h.statsService.GetNotifications(workspaceID, withinDays)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get notifications")
		return NewInternalError(c, "Failed to get notifications")
	}

	response := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		response[i] = NotificationResponse{
			Kind:         n.Kind,
			LoanID:       n.LoanID.String(),
			ClientName:   n.ClientName,
			TotalOwed:    n.TotalOwed.StringFixed(2),
			DueDate:      n.DueDate.Format("2006-01-02"),
			DaysUntilDue: n.DaysUntilDue,
		}
	}
	return c.JSON(http.StatusOK, response)
}

// Healthz handles GET /healthz
func Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
