package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinancialSummary aggregates the lending position of a workspace. All
// derived figures are computed against the time of the request.
type FinancialSummary struct {
	ActiveLoans       int             `json:"activeLoans"`
	CompletedLoans    int             `json:"completedLoans"`
	OverdueLoans      int             `json:"overdueLoans"`
	TotalPrincipal    decimal.Decimal `json:"totalPrincipal"`
	ProjectedInterest decimal.Decimal `json:"projectedInterest"`
	TotalOwed         decimal.Decimal `json:"totalOwed"`
	CollectedInterest decimal.Decimal `json:"collectedInterest"`
	CollectedTotal    decimal.Decimal `json:"collectedTotal"`
}

// Notification kinds
const (
	NotificationDueSoon = "due_soon"
	NotificationOverdue = "overdue"
)

// Notification flags a loan needing attention: due within the lookahead
// window or already past due.
type Notification struct {
	Kind         string          `json:"kind"`
	LoanID       uuid.UUID       `json:"loanId"`
	ClientName   string          `json:"clientName"`
	TotalOwed    decimal.Decimal `json:"totalOwed"`
	DueDate      time.Time       `json:"dueDate"`
	DaysUntilDue int             `json:"daysUntilDue"`
}
