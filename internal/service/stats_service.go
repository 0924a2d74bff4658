package service

import (
	"sort"
	"time"

	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/rmarquez/prestia/prestia-backend/internal/interest"
	"github.com/shopspring/decimal"
)

// defaultDueSoonDays is the notification lookahead window
const defaultDueSoonDays = 3

// StatsService computes portfolio-level figures for a workspace
type StatsService struct {
	loanRepo    domain.LoanRepository
	paymentRepo domain.PaymentRepository
	policy      interest.Policy
	now         func() time.Time
}

// NewStatsService creates a new StatsService
func NewStatsService(loanRepo domain.LoanRepository, paymentRepo domain.PaymentRepository, policy interest.Policy) *StatsService {
	return &StatsService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		policy:      policy,
		now:         time.Now,
	}
}

// GetFinancialSummary aggregates the lending position of a workspace:
// outstanding principal, interest accruing right now, and what has been
// collected so far.
func (s *StatsService) GetFinancialSummary(workspaceID int32) (*domain.FinancialSummary, error) {
	loans, err := s.loanRepo.GetAllByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}

	summary := &domain.FinancialSummary{
		TotalPrincipal:    decimal.Zero,
		ProjectedInterest: decimal.Zero,
		TotalOwed:         decimal.Zero,
	}

	now := s.now()
	for _, loan := range loans {
		if loan.Status == domain.LoanStatusCompleted {
			summary.CompletedLoans++
			continue
		}

		view := s.policy.Enrich(loan, now)
		summary.ActiveLoans++
		if view.IsOverdue {
			summary.OverdueLoans++
		}
		summary.TotalPrincipal = summary.TotalPrincipal.Add(view.Principal)
		summary.ProjectedInterest = summary.ProjectedInterest.Add(view.CurrentInterest)
		summary.TotalOwed = summary.TotalOwed.Add(view.TotalOwed)
	}

	interestCollected, err := s.paymentRepo.SumAmountByType(workspaceID, domain.PaymentTypeInterestOnly)
	if err != nil {
		return nil, err
	}
	summary.CollectedInterest = interestCollected

	collectedTotal := interestCollected
	for _, paymentType := range []string{domain.PaymentTypeComplete, domain.PaymentTypePartial} {
		sum, err := s.paymentRepo.SumAmountByType(workspaceID, paymentType)
		if err != nil {
			return nil, err
		}
		collectedTotal = collectedTotal.Add(sum)
	}
	summary.CollectedTotal = collectedTotal

	return summary, nil
}

// GetNotifications lists loans due within the lookahead window or already
// overdue, most urgent first.
func (s *StatsService) GetNotifications(workspaceID int32, withinDays int) ([]*domain.Notification, error) {
	if withinDays <= 0 {
		withinDays = defaultDueSoonDays
	}

	loans, err := s.loanRepo.GetByStatus(workspaceID, domain.LoanStatusActive)
	if err != nil {
		return nil, err
	}

	notifications := []*domain.Notification{}
	now := s.now()
	for _, loan := range loans {
		view := s.policy.Enrich(loan, now)

		var kind string
		switch {
		case view.IsOverdue:
			kind = domain.NotificationOverdue
		case view.DaysUntilDue <= withinDays:
			kind = domain.NotificationDueSoon
		default:
			continue
		}

		notifications = append(notifications, &domain.Notification{
			Kind:         kind,
			LoanID:       view.ID,
			ClientName:   view.ClientName,
			TotalOwed:    view.TotalOwed,
			DueDate:      view.DueDate,
			DaysUntilDue: view.DaysUntilDue,
		})
	}

	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].DaysUntilDue < notifications[j].DaysUntilDue
	})
	return notifications, nil
}
