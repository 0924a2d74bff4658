package interest

import (
	"testing"
	"time"

	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysElapsed_Basic(t *testing.T) {
	start := date(2026, 1, 13)
	now := date(2026, 1, 27)

	if got := DaysElapsed(start, now); got != 14 {
		t.Errorf("Expected 14 days, got %d", got)
	}
}

func TestDaysElapsed_IgnoresTimeOfDay(t *testing.T) {
	// A late-evening timestamp with a zone offset must not shift the count
	start := time.Date(2026, 1, 13, 23, 59, 0, 0, time.FixedZone("UTC-5", -5*3600))
	now := time.Date(2026, 1, 14, 0, 1, 0, 0, time.FixedZone("UTC-5", -5*3600))

	if got := DaysElapsed(start, now); got != 1 {
		t.Errorf("Expected 1 day, got %d", got)
	}
}

func TestDaysElapsed_ClampsNegative(t *testing.T) {
	start := date(2026, 3, 10)
	now := date(2026, 3, 5)

	if got := DaysElapsed(start, now); got != 0 {
		t.Errorf("Expected 0 for now before start, got %d", got)
	}
}

func TestRateFor_ThresholdBoundary(t *testing.T) {
	p := DefaultPolicy

	// Day 14 is still on time, day 15 is penalized
	if got := p.RateFor(14); !got.Equal(p.BaseRate) {
		t.Errorf("Day 14: expected base rate %s, got %s", p.BaseRate, got)
	}
	if got := p.RateFor(15); !got.Equal(p.LateRate) {
		t.Errorf("Day 15: expected late rate %s, got %s", p.LateRate, got)
	}
	if got := p.RateFor(0); !got.Equal(p.BaseRate) {
		t.Errorf("Day 0: expected base rate %s, got %s", p.BaseRate, got)
	}
}

func TestDueDate_SameDayNextMonth(t *testing.T) {
	got := DefaultPolicy.DueDate(date(2026, 1, 14))
	want := date(2026, 2, 14)

	if !got.Equal(want) {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestDueDate_ClampsToShorterMonth(t *testing.T) {
	cases := []struct {
		start time.Time
		want  time.Time
	}{
		{date(2026, 1, 31), date(2026, 2, 28)}, // non-leap February
		{date(2024, 1, 31), date(2024, 2, 29)}, // leap February
		{date(2026, 3, 31), date(2026, 4, 30)},
		{date(2026, 5, 31), date(2026, 6, 30)},
	}

	for _, c := range cases {
		if got := DefaultPolicy.DueDate(c.start); !got.Equal(c.want) {
			t.Errorf("Start %s: expected %s, got %s", c.start, c.want, got)
		}
	}
}

func TestDueDate_YearWrap(t *testing.T) {
	got := DefaultPolicy.DueDate(date(2025, 12, 15))
	want := date(2026, 1, 15)

	if !got.Equal(want) {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestInterestAmount_Scenario(t *testing.T) {
	// 100000 at day 14 -> 10%, at day 15 -> 15%
	principal := decimal.NewFromInt(100000)

	if got := DefaultPolicy.InterestAmount(principal, 14); !got.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Day 14: expected 10000, got %s", got)
	}
	if got := DefaultPolicy.InterestAmount(principal, 15); !got.Equal(decimal.NewFromInt(15000)) {
		t.Errorf("Day 15: expected 15000, got %s", got)
	}
}

func TestEnrich_OnTimeLoan(t *testing.T) {
	loan := &domain.Loan{
		Principal:      decimal.NewFromInt(100000),
		Status:         domain.LoanStatusActive,
		CycleStartDate: date(2026, 1, 1),
	}

	view := DefaultPolicy.Enrich(loan, date(2026, 1, 15))

	if view.DaysElapsed != 14 {
		t.Errorf("Expected 14 days elapsed, got %d", view.DaysElapsed)
	}
	if !view.CurrentInterestRate.Equal(decimal.NewFromFloat(0.10)) {
		t.Errorf("Expected rate 0.10, got %s", view.CurrentInterestRate)
	}
	if !view.CurrentInterest.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected interest 10000, got %s", view.CurrentInterest)
	}
	if !view.TotalOwed.Equal(decimal.NewFromInt(110000)) {
		t.Errorf("Expected total 110000, got %s", view.TotalOwed)
	}
	if view.IsOverdue {
		t.Error("Loan should not be overdue on day 14")
	}
	if view.DaysUntilDue != 17 {
		t.Errorf("Expected 17 days until due (Feb 1), got %d", view.DaysUntilDue)
	}
}

func TestEnrich_OverdueLoan(t *testing.T) {
	loan := &domain.Loan{
		Principal:      decimal.NewFromInt(100000),
		Status:         domain.LoanStatusActive,
		CycleStartDate: date(2026, 1, 1),
	}

	view := DefaultPolicy.Enrich(loan, date(2026, 2, 3))

	if !view.CurrentInterestRate.Equal(decimal.NewFromFloat(0.15)) {
		t.Errorf("Expected late rate 0.15, got %s", view.CurrentInterestRate)
	}
	if !view.TotalOwed.Equal(decimal.NewFromInt(115000)) {
		t.Errorf("Expected total 115000, got %s", view.TotalOwed)
	}
	if !view.IsOverdue {
		t.Error("Loan past Feb 1 due date should be overdue")
	}
	if view.DaysUntilDue != -2 {
		t.Errorf("Expected -2 days until due, got %d", view.DaysUntilDue)
	}
}

func TestEnrich_Identities(t *testing.T) {
	loan := &domain.Loan{
		Principal:      decimal.NewFromFloat(12345.67),
		Status:         domain.LoanStatusActive,
		CycleStartDate: date(2026, 1, 20),
	}

	for _, now := range []time.Time{
		date(2026, 1, 20), date(2026, 2, 3), date(2026, 2, 20), date(2026, 3, 15),
	} {
		view := DefaultPolicy.Enrich(loan, now)

		if !view.TotalOwed.Equal(view.Principal.Add(view.CurrentInterest)) {
			t.Errorf("At %s: totalOwed %s != principal + interest", now, view.TotalOwed)
		}
		if view.IsOverdue != (view.DaysUntilDue < 0) {
			t.Errorf("At %s: isOverdue %v disagrees with daysUntilDue %d", now, view.IsOverdue, view.DaysUntilDue)
		}
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	loan := &domain.Loan{
		Principal:      decimal.NewFromInt(50000),
		Status:         domain.LoanStatusActive,
		CycleStartDate: date(2026, 1, 5),
	}
	now := date(2026, 1, 25)

	a := DefaultPolicy.Enrich(loan, now)
	b := DefaultPolicy.Enrich(loan, now)

	if a.DaysElapsed != b.DaysElapsed || !a.TotalOwed.Equal(b.TotalOwed) ||
		!a.DueDate.Equal(b.DueDate) || a.DaysUntilDue != b.DaysUntilDue ||
		a.IsOverdue != b.IsOverdue || !a.CurrentInterest.Equal(b.CurrentInterest) {
		t.Error("Enrich with identical inputs must yield identical output")
	}
}

func TestRateFor_CustomPolicy(t *testing.T) {
	// The rule is swappable without touching call sites
	p := Policy{
		ThresholdDays: 28,
		BaseRate:      decimal.NewFromFloat(0.05),
		LateRate:      decimal.NewFromFloat(0.20),
		CycleMonths:   1,
	}

	if got := p.RateFor(28); !got.Equal(decimal.NewFromFloat(0.05)) {
		t.Errorf("Expected 0.05 at day 28, got %s", got)
	}
	if got := p.RateFor(29); !got.Equal(decimal.NewFromFloat(0.20)) {
		t.Errorf("Expected 0.20 at day 29, got %s", got)
	}
}
