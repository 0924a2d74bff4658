package interest

import (
	"time"

	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// The calculator is a set of pure functions: no I/O, no failure modes. All
// date arithmetic uses local calendar dates (the date portion only), so a
// timestamp's time-of-day or zone offset can never shift a day count.

// localDate truncates a timestamp to its calendar date at UTC midnight.
func localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysElapsed returns the number of calendar days between the cycle start
// and now, clamped to zero when now precedes the start.
func DaysElapsed(cycleStart, now time.Time) int {
	days := int(localDate(now).Sub(localDate(cycleStart)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DueDate returns the end of the on-time period: the same calendar day
// CycleMonths later, clamped to the last valid day of the target month
// (a cycle starting Jan 31 is due Feb 28/29, never Mar 2-3).
func (p Policy) DueDate(cycleStart time.Time) time.Time {
	y, m, d := localDate(cycleStart).Date()

	target := time.Month(int(m) + p.CycleMonths)
	// Day 0 of the month after the target month is the target month's last day.
	lastDay := time.Date(y, target+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, target, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntilDue returns the calendar-day distance from now to the due date;
// negative once the due date has passed.
func (p Policy) DaysUntilDue(cycleStart, now time.Time) int {
	return int(p.DueDate(cycleStart).Sub(localDate(now)).Hours() / 24)
}

// InterestAmount computes simple interest for the elapsed days, always
// against the principal of the current cycle, never against accrued
// interest.
func (p Policy) InterestAmount(principal decimal.Decimal, daysElapsed int) decimal.Decimal {
	return principal.Mul(p.RateFor(daysElapsed)).Round(2)
}

// ProjectedInterest is the interest a principal earns if settled within the
// on-time band, used for portfolio statistics.
func (p Policy) ProjectedInterest(principal decimal.Decimal) decimal.Decimal {
	return principal.Mul(p.BaseRate).Round(2)
}

// Enrich produces the full derived view of a loan in a single pass. The
// outputs agree by construction: TotalOwed = Principal + CurrentInterest and
// IsOverdue mirrors the sign of DaysUntilDue.
func (p Policy) Enrich(loan *domain.Loan, now time.Time) *domain.LoanView {
	days := DaysElapsed(loan.CycleStartDate, now)
	rate := p.RateFor(days)
	interestAmt := p.InterestAmount(loan.Principal, days)
	daysUntilDue := p.DaysUntilDue(loan.CycleStartDate, now)

	return &domain.LoanView{
		Loan:                *loan,
		DaysElapsed:         days,
		CurrentInterestRate: rate,
		CurrentInterest:     interestAmt,
		TotalOwed:           loan.Principal.Add(interestAmt),
		DueDate:             p.DueDate(loan.CycleStartDate),
		IsOverdue:           daysUntilDue < 0,
		DaysUntilDue:        daysUntilDue,
	}
}
