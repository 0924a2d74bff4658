package interest

import "github.com/shopspring/decimal"

// Policy fixes the interest rule for a billing cycle: a day-count threshold
// splits the cycle into an on-time band and a penalty band, and the due date
// is a fixed calendar offset from the cycle start. The threshold and rates
// are configuration constants, never derived from loan data.
//
// The rule is deliberately held in one place: swapping the threshold, the
// rates or the cycle length must not touch any call site.
type Policy struct {
	// ThresholdDays is the last elapsed day that still earns BaseRate.
	// Day ThresholdDays+1 onward earns LateRate.
	ThresholdDays int
	BaseRate      decimal.Decimal
	LateRate      decimal.Decimal
	// CycleMonths is the calendar-month offset from cycle start to due date.
	CycleMonths int
}

// DefaultPolicy: 10% through day 14, 15% from day 15, due on the same
// calendar day of the next month (clamped for shorter months).
var DefaultPolicy = Policy{
	ThresholdDays: 14,
	BaseRate:      decimal.NewFromFloat(0.10),
	LateRate:      decimal.NewFromFloat(0.15),
	CycleMonths:   1,
}

// RateFor returns the rate applicable after the given number of elapsed
// days. The threshold day itself is still on time.
func (p Policy) RateFor(daysElapsed int) decimal.Decimal {
	if daysElapsed <= p.ThresholdDays {
		return p.BaseRate
	}
	return p.LateRate
}
