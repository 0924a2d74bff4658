package lifecycle

import (
	"fmt"

	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// interestEpsilon is the tolerance for interest-only payments: amounts are
// entered by hand, so a rounding cent either way is accepted.
var interestEpsilon = decimal.NewFromFloat(0.01)

// Result is the outcome of a payment validation pass.
type Result struct {
	Valid  bool   `json:"valid"`
	Rule   string `json:"rule,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func invalid(rule, reason string) Result {
	return Result{Valid: false, Rule: rule, Reason: reason}
}

// Validate checks a payment amount against the rule for its declared type.
// It is a pure predicate: callable before submission for UI feedback and
// re-checked at commit time against the freshly enriched loan. Never panics.
func Validate(intent Intent, principal, currentInterest decimal.Decimal) Result {
	amount := intent.amount()

	if amount.LessThanOrEqual(decimal.Zero) {
		return invalid(domain.RuleAmountPositive, "payment amount must be greater than 0")
	}

	switch intent.(type) {
	case Complete:
		totalOwed := principal.Add(currentInterest)
		if amount.LessThan(totalOwed) {
			return invalid(domain.RuleCompleteCoversOwed,
				fmt.Sprintf("a complete payment must be at least %s", totalOwed.StringFixed(2)))
		}
	case InterestOnly:
		if amount.Sub(currentInterest).Abs().GreaterThan(interestEpsilon) {
			return invalid(domain.RuleInterestExact,
				fmt.Sprintf("an interest-only payment must equal the current interest of %s", currentInterest.StringFixed(2)))
		}
	case Partial:
		if amount.GreaterThan(principal) {
			return invalid(domain.RulePartialWithinDebt,
				fmt.Sprintf("a partial payment cannot exceed the principal of %s", principal.StringFixed(2)))
		}
	}

	return Result{Valid: true}
}
