package lifecycle

import (
	"testing"

	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidate_AmountMustBePositive(t *testing.T) {
	principal := decimal.NewFromInt(1000)
	interestDue := decimal.NewFromInt(100)

	for _, intent := range []Intent{
		Complete{Amount: decimal.Zero},
		InterestOnly{Amount: decimal.NewFromInt(-5)},
		Partial{Amount: decimal.Zero},
	} {
		res := Validate(intent, principal, interestDue)
		assert.False(t, res.Valid)
		assert.Equal(t, domain.RuleAmountPositive, res.Rule)
	}
}

func TestValidate_Complete(t *testing.T) {
	principal := decimal.NewFromInt(100000)
	interestDue := decimal.NewFromInt(10000)

	// Exactly the total owed succeeds
	res := Validate(Complete{Amount: decimal.NewFromInt(110000)}, principal, interestDue)
	assert.True(t, res.Valid)

	// Overpayment is accepted
	res = Validate(Complete{Amount: decimal.NewFromInt(120000)}, principal, interestDue)
	assert.True(t, res.Valid)

	// One unit short fails
	res = Validate(Complete{Amount: decimal.NewFromInt(109999)}, principal, interestDue)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.RuleCompleteCoversOwed, res.Rule)
	assert.Contains(t, res.Reason, "110000.00")
}

func TestValidate_InterestOnlyEpsilon(t *testing.T) {
	principal := decimal.NewFromInt(100000)
	interestDue := decimal.NewFromInt(10000)

	// Exact amount and a one-cent drift either way pass
	assert.True(t, Validate(InterestOnly{Amount: decimal.NewFromInt(10000)}, principal, interestDue).Valid)
	assert.True(t, Validate(InterestOnly{Amount: decimal.NewFromFloat(10000.01)}, principal, interestDue).Valid)
	assert.True(t, Validate(InterestOnly{Amount: decimal.NewFromFloat(9999.99)}, principal, interestDue).Valid)

	// Two cents off fails
	res := Validate(InterestOnly{Amount: decimal.NewFromFloat(10000.02)}, principal, interestDue)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.RuleInterestExact, res.Rule)

	res = Validate(InterestOnly{Amount: decimal.NewFromFloat(9999.98)}, principal, interestDue)
	assert.False(t, res.Valid)
}

func TestValidate_Partial(t *testing.T) {
	principal := decimal.NewFromInt(50000)
	interestDue := decimal.NewFromInt(5000)

	// Anything up to and including the principal passes
	assert.True(t, Validate(Partial{Amount: decimal.NewFromInt(10000)}, principal, interestDue).Valid)
	assert.True(t, Validate(Partial{Amount: decimal.NewFromInt(50000)}, principal, interestDue).Valid)

	// Exceeding the principal fails
	res := Validate(Partial{Amount: decimal.NewFromInt(50001)}, principal, interestDue)
	assert.False(t, res.Valid)
	assert.Equal(t, domain.RulePartialWithinDebt, res.Rule)
	assert.Contains(t, res.Reason, "50000.00")
}

func TestIntentFor(t *testing.T) {
	amount := decimal.NewFromInt(100)

	intent, err := IntentFor(domain.PaymentTypeComplete, amount)
	assert.NoError(t, err)
	assert.IsType(t, Complete{}, intent)

	intent, err = IntentFor(domain.PaymentTypeInterestOnly, amount)
	assert.NoError(t, err)
	assert.IsType(t, InterestOnly{}, intent)

	intent, err = IntentFor(domain.PaymentTypePartial, amount)
	assert.NoError(t, err)
	assert.IsType(t, Partial{}, intent)

	_, err = IntentFor("refund", amount)
	assert.ErrorIs(t, err, domain.ErrPaymentTypeInvalid)
}
