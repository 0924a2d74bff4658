package lifecycle

import (
	"github.com/rmarquez/prestia/prestia-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// Intent is a sealed union over the three payment kinds. Matching on it is
// exhaustive: no code path can see a fourth kind.
type Intent interface {
	PaymentType() string
	amount() decimal.Decimal
	isIntent()
}

// Complete settles the loan: principal plus current interest, or more.
type Complete struct {
	Amount decimal.Decimal
}

// InterestOnly pays exactly the current interest and renews the cycle.
type InterestOnly struct {
	Amount decimal.Decimal
}

// Partial pays down part of the principal without touching interest.
type Partial struct {
	Amount decimal.Decimal
}

func (Complete) PaymentType() string     { return domain.PaymentTypeComplete }
func (InterestOnly) PaymentType() string { return domain.PaymentTypeInterestOnly }
func (Partial) PaymentType() string      { return domain.PaymentTypePartial }

func (i Complete) amount() decimal.Decimal     { return i.Amount }
func (i InterestOnly) amount() decimal.Decimal { return i.Amount }
func (i Partial) amount() decimal.Decimal      { return i.Amount }

func (Complete) isIntent()     {}
func (InterestOnly) isIntent() {}
func (Partial) isIntent()      {}

// IntentFor builds an Intent from a wire-level payment type string.
func IntentFor(paymentType string, amount decimal.Decimal) (Intent, error) {
	switch paymentType {
	case domain.PaymentTypeComplete:
		return Complete{Amount: amount}, nil
	case domain.PaymentTypeInterestOnly:
		return InterestOnly{Amount: amount}, nil
	case domain.PaymentTypePartial:
		return Partial{Amount: amount}, nil
	default:
		return nil, domain.ErrPaymentTypeInvalid
	}
}
