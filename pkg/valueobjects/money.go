package valueobjects

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tripweave/tripweave-core/errors"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	AUD Currency = "AUD"
)

var validCurrencies = map[Currency]bool{
	USD: true,
	EUR: true,
	GBP: true,
	JPY: true,
	AUD: true,
}

const (
	ErrInvalidAmount    = "INVALID_AMOUNT"
	ErrInvalidCurrency  = "INVALID_CURRENCY"
	ErrCurrencyMismatch = "CURRENCY_MISMATCH"
)

// Money is a non-negative monetary value in a single currency. Amounts carry
// at most two decimal places.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney validates and constructs a Money value.
func NewMoney(amount decimal.Decimal, currency Currency) (*Money, error) {
	if !validCurrencies[currency] {
		return nil, errors.ValidationFailed(
			ErrInvalidCurrency,
			fmt.Sprintf("currency %s is not supported", currency),
		)
	}
	if amount.LessThan(decimal.Zero) {
		return nil, errors.ValidationFailed(ErrInvalidAmount, "amount cannot be negative")
	}
	if amount.Exponent() < -2 {
		return nil, errors.ValidationFailed(ErrInvalidAmount, "amount cannot have more than 2 decimal places")
	}

	return &Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses string representations, e.g. ("42.50", "usd").
func NewMoneyFromString(amount string, currency string) (*Money, error) {
	decimalAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.ValidationFailed(ErrInvalidAmount, err.Error())
	}
	return NewMoney(decimalAmount, Currency(strings.ToUpper(currency)))
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.GreaterThan(decimal.Zero) }

// Add sums two values of the same currency.
func (m Money) Add(other Money) (*Money, error) {
	if m.currency != other.currency {
		return nil, errors.ValidationFailed(
			ErrCurrencyMismatch,
			fmt.Sprintf("cannot add %s to %s", other.currency, m.currency),
		)
	}
	return &Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Split divides the value into n parts that sum exactly to the original,
// distributing leftover cents from the front.
func (m Money) Split(n int) ([]*Money, error) {
	if n <= 0 {
		return nil, errors.ValidationFailed(ErrInvalidAmount, "number of parts must be positive")
	}

	totalCents := m.amount.Mul(decimal.NewFromInt(100))
	baseCents := totalCents.Div(decimal.NewFromInt(int64(n))).Floor()
	remainder := totalCents.Sub(baseCents.Mul(decimal.NewFromInt(int64(n))))

	parts := make([]*Money, n)
	for i := 0; i < n; i++ {
		cents := baseCents
		if remainder.GreaterThan(decimal.Zero) {
			cents = cents.Add(decimal.NewFromInt(1))
			remainder = remainder.Sub(decimal.NewFromInt(1))
		}
		parts[i] = &Money{
			amount:   cents.Div(decimal.NewFromInt(100)).Round(2),
			currency: m.currency,
		}
	}
	return parts, nil
}

// Equals reports value equality across amount and currency.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.String(), m.currency)
}
