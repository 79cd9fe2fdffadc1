package valueobjects

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		currency Currency
		wantErr  bool
	}{
		{"valid amount", decimal.NewFromFloat(42.50), USD, false},
		{"zero amount", decimal.Zero, EUR, false},
		{"negative amount", decimal.NewFromFloat(-1), USD, true},
		{"too many decimal places", decimal.NewFromFloat(1.999), USD, true},
		{"unsupported currency", decimal.NewFromInt(10), Currency("XYZ"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoney(tt.amount, tt.currency)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, m.Amount().Equal(tt.amount))
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyFromString("19.99", "usd")
	require.NoError(t, err)
	assert.Equal(t, USD, m.Currency())
	assert.Equal(t, "19.99 USD", m.String())

	_, err = NewMoneyFromString("not-a-number", "USD")
	assert.Error(t, err)
}

func TestMoney_Add(t *testing.T) {
	a, err := NewMoneyFromString("10.25", "EUR")
	require.NoError(t, err)
	b, err := NewMoneyFromString("4.75", "EUR")
	require.NoError(t, err)

	sum, err := a.Add(*b)
	require.NoError(t, err)
	assert.Equal(t, "15 EUR", sum.String())

	other, err := NewMoneyFromString("1.00", "GBP")
	require.NoError(t, err)
	_, err = a.Add(*other)
	assert.Error(t, err)
}

func TestMoney_Split(t *testing.T) {
	m, err := NewMoneyFromString("100.00", "USD")
	require.NoError(t, err)

	parts, err := m.Split(3)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	// Parts must sum back to the original, extra cents at the front.
	total := decimal.Zero
	for _, p := range parts {
		total = total.Add(p.Amount())
	}
	assert.True(t, total.Equal(m.Amount()))
	assert.True(t, parts[0].Amount().GreaterThanOrEqual(parts[2].Amount()))

	_, err = m.Split(0)
	assert.Error(t, err)
}

func TestMoney_Equals(t *testing.T) {
	a, err := NewMoneyFromString("5.00", "USD")
	require.NoError(t, err)
	b, err := NewMoneyFromString("5", "USD")
	require.NoError(t, err)
	c, err := NewMoneyFromString("5.00", "EUR")
	require.NoError(t, err)

	assert.True(t, a.Equals(*b))
	assert.False(t, a.Equals(*c))
}
