package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Converter converts amounts between currencies using TWD-quoted rates.
// Cross rates go through TWD: amount * rate[from] / rate[to].
type Converter struct {
	rates map[string]decimal.Decimal
}

// NewConverter builds a converter from a currency -> TWD-per-unit map.
func NewConverter(rates map[string]float64) *Converter {
	m := make(map[string]decimal.Decimal, len(rates)+1)
	for code, r := range rates {
		m[code] = decimal.NewFromFloat(r)
	}
	m[BaseCurrency] = decimal.NewFromInt(1)
	return &Converter{rates: m}
}

// Rate returns how many units of `to` one unit of `from` buys.
func (c *Converter) Rate(from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	fromRate, ok := c.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, from)
	}
	toRate, ok := c.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	// Division guard: a zero quote converts to zero.
	if toRate.IsZero() {
		return decimal.Zero, nil
	}
	return fromRate.Div(toRate), nil
}

// Convert converts amount from one currency into another.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	rate, err := c.Rate(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
