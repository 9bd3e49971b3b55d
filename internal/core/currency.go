package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	USD Currency = "USD"
	JPY Currency = "JPY"
)

// Currency is an ISO currency code. Only USD and JPY are supported.
type Currency string

var (
	usdToJPY = decimal.RequireFromString("151.67")
	jpyToUSD = decimal.NewFromInt(1).DivRound(usdToJPY, 28)
)

// ParseCurrency accepts a currency code in any case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Supported() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

func (c Currency) Supported() bool {
	return c == USD || c == JPY
}

// Or returns c, or fallback when c is empty.
func (c Currency) Or(fallback Currency) Currency {
	if c == "" {
		return fallback
	}
	return c
}

// FractionDigits is the number of minor-unit digits shown for the currency.
func (c Currency) FractionDigits() int32 {
	if c == JPY {
		return 0
	}
	return 2
}

// Convert converts amount between currencies using the fixed USD/JPY rate.
// Pairs outside USD/JPY are returned unconverted.
func Convert(amount decimal.Decimal, from, to Currency) decimal.Decimal {
	if from == to {
		return amount
	}
	switch {
	case from == USD && to == JPY:
		return amount.Mul(usdToJPY)
	case from == JPY && to == USD:
		return amount.Mul(jpyToUSD)
	}
	return amount
}

func (c *Currency) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("currency: %w", err)
	}
	*c = Currency(strings.ToUpper(s))
	return nil
}
