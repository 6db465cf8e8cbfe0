package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in the smallest currency unit. The engine is single-currency,
// so arithmetic is plain integer arithmetic and never goes through floating point.
type Money int64

// Decimal returns m as a decimal for fractional math (ratios, percentages).
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool { return m > 0 }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m < 0 }

func (m Money) String() string {
	return fmt.Sprintf("%d", int64(m))
}

// MaxMoney is the largest amount the engine accepts on input. It sits far
// below int64 overflow so sums of many amounts stay representable.
const MaxMoney Money = 1 << 53

// NewMoney converts a raw amount, rejecting values outside ±MaxMoney.
func NewMoney(amount int64) (Money, error) {
	if amount > int64(MaxMoney) || amount < -int64(MaxMoney) {
		return 0, fmt.Errorf("amount %d is out of range", amount)
	}
	return Money(amount), nil
}

// MoneyFromDecimal converts an integral decimal into Money. A value with a
// fractional part is rejected since Money cannot represent sub-unit amounts.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.IsInteger() {
		return 0, fmt.Errorf("amount %s is not a whole number of minor units", d.String())
	}
	if d.GreaterThan(MaxMoney.Decimal()) || d.LessThan(MaxMoney.Decimal().Neg()) {
		return 0, fmt.Errorf("amount %s is out of range", d.String())
	}
	return Money(d.IntPart()), nil
}

// Plus returns m+o, saturating at the int64 bounds instead of wrapping.
// A saturated total still compares greater than any real budget.
func (m Money) Plus(o Money) Money {
	sum := m + o
	switch {
	case o > 0 && sum < m:
		return Money(math.MaxInt64)
	case o < 0 && sum > m:
		return Money(math.MinInt64)
	}
	return sum
}

// SumMoney adds all amounts with Plus.
func SumMoney(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total = total.Plus(a)
	}
	return total
}
