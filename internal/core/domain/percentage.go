package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percentage is an exact decimal value in [0, 100].
type Percentage struct {
	value decimal.Decimal
}

// NewPercentage validates d and wraps it.
func NewPercentage(d decimal.Decimal) (Percentage, error) {
	if d.IsNegative() || d.GreaterThan(hundred) {
		return Percentage{}, fmt.Errorf("percentage %s out of range [0, 100]", d.String())
	}
	return Percentage{value: d}, nil
}

// ParsePercentage parses a decimal string such as "12.5".
func ParsePercentage(s string) (Percentage, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Percentage{}, fmt.Errorf("invalid percentage %q: %w", s, err)
	}
	return NewPercentage(d)
}

// MustPercentage is ParsePercentage for constants; it panics on invalid input.
func MustPercentage(s string) Percentage {
	p, err := ParsePercentage(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Decimal returns the underlying value.
func (p Percentage) Decimal() decimal.Decimal { return p.value }

// Add returns p+o without range checking; used for summing split components.
func (p Percentage) Add(o Percentage) decimal.Decimal { return p.value.Add(o.value) }

// Of returns the exact (unrounded) share of m represented by p. Shifting
// instead of dividing keeps every digit, so rounding sees the true remainder.
func (p Percentage) Of(m Money) decimal.Decimal {
	return m.Decimal().Mul(p.value).Shift(-2)
}

// Equal compares two percentages numerically.
func (p Percentage) Equal(o Percentage) bool { return p.value.Equal(o.value) }

func (p Percentage) String() string { return p.value.String() }

// MarshalJSON encodes the percentage as a decimal string.
func (p Percentage) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value.String())
}

// UnmarshalJSON accepts either a JSON string or number.
func (p *Percentage) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	parsed, err := NewPercentage(d)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// RatioPercent returns part/whole*100 rounded to 4 places; zero when whole is zero.
func RatioPercent(part, whole Money) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return part.Decimal().Mul(hundred).Div(whole.Decimal()).Round(4)
}
