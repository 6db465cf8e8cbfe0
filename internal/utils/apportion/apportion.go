// Package apportion holds the exact integer rounding rules used to split money.
package apportion

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrNoWeight is returned when the weights sum to zero.
var ErrNoWeight = errors.New("apportion: total weight must be positive")

// RoundHalfEven rounds d to the nearest integer, ties to even.
func RoundHalfEven(d decimal.Decimal) int64 {
	return d.RoundBank(0).IntPart()
}

// Share is one claimant's weight in an apportionment.
type Share struct {
	Key    string
	Weight int64
}

// Allocation is the integer amount given to one claimant.
type Allocation struct {
	Key    string
	Amount int64
	// Fraction is Weight/sum(Weight), unrounded.
	Fraction decimal.Decimal
}

// LargestRemainder splits total across shares in proportion to their weights so
// that the allocations sum to exactly total. Every share first receives the floor
// of its exact quota; the units left over go one each to the shares with the
// largest fractional remainders, ties broken by ascending key. The result is in
// the order of the input.
func LargestRemainder(total int64, shares []Share) ([]Allocation, error) {
	if total < 0 {
		return nil, fmt.Errorf("apportion: negative total %d", total)
	}
	var weightSum int64
	for _, s := range shares {
		if s.Weight < 0 {
			return nil, fmt.Errorf("apportion: negative weight for %s", s.Key)
		}
		weightSum += s.Weight
	}
	if weightSum <= 0 {
		return nil, ErrNoWeight
	}

	sumDec := decimal.NewFromInt(weightSum)
	totalDec := decimal.NewFromInt(total)
	out := make([]Allocation, len(shares))
	remainders := make([]decimal.Decimal, len(shares))
	var floored int64
	for i, s := range shares {
		w := decimal.NewFromInt(s.Weight)
		q, r := totalDec.Mul(w).QuoRem(sumDec, 0)
		out[i] = Allocation{
			Key:      s.Key,
			Amount:   q.IntPart(),
			Fraction: w.Div(sumDec),
		}
		remainders[i] = r
		floored += out[i].Amount
	}

	leftover := total - floored
	if leftover == 0 {
		return out, nil
	}

	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := remainders[order[a]], remainders[order[b]]
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb)
		}
		return shares[order[a]].Key < shares[order[b]].Key
	})
	// leftover < len(shares) since each remainder is < 1 unit.
	for i := int64(0); i < leftover; i++ {
		out[order[i]].Amount++
	}
	return out, nil
}
