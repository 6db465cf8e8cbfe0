package apportion

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundHalfEven(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0.5", 0},
		{"1.5", 2},
		{"2.5", 2},
		{"3.5", 4},
		{"2.4999", 2},
		{"2.5001", 3},
		{"120000", 120000},
		{"-1.5", -2},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundHalfEven(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestLargestRemainder_EqualThirds(t *testing.T) {
	got, err := LargestRemainder(100, []Share{
		{Key: "b", Weight: 1},
		{Key: "a", Weight: 1},
		{Key: "c", Weight: 1},
	})
	require.NoError(t, err)
	amounts := map[string]int64{}
	for _, a := range got {
		amounts[a.Key] = a.Amount
	}
	assert.Equal(t, map[string]int64{"a": 34, "b": 33, "c": 33}, amounts)
	assert.Equal(t, "b", got[0].Key, "input order is preserved")
}

func TestLargestRemainder_Proportional(t *testing.T) {
	got, err := LargestRemainder(240000, []Share{
		{Key: "b1", Weight: 200000},
		{Key: "b2", Weight: 300000},
		{Key: "b3", Weight: 500000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(48000), got[0].Amount)
	assert.Equal(t, int64(72000), got[1].Amount)
	assert.Equal(t, int64(120000), got[2].Amount)
	assert.True(t, got[2].Fraction.Equal(decimal.RequireFromString("0.5")))
}

func TestLargestRemainder_LargestFractionWins(t *testing.T) {
	// Quotas: 10*1/6=1.67, 10*2/6=3.33, 10*3/6=5 -> floors 1,3,5; one unit to "x".
	got, err := LargestRemainder(10, []Share{
		{Key: "x", Weight: 1},
		{Key: "y", Weight: 2},
		{Key: "z", Weight: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got[0].Amount)
	assert.Equal(t, int64(3), got[1].Amount)
	assert.Equal(t, int64(5), got[2].Amount)
}

func TestLargestRemainder_ZeroTotal(t *testing.T) {
	got, err := LargestRemainder(0, []Share{{Key: "a", Weight: 5}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got[0].Amount)
}

func TestLargestRemainder_Errors(t *testing.T) {
	_, err := LargestRemainder(10, nil)
	assert.ErrorIs(t, err, ErrNoWeight)

	_, err = LargestRemainder(10, []Share{{Key: "a", Weight: 0}})
	assert.ErrorIs(t, err, ErrNoWeight)

	_, err = LargestRemainder(-1, []Share{{Key: "a", Weight: 1}})
	assert.Error(t, err)

	_, err = LargestRemainder(10, []Share{{Key: "a", Weight: -1}, {Key: "b", Weight: 3}})
	assert.Error(t, err)
}

func TestLargestRemainder_AlwaysSumsExactly(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		total := rng.Int63n(10_000_000_000)
		n := 1 + rng.Intn(60)
		shares := make([]Share, n)
		for j := range shares {
			shares[j] = Share{Key: fmt.Sprintf("backer-%03d", j), Weight: 1 + rng.Int63n(5_000_000)}
		}

		got, err := LargestRemainder(total, shares)
		require.NoError(t, err)

		var sum int64
		for j, a := range got {
			assert.GreaterOrEqual(t, a.Amount, int64(0))
			// Each allocation is within one unit of its exact quota.
			exact := decimal.NewFromInt(total).Mul(decimal.NewFromInt(shares[j].Weight)).
				Div(decimal.NewFromInt(sumWeights(shares)))
			diff := decimal.NewFromInt(a.Amount).Sub(exact).Abs()
			assert.True(t, diff.LessThan(decimal.NewFromInt(1)), "allocation %d too far from quota %s", a.Amount, exact)
			sum += a.Amount
		}
		require.Equal(t, total, sum, "iteration %d", i)
	}
}

func sumWeights(shares []Share) int64 {
	var s int64
	for _, sh := range shares {
		s += sh.Weight
	}
	return s
}
