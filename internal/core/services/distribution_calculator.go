package services

import (
	"errors"
	"fmt"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/utils/apportion"
	"github.com/shopspring/decimal"
)

// DistributionResult is the pure output of CalculateDistribution. Entry ids
// and plan identity are assigned by the caller.
type DistributionResult struct {
	PlatformFeeAmount domain.Money
	ArtistShareAmount domain.Money
	BackerPoolAmount  domain.Money
	Entries           []domain.DistributionEntry
}

// CalculateDistribution splits totalRevenue according to split:
//
//	platformFee = roundHalfEven(total * platform / 100)
//	artistShare = roundHalfEven(total * artist / 100)
//	backerPool  = total - platformFee - artistShare
//
// and apportions the backer pool over per-backer completed pledge sums by
// largest remainder. The components always sum to totalRevenue exactly.
// When both rounded shares overshoot the revenue (possible only with a zero
// backer share), the artist share absorbs the difference so the pool stays
// non-negative. Returns apperrors.ErrNoPledges when no pledge is completed.
func CalculateDistribution(totalRevenue domain.Money, split domain.RevenueSplit, pledges []domain.Pledge) (*DistributionResult, error) {
	if err := split.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSplitConfiguration, err)
	}
	if totalRevenue.IsNegative() {
		return nil, fmt.Errorf("%w: total revenue %s is negative", apperrors.ErrValidation, totalRevenue)
	}

	res := splitRevenue(totalRevenue, split)

	contributions := domain.AggregateCompletedPledges(pledges)
	if len(contributions) == 0 {
		return res, apperrors.ErrNoPledges
	}

	shares := make([]apportion.Share, len(contributions))
	for i, c := range contributions {
		shares[i] = apportion.Share{Key: c.BackerID, Weight: int64(c.Amount)}
	}
	allocs, err := apportion.LargestRemainder(int64(res.BackerPoolAmount), shares)
	if errors.Is(err, apportion.ErrNoWeight) {
		return res, apperrors.ErrNoPledges
	}
	if err != nil {
		return nil, fmt.Errorf("failed to apportion backer pool: %w", err)
	}

	hundred := decimal.NewFromInt(100)
	res.Entries = make([]domain.DistributionEntry, len(allocs))
	for i, a := range allocs {
		res.Entries[i] = domain.DistributionEntry{
			BackerID:             a.Key,
			OriginalPledgeAmount: contributions[i].Amount,
			DistributedAmount:    domain.Money(a.Amount),
			ProfitSharePercent:   a.Fraction.Mul(hundred).Round(4),
			Status:               domain.EntryPending,
		}
	}
	return res, nil
}

func splitRevenue(totalRevenue domain.Money, split domain.RevenueSplit) *DistributionResult {
	fee := domain.Money(apportion.RoundHalfEven(split.PlatformFeePercent.Of(totalRevenue)))
	artist := domain.Money(apportion.RoundHalfEven(split.ArtistSharePercent.Of(totalRevenue)))
	pool := totalRevenue - fee - artist
	if pool < 0 {
		artist += pool
		pool = 0
	}
	return &DistributionResult{
		PlatformFeeAmount: fee,
		ArtistShareAmount: artist,
		BackerPoolAmount:  pool,
	}
}

// escalateToArtist folds an undistributable backer pool into the artist share.
func (r *DistributionResult) escalateToArtist() {
	r.ArtistShareAmount += r.BackerPoolAmount
	r.BackerPoolAmount = 0
	r.Entries = nil
}
