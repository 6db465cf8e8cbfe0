package dto

import (
	"fmt"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
)

// SplitRequest overrides the configured default revenue split.
type SplitRequest struct {
	PlatformFeePercent string `json:"platformFeePercent" validate:"required,numeric"`
	ArtistSharePercent string `json:"artistSharePercent" validate:"required,numeric"`
	BackerSharePercent string `json:"backerSharePercent" validate:"required,numeric"`
}

// ToDomain parses the percentages. The sum-to-100 check is left to the calculator.
func (r SplitRequest) ToDomain() (domain.RevenueSplit, error) {
	platform, err := domain.ParsePercentage(r.PlatformFeePercent)
	if err != nil {
		return domain.RevenueSplit{}, fmt.Errorf("%w: platformFeePercent: %v", apperrors.ErrInvalidSplitConfiguration, err)
	}
	artist, err := domain.ParsePercentage(r.ArtistSharePercent)
	if err != nil {
		return domain.RevenueSplit{}, fmt.Errorf("%w: artistSharePercent: %v", apperrors.ErrInvalidSplitConfiguration, err)
	}
	backer, err := domain.ParsePercentage(r.BackerSharePercent)
	if err != nil {
		return domain.RevenueSplit{}, fmt.Errorf("%w: backerSharePercent: %v", apperrors.ErrInvalidSplitConfiguration, err)
	}
	return domain.RevenueSplit{
		PlatformFeePercent: platform,
		ArtistSharePercent: artist,
		BackerSharePercent: backer,
	}, nil
}

// CreateDistributionRequest asks for a plan over the project's final revenue.
type CreateDistributionRequest struct {
	TotalRevenue int64         `json:"totalRevenue" validate:"gte=0,lte=9007199254740992"`
	Split        *SplitRequest `json:"split,omitempty"`
}
