package mapping

import (
	"fmt"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	"github.com/SscSPs/fundflow_engine/internal/models"
)

// ToModelPlan splits a domain plan into its header row and entry rows.
func ToModelPlan(d domain.RevenueDistributionPlan) (models.DistributionPlan, []models.DistributionEntry) {
	header := models.DistributionPlan{
		PlanID:             d.PlanID,
		ProjectID:          d.ProjectID,
		PlanVersion:        d.Version,
		Status:             string(d.Status),
		TotalRevenue:       int64(d.TotalRevenue),
		PlatformFeePercent: d.Split.PlatformFeePercent.Decimal(),
		ArtistSharePercent: d.Split.ArtistSharePercent.Decimal(),
		BackerSharePercent: d.Split.BackerSharePercent.Decimal(),
		PlatformFeeAmount:  int64(d.PlatformFeeAmount),
		ArtistShareAmount:  int64(d.ArtistShareAmount),
		BackerPoolAmount:   int64(d.BackerPoolAmount),
		ManualReview:       d.ManualReview,
		ReviewReason:       d.ReviewReason,
		SupersedesPlanID:   NullString(d.SupersedesPlanID),
		AuditFields:        ToModelAuditFields(d.AuditFields),
	}
	entries := make([]models.DistributionEntry, 0, len(d.Entries))
	for i, e := range d.Entries {
		entries = append(entries, models.DistributionEntry{
			EntryID:              e.EntryID,
			PlanID:               d.PlanID,
			BackerID:             e.BackerID,
			OriginalPledgeAmount: int64(e.OriginalPledgeAmount),
			DistributedAmount:    int64(e.DistributedAmount),
			ProfitSharePercent:   e.ProfitSharePercent,
			Status:               string(e.Status),
			PayoutRef:            NullString(e.PayoutRef),
			FailureReason:        e.FailureReason,
			Position:             i,
		})
	}
	return header, entries
}

// ToDomainPlan rebuilds a domain plan from its header and entries ordered by position.
func ToDomainPlan(m models.DistributionPlan, entries []models.DistributionEntry) (domain.RevenueDistributionPlan, error) {
	platform, err := domain.NewPercentage(m.PlatformFeePercent)
	if err != nil {
		return domain.RevenueDistributionPlan{}, fmt.Errorf("plan %s platform fee: %w", m.PlanID, err)
	}
	artist, err := domain.NewPercentage(m.ArtistSharePercent)
	if err != nil {
		return domain.RevenueDistributionPlan{}, fmt.Errorf("plan %s artist share: %w", m.PlanID, err)
	}
	backer, err := domain.NewPercentage(m.BackerSharePercent)
	if err != nil {
		return domain.RevenueDistributionPlan{}, fmt.Errorf("plan %s backer share: %w", m.PlanID, err)
	}

	out := domain.RevenueDistributionPlan{
		PlanID:    m.PlanID,
		ProjectID: m.ProjectID,
		Version:   m.PlanVersion,
		Status:    domain.PlanStatus(m.Status),
		Split: domain.RevenueSplit{
			PlatformFeePercent: platform,
			ArtistSharePercent: artist,
			BackerSharePercent: backer,
		},
		TotalRevenue:      domain.Money(m.TotalRevenue),
		PlatformFeeAmount: domain.Money(m.PlatformFeeAmount),
		ArtistShareAmount: domain.Money(m.ArtistShareAmount),
		BackerPoolAmount:  domain.Money(m.BackerPoolAmount),
		ManualReview:      m.ManualReview,
		ReviewReason:      m.ReviewReason,
		SupersedesPlanID:  StringPtr(m.SupersedesPlanID),
		Entries:           make([]domain.DistributionEntry, 0, len(entries)),
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, domain.DistributionEntry{
			EntryID:              e.EntryID,
			BackerID:             e.BackerID,
			OriginalPledgeAmount: domain.Money(e.OriginalPledgeAmount),
			DistributedAmount:    domain.Money(e.DistributedAmount),
			ProfitSharePercent:   e.ProfitSharePercent,
			Status:               domain.EntryStatus(e.Status),
			PayoutRef:            StringPtr(e.PayoutRef),
			FailureReason:        e.FailureReason,
		})
	}
	return out, nil
}
