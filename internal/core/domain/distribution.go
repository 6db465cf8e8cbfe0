package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RevenueSplit divides project revenue between platform, artist and backers.
type RevenueSplit struct {
	PlatformFeePercent Percentage `json:"platformFeePercent"`
	ArtistSharePercent Percentage `json:"artistSharePercent"`
	BackerSharePercent Percentage `json:"backerSharePercent"`
}

// Validate checks the three components sum to exactly 100.
func (s RevenueSplit) Validate() error {
	sum := s.PlatformFeePercent.Add(s.ArtistSharePercent).Add(s.BackerSharePercent.Decimal())
	if !sum.Equal(hundred) {
		return fmt.Errorf("split components sum to %s, expected 100", sum.String())
	}
	return nil
}

// PlanStatus marks whether a plan version is the one in force.
type PlanStatus string

const (
	PlanActive     PlanStatus = "ACTIVE"
	PlanSuperseded PlanStatus = "SUPERSEDED"
)

// EntryStatus tracks one backer payout.
type EntryStatus string

const (
	EntryPending    EntryStatus = "PENDING"
	EntryProcessing EntryStatus = "PROCESSING"
	EntryCompleted  EntryStatus = "COMPLETED"
	EntryFailed     EntryStatus = "FAILED"
)

// DistributionEntry is one backer's allocation within a plan.
type DistributionEntry struct {
	EntryID              string          `json:"entryID"`
	BackerID             string          `json:"backerID"`
	OriginalPledgeAmount Money           `json:"originalPledgeAmount"`
	DistributedAmount    Money           `json:"distributedAmount"`
	ProfitSharePercent   decimal.Decimal `json:"profitSharePercent"` // Share of the backer pool
	Status               EntryStatus     `json:"status"`
	PayoutRef            *string         `json:"payoutRef,omitempty"`
	FailureReason        string          `json:"failureReason,omitempty"`
}

// RevenueDistributionPlan allocates a project's final revenue.
type RevenueDistributionPlan struct {
	PlanID            string              `json:"planID"`
	ProjectID         string              `json:"projectID"`
	Version           int                 `json:"version"`
	Status            PlanStatus          `json:"status"`
	TotalRevenue      Money               `json:"totalRevenue"`
	Split             RevenueSplit        `json:"split"`
	PlatformFeeAmount Money               `json:"platformFeeAmount"`
	ArtistShareAmount Money               `json:"artistShareAmount"`
	BackerPoolAmount  Money               `json:"backerPoolAmount"`
	Entries           []DistributionEntry `json:"entries"`
	ManualReview      bool                `json:"manualReview"`
	ReviewReason      string              `json:"reviewReason,omitempty"`
	SupersedesPlanID  *string             `json:"supersedesPlanID,omitempty"`
	AuditFields
}

// DistributedTotal is the sum of all entry amounts.
func (p *RevenueDistributionPlan) DistributedTotal() Money {
	var total Money
	for _, e := range p.Entries {
		total = total.Plus(e.DistributedAmount)
	}
	return total
}

// Balanced reports whether fee + artist + entries equals total revenue.
func (p *RevenueDistributionPlan) Balanced() bool {
	return SumMoney(p.PlatformFeeAmount, p.ArtistShareAmount, p.DistributedTotal()) == p.TotalRevenue
}

// PayoutStarted reports whether any entry has left PENDING/FAILED.
func (p *RevenueDistributionPlan) PayoutStarted() bool {
	for _, e := range p.Entries {
		if e.Status == EntryProcessing || e.Status == EntryCompleted {
			return true
		}
	}
	return false
}

// EntryByID finds an entry by id.
func (p *RevenueDistributionPlan) EntryByID(entryID string) (*DistributionEntry, bool) {
	for i := range p.Entries {
		if p.Entries[i].EntryID == entryID {
			return &p.Entries[i], true
		}
	}
	return nil, false
}
