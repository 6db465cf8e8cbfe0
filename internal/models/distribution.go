package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// DistributionPlan is the persisted header of a revenue distribution plan.
// Entries live in distribution_entries.
type DistributionPlan struct {
	PlanID             string          `db:"plan_id"`
	ProjectID          string          `db:"project_id"`
	PlanVersion        int             `db:"plan_version"`
	Status             string          `db:"status"`
	TotalRevenue       int64           `db:"total_revenue"`
	PlatformFeePercent decimal.Decimal `db:"platform_fee_percent"`
	ArtistSharePercent decimal.Decimal `db:"artist_share_percent"`
	BackerSharePercent decimal.Decimal `db:"backer_share_percent"`
	PlatformFeeAmount  int64           `db:"platform_fee_amount"`
	ArtistShareAmount  int64           `db:"artist_share_amount"`
	BackerPoolAmount   int64           `db:"backer_pool_amount"`
	ManualReview       bool            `db:"manual_review"`
	ReviewReason       string          `db:"review_reason"`
	SupersedesPlanID   sql.NullString  `db:"supersedes_plan_id"`
	AuditFields
}

// DistributionEntry is one backer allocation row of a plan.
type DistributionEntry struct {
	EntryID              string          `db:"entry_id"`
	PlanID               string          `db:"plan_id"`
	BackerID             string          `db:"backer_id"`
	OriginalPledgeAmount int64           `db:"original_pledge_amount"`
	DistributedAmount    int64           `db:"distributed_amount"`
	ProfitSharePercent   decimal.Decimal `db:"profit_share_percent"`
	Status               string          `db:"status"`
	PayoutRef            sql.NullString  `db:"payout_ref"`
	FailureReason        string          `db:"failure_reason"`
	Position             int             `db:"position"`
}
