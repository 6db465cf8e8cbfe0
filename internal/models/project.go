package models

import (
	"database/sql"
	"time"
)

// FundingProject is the persisted form of a funding project.
// StatusHistory is stored as a JSONB document.
type FundingProject struct {
	ProjectID         string       `db:"project_id"`
	CreatorID         string       `db:"creator_id"`
	Title             string       `db:"title"`
	GoalAmount        int64        `db:"goal_amount"`
	CurrentAmount     int64        `db:"current_amount"`
	Status            string       `db:"status"`
	TotalBudget       int64        `db:"total_budget"`
	StartDate         time.Time    `db:"start_date"`
	EndDate           time.Time    `db:"end_date"`
	StagesCompletedAt sql.NullTime `db:"stages_completed_at"`
	StatusHistory     []byte       `db:"status_history"`
	AuditFields
}
