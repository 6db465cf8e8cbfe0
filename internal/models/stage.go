package models

import "database/sql"

// ExecutionStage is the persisted form of a budgeted execution stage.
type ExecutionStage struct {
	StageID         string       `db:"stage_id"`
	ProjectID       string       `db:"project_id"`
	Name            string       `db:"name"`
	Sequence        int          `db:"sequence"`
	Budget          int64        `db:"budget"`
	Status          string       `db:"status"`
	ProgressPercent int          `db:"progress_percent"`
	StartDate       sql.NullTime `db:"start_date"`
	EndDate         sql.NullTime `db:"end_date"`
	AuditFields
}
