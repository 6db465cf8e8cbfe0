package models

import (
	"database/sql"
	"time"
)

// Pledge is the persisted form of a backer contribution.
type Pledge struct {
	PledgeID          string         `db:"pledge_id"`
	ProjectID         string         `db:"project_id"`
	BackerID          string         `db:"backer_id"`
	Amount            int64          `db:"amount"`
	PledgedAt         time.Time      `db:"pledged_at"`
	Status            string         `db:"status"`
	PaymentRef        sql.NullString `db:"payment_ref"`
	Counted           bool           `db:"counted"`
	RefundRequestedAt sql.NullTime   `db:"refund_requested_at"`
	AuditFields
}
