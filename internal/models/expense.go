package models

import (
	"database/sql"
	"time"
)

// ExpenseRecord is the persisted form of an expense ledger row.
type ExpenseRecord struct {
	ExpenseID          string         `db:"expense_id"`
	ProjectID          string         `db:"project_id"`
	StageID            sql.NullString `db:"stage_id"`
	Category           string         `db:"category"`
	Title              string         `db:"title"`
	Description        string         `db:"description"`
	Amount             int64          `db:"amount"`
	ExpenseDate        time.Time      `db:"expense_date"`
	ReceiptRef         sql.NullString `db:"receipt_ref"`
	VerificationStatus string         `db:"verification_status"`
	VerificationKind   string         `db:"verification_kind"`
	ReviewerID         sql.NullString `db:"reviewer_id"`
	ReviewedAt         sql.NullTime   `db:"reviewed_at"`
	OverBudget         bool           `db:"over_budget"`
	StageOverBudget    bool           `db:"stage_over_budget"`
	Warnings           []string       `db:"warnings"`
	SupersedesID       sql.NullString `db:"supersedes_id"`
	SupersededByID     sql.NullString `db:"superseded_by_id"`
	AuditFields
}
