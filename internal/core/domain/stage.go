package domain

import "time"

// StageStatus is the progress state of an execution stage.
type StageStatus string

const (
	StagePlanned    StageStatus = "PLANNED"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageCompleted  StageStatus = "COMPLETED"
	StageDelayed    StageStatus = "DELAYED"
)

// IsValid reports whether s is a known stage status.
func (s StageStatus) IsValid() bool {
	switch s {
	case StagePlanned, StageInProgress, StageCompleted, StageDelayed:
		return true
	}
	return false
}

// ExecutionStage is a budgeted phase of project execution.
type ExecutionStage struct {
	StageID         string      `json:"stageID"`
	ProjectID       string      `json:"projectID"`
	Name            string      `json:"name"`
	Sequence        int         `json:"sequence"`
	Budget          Money       `json:"budget"`
	Status          StageStatus `json:"status"`
	ProgressPercent int         `json:"progressPercent"` // 0..100
	StartDate       *time.Time  `json:"startDate,omitempty"`
	EndDate         *time.Time  `json:"endDate,omitempty"`
	AuditFields
}

// SumStageBudgets totals the budgets of stages, saturating on overflow.
func SumStageBudgets(stages []ExecutionStage) Money {
	var total Money
	for _, s := range stages {
		total = total.Plus(s.Budget)
	}
	return total
}

// AllStagesCompleted reports whether stages is non-empty and every stage is COMPLETED.
func AllStagesCompleted(stages []ExecutionStage) bool {
	if len(stages) == 0 {
		return false
	}
	for _, s := range stages {
		if s.Status != StageCompleted {
			return false
		}
	}
	return true
}
