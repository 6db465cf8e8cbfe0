package dto

import "time"

// CreateProjectRequest proposes a new funding project.
type CreateProjectRequest struct {
	Title      string    `json:"title" validate:"required,max=200"`
	GoalAmount int64     `json:"goalAmount" validate:"gt=0,lte=9007199254740992"`
	StartDate  time.Time `json:"startDate" validate:"required"`
	EndDate    time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
}

// SubmitExecutionPlanRequest moves a funded project into execution.
// TotalBudget, when set, lowers the budget below the funded amount.
type SubmitExecutionPlanRequest struct {
	TotalBudget *int64            `json:"totalBudget,omitempty" validate:"omitempty,gt=0,lte=9007199254740992"`
	Stages      []AddStageRequest `json:"stages" validate:"required,min=1,dive"`
}
