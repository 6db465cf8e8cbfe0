package domain

import "time"

// ProjectStatus is the lifecycle state of a funding project.
type ProjectStatus string

const (
	ProjectPreparing  ProjectStatus = "PREPARING"
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectSuccess    ProjectStatus = "SUCCESS"
	ProjectFailed     ProjectStatus = "FAILED"
	ProjectCancelled  ProjectStatus = "CANCELLED"
	ProjectExecuting  ProjectStatus = "EXECUTING"
	ProjectCompleted  ProjectStatus = "COMPLETED"
)

// AllProjectStatuses lists every status in lifecycle order.
var AllProjectStatuses = []ProjectStatus{
	ProjectPreparing,
	ProjectInProgress,
	ProjectSuccess,
	ProjectFailed,
	ProjectCancelled,
	ProjectExecuting,
	ProjectCompleted,
}

// projectTransitions is the complete set of legal status changes. Anything
// absent from this table is rejected.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectPreparing:  {ProjectInProgress},
	ProjectInProgress: {ProjectSuccess, ProjectFailed, ProjectCancelled},
	ProjectSuccess:    {ProjectExecuting},
	ProjectExecuting:  {ProjectCompleted},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to ProjectStatus) bool {
	for _, next := range projectTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s ProjectStatus) IsTerminal() bool {
	return len(projectTransitions[s]) == 0
}

// IsValid reports whether s is a known status.
func (s ProjectStatus) IsValid() bool {
	for _, known := range AllProjectStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// StatusChange records one applied transition.
type StatusChange struct {
	From    ProjectStatus `json:"from"`
	To      ProjectStatus `json:"to"`
	ActorID string        `json:"actorID"`
	Reason  string        `json:"reason,omitempty"`
	At      time.Time     `json:"at"`
}

// FundingProject is a crowdfunding campaign and, once funded, its execution.
type FundingProject struct {
	ProjectID         string         `json:"projectID"`
	CreatorID         string         `json:"creatorID"`
	Title             string         `json:"title"`
	GoalAmount        Money          `json:"goalAmount"`
	CurrentAmount     Money          `json:"currentAmount"` // Sum of completed, unrefunded pledges
	Status            ProjectStatus  `json:"status"`
	TotalBudget       Money          `json:"totalBudget"` // Set when funding succeeds
	StartDate         time.Time      `json:"startDate"`
	EndDate           time.Time      `json:"endDate"` // Funding deadline
	StagesCompletedAt *time.Time     `json:"stagesCompletedAt,omitempty"`
	StatusHistory     []StatusChange `json:"statusHistory,omitempty"`
	AuditFields
}

// Transition moves the project to `to` if the transition table allows it, and
// records the change. It returns false without mutating when the move is illegal.
func (p *FundingProject) Transition(to ProjectStatus, actorID, reason string, at time.Time) bool {
	if !CanTransition(p.Status, to) {
		return false
	}
	p.StatusHistory = append(p.StatusHistory, StatusChange{
		From:    p.Status,
		To:      to,
		ActorID: actorID,
		Reason:  reason,
		At:      at,
	})
	p.Status = to
	p.Touch(actorID, at)
	return true
}

// GoalReached reports whether pledged funds meet the goal.
func (p *FundingProject) GoalReached() bool {
	return p.CurrentAmount >= p.GoalAmount
}

// DeadlinePassed reports whether the funding window closed before now.
func (p *FundingProject) DeadlinePassed(now time.Time) bool {
	return !now.Before(p.EndDate)
}
