package domain

// ActorRole is the role an upstream auth layer resolved for the caller.
type ActorRole string

const (
	RoleAdmin    ActorRole = "ADMIN"
	RoleCreator  ActorRole = "CREATOR"
	RoleReviewer ActorRole = "REVIEWER"
	RoleBacker   ActorRole = "BACKER"
	RoleSystem   ActorRole = "SYSTEM" // Schedulers and payment event handlers
)

// Actor is the opaque identity passed into every mutating operation.
// RoleChecked must be set by the caller once it has verified Role.
type Actor struct {
	ActorID     string    `json:"actorID"`
	Role        ActorRole `json:"role"`
	RoleChecked bool      `json:"roleChecked"`
}

// SystemActor is used by internal schedulers and event consumers.
func SystemActor(id string) Actor {
	return Actor{ActorID: id, Role: RoleSystem, RoleChecked: true}
}

// Operation names a mutating engine operation for role lookup.
type Operation string

const (
	OpCreateProject       Operation = "CreateProject"
	OpApproveProject      Operation = "ApproveProject"
	OpRequestPledge       Operation = "RequestPledge"
	OpHandlePaymentEvent  Operation = "HandlePaymentEvent"
	OpCloseFunding        Operation = "CloseFunding"
	OpCancelProject       Operation = "CancelProject"
	OpSubmitExecutionPlan Operation = "SubmitExecutionPlan"
	OpFinalizeProject     Operation = "FinalizeProject"
	OpAddStage            Operation = "AddStage"
	OpAdvanceStage        Operation = "AdvanceStage"
	OpCompleteStage       Operation = "CompleteStage"
	OpMarkStageDelayed    Operation = "MarkStageDelayed"
	OpReopenStage         Operation = "ReopenStage"
	OpCorrectStageStatus  Operation = "CorrectStageStatus"
	OpRecordExpense       Operation = "RecordExpense"
	OpAmendExpense        Operation = "AmendExpense"
	OpVerifyExpense       Operation = "VerifyExpense"
	OpCreateDistribution  Operation = "CreateDistributionPlan"
	OpReviseDistribution  Operation = "ReviseDistributionPlan"
	OpStartPayouts        Operation = "StartPayouts"
	OpRetryRefunds        Operation = "RetryRefunds"
)

var operationRoles = map[Operation][]ActorRole{
	OpCreateProject:       {RoleCreator, RoleAdmin},
	OpApproveProject:      {RoleAdmin},
	OpRequestPledge:       {RoleBacker, RoleAdmin},
	OpHandlePaymentEvent:  {RoleSystem},
	OpCloseFunding:        {RoleSystem, RoleAdmin},
	OpCancelProject:       {RoleCreator, RoleAdmin},
	OpSubmitExecutionPlan: {RoleCreator, RoleAdmin},
	OpFinalizeProject:     {RoleCreator, RoleAdmin},
	OpAddStage:            {RoleCreator, RoleAdmin},
	OpAdvanceStage:        {RoleCreator, RoleAdmin},
	OpCompleteStage:       {RoleCreator, RoleAdmin},
	OpMarkStageDelayed:    {RoleCreator, RoleAdmin},
	OpReopenStage:         {RoleAdmin},
	OpCorrectStageStatus:  {RoleAdmin},
	OpRecordExpense:       {RoleCreator, RoleAdmin},
	OpAmendExpense:        {RoleCreator, RoleAdmin},
	OpVerifyExpense:       {RoleReviewer, RoleCreator, RoleAdmin},
	OpCreateDistribution:  {RoleAdmin, RoleSystem},
	OpReviseDistribution:  {RoleAdmin},
	OpStartPayouts:        {RoleAdmin, RoleSystem},
	OpRetryRefunds:        {RoleAdmin, RoleSystem},
}

// RequiredRoles returns the roles allowed to perform op.
func RequiredRoles(op Operation) []ActorRole {
	roles := operationRoles[op]
	out := make([]ActorRole, len(roles))
	copy(out, roles)
	return out
}

// Permits reports whether the actor has been checked and holds a role allowed for op.
func (a Actor) Permits(op Operation) bool {
	if !a.RoleChecked || a.ActorID == "" {
		return false
	}
	for _, r := range operationRoles[op] {
		if r == a.Role {
			return true
		}
	}
	return false
}
