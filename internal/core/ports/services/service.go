package services

// ServiceContainer holds instances of all the engine services.
// This is the main entry point for accessing service functionality and
// is used by the worker's event consumers and schedulers.
type ServiceContainer struct {
	Lifecycle    LifecycleSvcFacade
	Stages       StageTrackerSvc
	Expenses     ExpenseLedgerSvcFacade
	Distribution DistributionSvc
	Auditor      InvariantAuditorSvc
}
