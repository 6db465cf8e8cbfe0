package services

import (
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// Every service shares the same locker, dispatcher and publisher so that
// mutations of one project are serialized across services.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, opts ...ServiceOption) *portssvc.ServiceContainer {
	shared := newBaseService(repos.TxManager, opts...)
	opts = append(opts,
		WithLocker(shared.Locker),
		WithPublisher(shared.Publisher),
		WithDispatcher(shared.Dispatcher),
		WithAlerter(shared.Alerter),
		WithAuditor(shared.Auditor),
	)

	return &portssvc.ServiceContainer{
		Lifecycle:    NewLifecycleService(repos, opts...),
		Stages:       NewStageService(repos, opts...),
		Expenses:     NewExpenseService(repos, opts...),
		Distribution: NewDistributionService(repos, cfg.DefaultSplit, opts...),
		Auditor:      shared.Auditor,
	}
}
