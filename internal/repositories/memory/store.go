// Package memory is an in-process implementation of the repository ports,
// used by tests and single-node deployments.
package memory

import (
	"context"
	"sync"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
)

// Store keeps every entity in maps guarded by one RWMutex. Writes made inside
// WithinTx are recorded in an undo log and reverted if the unit of work fails.
// Uncommitted writes are visible to concurrent readers; callers serialize
// mutations per project with a ProjectLocker.
type Store struct {
	mu sync.RWMutex

	projects map[string]domain.FundingProject
	stages   map[string]domain.ExecutionStage
	expenses map[string]domain.ExpenseRecord
	pledges  map[string]domain.Pledge
	plans    map[string]domain.RevenueDistributionPlan
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		projects: make(map[string]domain.FundingProject),
		stages:   make(map[string]domain.ExecutionStage),
		expenses: make(map[string]domain.ExpenseRecord),
		pledges:  make(map[string]domain.Pledge),
		plans:    make(map[string]domain.RevenueDistributionPlan),
	}
}

// NewRepositoryProvider exposes s through the repository ports.
func NewRepositoryProvider(s *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		ProjectRepo:      &projectRepository{store: s},
		StageRepo:        &stageRepository{store: s},
		ExpenseRepo:      &expenseRepository{store: s},
		PledgeRepo:       &pledgeRepository{store: s},
		DistributionRepo: &distributionRepository{store: s},
		TxManager:        s,
	}
}

type undoLogKey struct{}

type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (u *undoLog) push(step func()) {
	u.mu.Lock()
	u.steps = append(u.steps, step)
	u.mu.Unlock()
}

// WithinTx implements portsrepo.TransactionManager. Nested calls join the
// outermost unit of work.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoLogKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoLogKey{}, log)); err != nil {
		s.mu.Lock()
		for i := len(log.steps) - 1; i >= 0; i-- {
			log.steps[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// recordUndo must be called with s.mu held for writing.
func recordUndo[K comparable, V any](ctx context.Context, m map[K]V, key K) {
	log, ok := ctx.Value(undoLogKey{}).(*undoLog)
	if !ok {
		return
	}
	prev, existed := m[key]
	log.push(func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
}

var _ portsrepo.TransactionManager = (*Store)(nil)
