package pgsql

import (
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires every Postgres-backed repository to dbPool.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	base := BaseRepository{Pool: dbPool}

	return portsrepo.RepositoryProvider{
		ProjectRepo:      newPgxProjectRepository(base),
		StageRepo:        newPgxStageRepository(base),
		ExpenseRepo:      newPgxExpenseRepository(base),
		PledgeRepo:       newPgxPledgeRepository(base),
		DistributionRepo: newPgxDistributionRepository(base),
		TxManager:        &TxManager{BaseRepository: base},
	}
}
