package repositories

import "context"

// TransactionManager runs a unit of work atomically. Repositories called with
// the ctx passed to fn participate in the same transaction.
type TransactionManager interface {
	// WithinTx commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
