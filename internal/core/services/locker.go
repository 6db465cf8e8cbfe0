package services

import (
	"context"
	"sync"

	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
)

// projectLocker is an in-process keyed mutex. Entries are reference counted
// and dropped once no goroutine holds or waits for them.
type projectLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewProjectLocker creates a locker for a single process.
func NewProjectLocker() portssvc.ProjectLocker {
	return &projectLocker{locks: make(map[string]*keyedLock)}
}

var _ portssvc.ProjectLocker = (*projectLocker)(nil)

func (l *projectLocker) Lock(ctx context.Context, projectID string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[projectID]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[projectID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(projectID, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(projectID, kl)
		})
	}, nil
}

func (l *projectLocker) release(projectID string, kl *keyedLock) {
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, projectID)
	}
	l.mu.Unlock()
}
