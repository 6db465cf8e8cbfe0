package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
)

// AsyncPaymentDispatcher hands payment commands to the gateway from a pool of
// worker goroutines so that no gateway call runs under a project lock. A
// failed submission is only logged: the entity stays PENDING/PROCESSING and
// can be re-dispatched (RetryRefunds, StartPayouts).
type AsyncPaymentDispatcher struct {
	gateway portssvc.PaymentGateway
	logger  *slog.Logger
	queue   chan queuedCommand
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

type queuedCommand struct {
	logger *slog.Logger
	cmd    domain.PaymentCommand
}

// NewAsyncPaymentDispatcher starts workers goroutines draining a queue of size buffer.
func NewAsyncPaymentDispatcher(gateway portssvc.PaymentGateway, logger *slog.Logger, workers, buffer int) *AsyncPaymentDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &AsyncPaymentDispatcher{
		gateway: gateway,
		logger:  logger,
		queue:   make(chan queuedCommand, buffer),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

var _ portssvc.PaymentDispatcher = (*AsyncPaymentDispatcher)(nil)

// Dispatch enqueues cmds. It blocks when the queue is full.
func (d *AsyncPaymentDispatcher) Dispatch(ctx context.Context, cmds ...domain.PaymentCommand) {
	logger := middleware.GetLoggerFromCtx(ctx)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, cmd := range cmds {
		if d.closed {
			logger.Error("Payment command dropped after shutdown",
				slog.String("kind", string(cmd.Kind)),
				slog.String("subject_id", cmd.SubjectID))
			continue
		}
		d.queue <- queuedCommand{logger: logger, cmd: cmd}
	}
}

// Close stops accepting commands and waits for queued ones to be delivered.
func (d *AsyncPaymentDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("Payment dispatcher drained")
}

func (d *AsyncPaymentDispatcher) work() {
	defer d.wg.Done()
	for qc := range d.queue {
		d.deliver(qc)
	}
}

func (d *AsyncPaymentDispatcher) deliver(qc queuedCommand) {
	ctx := middleware.WithLogger(context.Background(), qc.logger)
	cmd := qc.cmd

	var (
		ref string
		err error
	)
	switch cmd.Kind {
	case domain.CommandCollectPledge:
		ref, err = d.gateway.CollectPledge(ctx, cmd)
	case domain.CommandIssuePayout:
		ref, err = d.gateway.IssuePayout(ctx, cmd)
	case domain.CommandRefund:
		ref, err = d.gateway.Refund(ctx, cmd)
	default:
		qc.logger.Error("Unknown payment command kind", slog.String("kind", string(cmd.Kind)))
		return
	}

	if err != nil {
		qc.logger.Error("Payment command submission failed",
			slog.String("error", err.Error()),
			slog.String("kind", string(cmd.Kind)),
			slog.String("project_id", cmd.ProjectID),
			slog.String("subject_id", cmd.SubjectID))
		return
	}
	qc.logger.Info("Payment command submitted",
		slog.String("kind", string(cmd.Kind)),
		slog.String("project_id", cmd.ProjectID),
		slog.String("subject_id", cmd.SubjectID),
		slog.String("submission_ref", ref))
}
