package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/core/services"
	"github.com/SscSPs/fundflow_engine/internal/events/rabbitmq"
	"github.com/SscSPs/fundflow_engine/internal/locking/redislock"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
	"github.com/SscSPs/fundflow_engine/internal/platform/config"
	"github.com/SscSPs/fundflow_engine/internal/repositories/database/pgsql"
	"github.com/SscSPs/fundflow_engine/internal/repositories/memory"
	"github.com/SscSPs/fundflow_engine/pkg/database"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = middleware.WithLogger(ctx, logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var checks []readinessCheck

	// --- Storage ---
	var repos portsrepo.RepositoryProvider
	switch cfg.StoreDriver {
	case config.StorePostgres:
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return err
		}
		defer database.ClosePgxPool(dbPool)

		if err := runMigrations(logger, cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			return err
		}
		repos = pgsql.NewRepositoryProvider(dbPool)
		checks = append(checks, readinessCheck{name: "postgres", check: dbPool.Ping})
	default:
		logger.Warn("Using in-memory store; state is lost on restart")
		repos = memory.NewRepositoryProvider(memory.New())
	}

	// --- Messaging ---
	var (
		amqpConn  *amqp.Connection
		gateway   portssvc.PaymentGateway = rabbitmq.FallbackGateway{}
		publisher portssvc.EventPublisher
	)
	if cfg.AMQPURL != "" {
		conn, err := rabbitmq.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Warn("RabbitMQ unavailable; events will be logged only", slog.String("error", err.Error()))
		} else {
			amqpConn = conn
			defer amqpConn.Close()

			producer, err := rabbitmq.NewEventProducer(amqpConn, cfg.EventsExchange)
			if err != nil {
				return err
			}
			defer producer.Close()
			publisher = producer
			gateway = rabbitmq.NewPaymentCommandGateway(producer, cfg.PaymentsExchange)
			checks = append(checks, readinessCheck{name: "rabbitmq", check: func(context.Context) error {
				if amqpConn.IsClosed() {
					return errors.New("connection closed")
				}
				return nil
			}})
		}
	}

	// --- Locking ---
	locker := services.NewProjectLocker()
	if cfg.RedisURL != "" {
		rdb, err := redislock.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = redislock.New(rdb, cfg.RedisKeyPrefix, cfg.LockTTL)
		checks = append(checks, readinessCheck{name: "redis", check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	dispatcher := services.NewAsyncPaymentDispatcher(gateway, logger, cfg.PaymentDispatchWorkers, cfg.PaymentDispatchBuffer)
	defer dispatcher.Close()

	opts := []services.ServiceOption{
		services.WithLocker(locker),
		services.WithDispatcher(dispatcher),
	}
	if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
	}
	container := services.NewServiceContainer(cfg, repos, opts...)

	// --- Workers ---
	g, gctx := errgroup.WithContext(ctx)

	if amqpConn != nil {
		consumer, err := rabbitmq.NewConsumer(amqpConn)
		if err != nil {
			return err
		}
		defer consumer.Close()

		handler := rabbitmq.NewPaymentEventHandler(container.Lifecycle)
		g.Go(func() error {
			return consumer.Run(gctx, cfg.PaymentsExchange, cfg.PaymentEventQueue, rabbitmq.PaymentEventKeys, handler.Handle)
		})
	}

	g.Go(func() error {
		sweepDeadlines(gctx, container.Lifecycle, cfg.DeadlineSweepInterval)
		return nil
	})

	srv := newHealthServer(cfg, logger, checks)
	g.Go(func() error {
		logger.Info("Health server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// sweepDeadlines closes expired funding windows on every tick until ctx is done.
func sweepDeadlines(ctx context.Context, lifecycle portssvc.ProjectLifecycleSvc, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sctx := middleware.WithOperationLogger(ctx, "sweep_deadlines")
			closed, err := lifecycle.SweepDeadlines(sctx, now.UTC())
			logger := middleware.GetLoggerFromCtx(sctx)
			if err != nil {
				logger.Error("Deadline sweep failed", slog.String("error", err.Error()))
				continue
			}
			if len(closed) > 0 {
				logger.Info("Deadline sweep closed projects", slog.Any("project_ids", closed))
			}
		}
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
