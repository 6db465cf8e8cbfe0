// Package redislock provides a per-project lock shared by every engine
// instance through Redis.
package redislock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL     = 30 * time.Second
	retryInterval  = 25 * time.Millisecond
	releaseTimeout = 2 * time.Second
)

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Extends the key only while it still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Client is the subset of the go-redis client the locker needs.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// Locker implements portssvc.ProjectLocker with SET NX PX. While held, the
// key's TTL is refreshed every third of the TTL so long mutations keep it.
type Locker struct {
	client Client
	prefix string
	ttl    time.Duration
}

var _ portssvc.ProjectLocker = (*Locker)(nil)

// New creates a Locker storing keys as "<prefix>:<projectID>".
func New(client Client, prefix string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Locker{client: client, prefix: strings.TrimSuffix(prefix, ":"), ttl: ttl}
}

// Connect builds a client from a redis:// URL or a bare host:port and pings it.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (l *Locker) key(projectID string) string {
	return l.prefix + ":" + projectID
}

// Lock polls until the key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, projectID string) (func(), error) {
	key := l.key(projectID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock for project %s: %w", projectID, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire lock for project %s: %w", projectID, ctx.Err())
		case <-timer.C:
		}
	}

	logger := middleware.GetLoggerFromCtx(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(logger, key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done

			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				// The key expires on its own after the TTL.
				logger.Error("Failed to release project lock",
					slog.String("key", key),
					slog.String("error", err.Error()))
			}
		})
	}, nil
}

func (l *Locker) keepAlive(logger *slog.Logger, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			n, err := extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int64()
			cancel()
			if err != nil {
				logger.Warn("Failed to extend project lock", slog.String("key", key), slog.String("error", err.Error()))
				continue
			}
			if n == 0 {
				logger.Error("Project lock lost before release", slog.String("key", key))
				return
			}
		}
	}
}
