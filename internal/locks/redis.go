package locks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/orvane/docflow-backend/internal/errs"
	"github.com/orvane/docflow-backend/internal/logger"
	"github.com/orvane/docflow-backend/internal/utils"
)

// releaseScript deletes the lock key only when the holder token still
// matches, so an expired lock re-acquired by someone else is never released
// by the previous holder.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

type RedisLocker struct {
	log       *logger.Logger
	rdb       *goredis.Client
	keyPrefix string
	wait      time.Duration
	poll      time.Duration
}

func NewRedisLocker(log *logger.Logger) (*RedisLocker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	waitMS := utils.GetEnvAsInt("WORKFLOW_LOCK_WAIT_MS", 3000, log)
	return &RedisLocker{
		log:       log.With("service", "RedisLocker"),
		rdb:       rdb,
		keyPrefix: "docflow:instance_lock:",
		wait:      time.Duration(waitMS) * time.Millisecond,
		poll:      50 * time.Millisecond,
	}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, instanceID uuid.UUID, ttl time.Duration) (func(), error) {
	key := l.keyPrefix + instanceID.String()
	token := uuid.New().String()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: redis setnx: %v", errs.ErrRetryable, err)
		}
		if ok {
			release := func() {
				relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := l.rdb.Eval(relCtx, releaseScript, []string{key}, token).Err(); err != nil {
					l.log.Warn("Lock release failed", "instance_id", instanceID, "error", err)
				}
			}
			return release, nil
		}
		if time.Now().After(deadline) {
			return nil, errs.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", errs.ErrLockTimeout, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}

func (l *RedisLocker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
