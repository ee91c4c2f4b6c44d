package match

import (
	"context"
	"fmt"
	"time"

	appErr "tichu-service/pkg/errors"
	"tichu-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockPollInterval = 10 * time.Millisecond

// Deletes the key only while it still holds our token, so an expired lock taken over by
// another request is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type locker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
}

// acquire blocks until the match lock is held or wait elapses. The returned func releases it.
func (l *locker) acquire(ctx context.Context, matchID int64) (func(), error) {
	key := buildMatchLockKey(matchID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: lock match %d: %v", appErr.ErrStoreUnavailable, matchID, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: match %d is busy", appErr.ErrStoreUnavailable, matchID)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: lock match %d: %v", appErr.ErrStoreUnavailable, matchID, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
			logger.Log.Warn("release match lock failed",
				zap.Int64("matchID", matchID),
				zap.Error(err),
			)
		}
	}, nil
}

func buildMatchLockKey(matchID int64) string {
	return fmt.Sprintf("match:lock:%d", matchID)
}

func buildMatchReadyKey(matchID int64) string {
	return fmt.Sprintf("match:ready:%d", matchID)
}
