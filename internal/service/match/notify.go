package match

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tichu-service/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type notifier struct {
	rdb      *redis.Client
	prefix   string
	readyTTL time.Duration
}

// Channel returns the pub/sub channel carrying events for one match.
func Channel(prefix string, matchID int64) string {
	return fmt.Sprintf("%s:%d", prefix, matchID)
}

// publish runs after commit. Failures are logged only: the mutation is already durable and
// readers can always fall back to polling match state.
func (n *notifier) publish(ctx context.Context, evt Event) {
	ctx = context.WithoutCancel(ctx)

	readyKey := buildMatchReadyKey(evt.MatchID)
	var err error
	if evt.TeamAConfirmed && evt.TeamBConfirmed {
		err = n.rdb.Set(ctx, readyKey, evt.Version, n.readyTTL).Err()
	} else {
		err = n.rdb.Del(ctx, readyKey).Err()
	}
	if err != nil {
		logger.Log.Warn("update match ready key failed",
			zap.Int64("matchID", evt.MatchID),
			zap.Error(err),
		)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		logger.Log.Error("marshal match event failed", zap.Error(err))
		return
	}
	if err := n.rdb.Publish(ctx, Channel(n.prefix, evt.MatchID), data).Err(); err != nil {
		logger.Log.Warn("publish match event failed",
			zap.Int64("matchID", evt.MatchID),
			zap.String("type", evt.Type),
			zap.Error(err),
		)
	}
}

func (n *notifier) subscribe(ctx context.Context, matchID int64) *redis.PubSub {
	return n.rdb.Subscribe(ctx, Channel(n.prefix, matchID))
}
