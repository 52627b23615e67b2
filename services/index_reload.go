package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"docchat-backend/internal/logger"
)

// IndexReloadChannel carries reload signals from the ingestion worker to
// every serving process holding an in-memory copy of the vector index.
const IndexReloadChannel = "docchat:index:reload"

// IndexLoader refreshes an in-process index snapshot from durable storage.
type IndexLoader interface {
	Load(ctx context.Context) error
}

// RedisReloadNotifier announces a completed ingest over Redis pub/sub.
type RedisReloadNotifier struct {
	rdb *redis.Client
}

func NewRedisReloadNotifier(rdb *redis.Client) *RedisReloadNotifier {
	return &RedisReloadNotifier{rdb: rdb}
}

func (n *RedisReloadNotifier) NotifyReload(ctx context.Context) error {
	return n.rdb.Publish(ctx, IndexReloadChannel, time.Now().UTC().Format(time.RFC3339)).Err()
}

// IndexReloadListener subscribes to reload signals and refreshes the
// given index on each one, so the serving process picks up documents
// ingested by the worker without a restart.
type IndexReloadListener struct {
	rdb     *redis.Client
	index   IndexLoader
	timeout time.Duration
}

func NewIndexReloadListener(rdb *redis.Client, index IndexLoader, timeout time.Duration) *IndexReloadListener {
	return &IndexReloadListener{rdb: rdb, index: index, timeout: timeout}
}

// Run blocks until ctx is cancelled, reloading the index once per signal.
func (l *IndexReloadListener) Run(ctx context.Context) {
	pubsub := l.rdb.Subscribe(ctx, IndexReloadChannel)
	defer pubsub.Close()

	signals := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			l.reload(ctx)
		}
	}
}

func (l *IndexReloadListener) reload(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.index.Load(loadCtx); err != nil {
		logger.Error("Failed to reload vector index", "error", err)
		return
	}
	logger.Info("Vector index reloaded")
}
