// Package cache mirrors the latest instrument snapshots into Redis so
// consumers outside the process (tickers, bots, other dashboards) can read
// last quotes without subscribing to the in-process bus.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aurasignal/signal-dashboard/internal/models"
)

const snapshotTTL = 5 * time.Minute

// SnapshotCache writes each tick batch to Redis keyed per symbol.
type SnapshotCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewSnapshotCache(client *redis.Client, logger *slog.Logger) *SnapshotCache {
	return &SnapshotCache{client: client, logger: logger}
}

// Ping reports connectivity for health checks.
func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *SnapshotCache) key(symbol string) string {
	return fmt.Sprintf("snapshots:%s", symbol)
}

// OnTickBatch is a bus handler; write failures are logged, never propagated
// into the tick pipeline.
func (c *SnapshotCache) OnTickBatch(batch models.TickBatch) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := c.client.Pipeline()
	for _, snap := range batch.Snapshots {
		data, err := json.Marshal(snap)
		if err != nil {
			c.logger.Error("failed to marshal snapshot", slog.String("symbol", snap.Symbol), slog.Any("error", err))
			continue
		}
		pipe.Set(ctx, c.key(snap.Symbol), data, snapshotTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("failed to cache tick batch", slog.Any("error", err))
	}
}

// GetSnapshot reads the cached snapshot for symbol; ok is false when the key
// is missing or expired.
func (c *SnapshotCache) GetSnapshot(ctx context.Context, symbol string) (models.Snapshot, bool, error) {
	data, err := c.client.Get(ctx, c.key(symbol)).Bytes()
	if err == redis.Nil {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("failed to read cached snapshot: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return snap, true, nil
}
