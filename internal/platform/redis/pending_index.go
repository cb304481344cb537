// Package redis keeps the set of non-terminal task IDs in Redis so the
// reconciliation sweep does not have to scan the whole record table.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/synth-api/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKey is the set key used when none is configured.
const DefaultKey = "synth:pending"

// PendingIndex is a Redis set of task IDs awaiting reconciliation. It is
// advisory: the record store stays authoritative for task status.
type PendingIndex struct {
	client goredis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewClient opens a go-redis client for cfg and verifies it with PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// NewPendingIndex creates an index stored under key.
func NewPendingIndex(client goredis.UniversalClient, key string, logger *slog.Logger) *PendingIndex {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingIndex{
		client: client,
		key:    key,
		logger: logger.With("component", "pending_index"),
	}
}

// Add marks taskID as pending.
func (p *PendingIndex) Add(ctx context.Context, taskID string) error {
	if err := p.client.SAdd(ctx, p.key, taskID).Err(); err != nil {
		return fmt.Errorf("pending index add %s: %w", taskID, err)
	}
	return nil
}

// Remove drops taskIDs from the index. Absent IDs are ignored.
func (p *PendingIndex) Remove(ctx context.Context, taskIDs ...string) error {
	if len(taskIDs) == 0 {
		return nil
	}

	members := make([]interface{}, len(taskIDs))
	for i, id := range taskIDs {
		members[i] = id
	}

	if err := p.client.SRem(ctx, p.key, members...).Err(); err != nil {
		return fmt.Errorf("pending index remove: %w", err)
	}
	return nil
}

// Members returns every pending task ID in no particular order.
func (p *PendingIndex) Members(ctx context.Context) ([]string, error) {
	ids, err := p.client.SMembers(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("pending index members: %w", err)
	}
	return ids, nil
}
