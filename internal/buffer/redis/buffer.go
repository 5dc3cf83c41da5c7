// Package redis provides a Redis-backed ingestion buffer. Alerts buffered
// but not yet flushed survive a process restart, at the cost of a round trip
// per append.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladvaleanu/nxforge-correlator/internal/config"
	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// bufferKey is the Redis list holding pending alerts in arrival order.
const bufferKey = "correlator:buffer"

// Buffer implements buffer.Buffer on a Redis list.
type Buffer struct {
	client *redis.Client
}

// NewBuffer creates a new Redis-backed ingestion buffer.
func NewBuffer(cfg *config.RedisConfig) (*Buffer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Buffer{client: client}, nil
}

// Append admits an alert to the buffer.
func (b *Buffer) Append(ctx context.Context, alert *domain.RawAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if err := b.client.RPush(ctx, bufferKey, data).Err(); err != nil {
		return fmt.Errorf("failed to append alert to buffer: %w", err)
	}

	return nil
}

// Drain atomically snapshots and clears the buffer. The read and the delete
// run inside one MULTI/EXEC block, so appends racing with the drain either
// land in this snapshot or stay queued for the next one.
func (b *Buffer) Drain(ctx context.Context) ([]*domain.RawAlert, error) {
	pipe := b.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, bufferKey, 0, -1)
	pipe.Del(ctx, bufferKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to drain buffer: %w", err)
	}

	entries, err := rangeCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read drained buffer: %w", err)
	}

	alerts := make([]*domain.RawAlert, 0, len(entries))
	for _, entry := range entries {
		var alert domain.RawAlert
		if err := json.Unmarshal([]byte(entry), &alert); err != nil {
			return nil, fmt.Errorf("failed to unmarshal buffered alert: %w", err)
		}
		alerts = append(alerts, &alert)
	}

	return alerts, nil
}

// Len returns the number of currently buffered alerts.
func (b *Buffer) Len(ctx context.Context) (int, error) {
	n, err := b.client.LLen(ctx, bufferKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read buffer length: %w", err)
	}
	return int(n), nil
}

// Close releases the Redis connection.
func (b *Buffer) Close() error {
	return b.client.Close()
}
