// Package memory provides the in-memory ingestion buffer.
package memory

import (
	"context"
	"sync"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// Buffer is a mutex-guarded slice of pending alerts. Drain swaps the slice
// out under the lock, so grouping and correlation never run while holding it
// and ingestion is never blocked by slow downstream work.
type Buffer struct {
	mu      sync.Mutex
	pending []*domain.RawAlert
}

// NewBuffer creates a new in-memory ingestion buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append admits an alert to the buffer.
func (b *Buffer) Append(ctx context.Context, alert *domain.RawAlert) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, alert)
	return nil
}

// Drain atomically snapshots and clears the buffer.
func (b *Buffer) Drain(ctx context.Context) ([]*domain.RawAlert, error) {
	b.mu.Lock()
	snapshot := b.pending
	b.pending = nil
	b.mu.Unlock()

	return snapshot, nil
}

// Len returns the number of currently buffered alerts.
func (b *Buffer) Len(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.pending), nil
}
