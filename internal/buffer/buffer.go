// Package buffer defines the ingestion buffer abstraction: the queue of
// alerts accepted since the last flush. Implementations must serialize
// concurrent appends and drain atomically, so no alert is ever read by two
// consecutive batches or lost during a swap.
package buffer

import (
	"context"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// Buffer holds alerts between batch flushes.
// All methods must be safe for concurrent use.
type Buffer interface {
	// Append admits an alert to the buffer.
	Append(ctx context.Context, alert *domain.RawAlert) error

	// Drain atomically snapshots all buffered alerts and clears the buffer
	// in one step. Appends racing with a drain land in exactly one batch.
	Drain(ctx context.Context) ([]*domain.RawAlert, error)

	// Len returns the number of currently buffered alerts.
	Len(ctx context.Context) (int, error)
}
