package domain

import (
	"context"
	"time"
)

// ProcessedRepository records which order ids and receipt event ids have
// already been handled. MarkOrder and MarkReceipt are insert-if-absent: they
// return true exactly once per key, even under concurrent callers.
type ProcessedRepository interface {
	MarkOrder(ctx context.Context, orderID string) (first bool, err error)
	MarkReceipt(ctx context.Context, eventID string) (first bool, err error)
	// Evict drops entries recorded before the cutoff. Safe to run while
	// marking; a re-delivered event older than the cutoff is already
	// excluded by the subscription watermark.
	Evict(ctx context.Context, cutoff time.Time) error
	Close()
}
