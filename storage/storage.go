// Package storage persists reconciled YouTube metadata in two
// collections: one document per video, and one membership document per
// channel. All write operations are idempotent; reconciliation relies
// on that instead of cross-collection transactions.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
)

// StoreError wraps storage errors with operation and collection context.
// Use errors.As() to extract it:
//
//	var storeErr *storage.StoreError
//	if errors.As(err, &storeErr) {
//		fmt.Printf("%s on %s failed: %v\n", storeErr.Op, storeErr.Collection, storeErr.Err)
//	}
type StoreError struct {
	// Op is the operation that failed ("find", "upsert", "merge").
	Op string
	// Collection is the collection the operation targeted.
	Collection string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StoreError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Collection, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StoreError) Unwrap() error { return e.Err }

// VideoStore handles video metadata documents.
type VideoStore interface {
	// FindVideosByIDs retrieves the stored details for the given video
	// ids. Missing ids are simply absent from the result; absence means
	// "not yet synchronized", not an error.
	FindVideosByIDs(ctx context.Context, ids []string) ([]VideoDetails, error)

	// UpsertVideos inserts details for ids with no stored document. For
	// ids that already have one, the incoming record is silently
	// skipped unless forceUpdate is set, in which case it overwrites
	// the stored attributes. One bulk mixed insert/update call.
	UpsertVideos(ctx context.Context, details []VideoDetails, forceUpdate bool) error
}

// ChannelVideoStore handles per-channel membership documents.
type ChannelVideoStore interface {
	// FindChannelsByIDs retrieves membership documents for the given
	// channel ids. Missing channels are absent from the result.
	FindChannelsByIDs(ctx context.Context, channelIDs []string) ([]ChannelVideos, error)

	// MergeChannelVideos inserts a membership document per previously
	// unseen channel and unions VideoIDs into existing ones. An update
	// is issued only when the union actually grows, so a steady-state
	// re-sync performs no writes at all. One bulk mixed insert/update
	// call.
	MergeChannelVideos(ctx context.Context, updates []ChannelVideos) error
}

// Store is the full storage surface used by reconciliation.
// Implementations must be safe for concurrent use.
type Store interface {
	VideoStore
	ChannelVideoStore

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}
