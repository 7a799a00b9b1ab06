package histsync

import (
	"histsync/batch"
	"histsync/reconcile"
	"histsync/storage"
	"histsync/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, histsync.ErrNoData) {
//		fmt.Println("upstream had nothing for this batch")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var authErr *histsync.AuthError
//	if errors.As(err, &authErr) {
//		fmt.Printf("key %s rejected with status %d\n", authErr.Key, authErr.Status)
//	}

// Type aliases for convenient error handling.
type (
	// AuthError reports a rejected API key; it aborts a whole run.
	AuthError = youtube.AuthError
	// UpstreamError reports a batch-scoped upstream failure.
	UpstreamError = youtube.UpstreamError
	// StoreError wraps document store failures.
	StoreError = storage.StoreError
	// BatchError records one fetch batch that contributed nothing.
	BatchError = reconcile.BatchError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrNoData indicates the API had no items for a batch.
	ErrNoData = youtube.ErrNoData
	// ErrInvalidChunkSize indicates a chunk size below 1.
	ErrInvalidChunkSize = batch.ErrInvalidChunkSize
	// ErrNotFound indicates an entity was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrInvalidInput indicates invalid input was provided to storage.
	ErrInvalidInput = storage.ErrInvalidInput
)
