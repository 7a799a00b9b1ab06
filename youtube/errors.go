package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoData indicates the API returned a well-formed response with no
// items for a batch. It signals "nothing to merge", not a failure, and
// is never retried.
var ErrNoData = errors.New("youtube: no data for batch")

// AuthError reports a rejected API key. It is fatal for a whole
// reconciliation run, not just one batch: the same key fails
// identically for every subsequent call.
type AuthError struct {
	// Key is the offending API key, passed through unmodified.
	Key string
	// Status is the upstream HTTP status code.
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("youtube: api key rejected (status %d)", e.Status)
}

// UpstreamError reports a non-auth API failure for one id batch.
type UpstreamError struct {
	// IDs are the video ids of the failed batch.
	IDs []string
	// Status is the upstream HTTP status code, 0 for transport errors.
	Status int
	// Body is the raw response body, or the transport error text.
	Body string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("youtube: fetch failed for %d ids (status %d): %s",
		len(e.IDs), e.Status, firstLine(e.Body))
}

// IsRetryable classifies fetch errors for per-batch retries. Transient
// upstream failures are retryable; credential rejections, empty batches
// and cancelled contexts are permanent.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNoData) {
		return false
	}
	var authErr *AuthError
	return !errors.As(err, &authErr)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
