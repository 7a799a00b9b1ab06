// Package batch splits ordered sequences into fixed-size chunks.
//
// Both the YouTube Data API and MongoDB bulk writes enforce per-call
// item limits; the two call sites configure their own chunk sizes.
package batch

import "errors"

// ErrInvalidChunkSize indicates a chunk size below 1 was requested.
var ErrInvalidChunkSize = errors.New("batch: chunk size must be >= 1")

// Split divides seq into chunks of at most size elements.
// The last chunk may be shorter. Chunks are subslices of seq; callers
// must not mutate seq while holding chunks.
func Split[T any](seq []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, ErrInvalidChunkSize
	}

	if len(seq) == 0 {
		return nil, nil
	}

	chunks := make([][]T, 0, (len(seq)+size-1)/size)
	for start := 0; start < len(seq); start += size {
		end := start + size
		if end > len(seq) {
			end = len(seq)
		}
		chunks = append(chunks, seq[start:end])
	}
	return chunks, nil
}
