// Package reconcile drives incremental synchronization of the local
// video store against the YouTube Data API: dedup against the channel
// membership index, concurrent batched fetch, idempotent merge of both
// collections, then a readback of the materialized result.
package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"histsync/batch"
	"histsync/retry"
	"histsync/storage"
	"histsync/youtube"
)

// MetadataFetcher is the upstream source of video metadata. The batch
// handed to one call never exceeds the configured API batch size.
type MetadataFetcher interface {
	// FetchVideoDetails returns one record per requested id in caller
	// order, degrading ids absent upstream to null records. See the
	// youtube package for the error taxonomy.
	FetchVideoDetails(ctx context.Context, ids []string) ([]storage.VideoDetails, error)
}

// Config tunes a Reconciler.
type Config struct {
	// APIBatchSize is the fetch batch size. Must not exceed the
	// upstream per-call limit of youtube.APIMaxBatchSize.
	APIBatchSize int
	// MaxConcurrentFetches bounds in-flight fetch batches so very
	// large unknown sets respect upstream rate limits. 0 means
	// unbounded.
	MaxConcurrentFetches int
	// Retry governs per-batch retries of transient upstream failures.
	Retry retry.Config
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() Config {
	return Config{
		APIBatchSize:         youtube.APIMaxBatchSize,
		MaxConcurrentFetches: 8,
		Retry:                retry.DefaultConfig(),
	}
}

// Options parameterize a single run.
type Options struct {
	// ForceUpdate overwrites already-stored video details with the
	// freshly fetched ones. Off by default: stored data wins over a
	// blind re-fetch. Turn on for a repair run.
	ForceUpdate bool
	// Progress, if non-nil, receives stage transitions. Observational
	// only; it has no effect on the run's outcome.
	Progress ProgressFunc
}

// BatchError records one fetch batch that contributed nothing.
type BatchError struct {
	// IDs are the video ids of the failed batch.
	IDs []string
	// Err is what the batch failed with, after retries.
	Err error
}

// Result is the outcome of a completed run. BatchErrors and Unresolved
// make a partial result distinguishable from a complete one: the
// unresolved ids stay unknown to the index and a subsequent run
// retries them.
type Result struct {
	// RunID uniquely identifies this run in logs.
	RunID string
	// Videos is the materialized view: every stored record for the
	// original candidate id set, nulls included.
	Videos []storage.VideoDetails
	// Unknown is how many candidate ids needed fetching.
	Unknown int
	// Fetched is how many records the upstream fetch produced.
	Fetched int
	// Unresolved are the unknown ids whose batch failed non-fatally.
	Unresolved []string
	// BatchErrors are the non-fatal per-batch failures.
	BatchErrors []BatchError
}

// Reconciler orchestrates reconciliation runs. It holds no cross-run
// state; everything durable lives in the two store collections, and
// concurrent runs over overlapping channels are safe because every
// write is an idempotent merge.
type Reconciler struct {
	fetcher MetadataFetcher
	store   storage.Store
	planner *Planner
	cfg     Config
	logger  *zap.Logger
}

// New creates a reconciler. A nil logger disables logging.
func New(fetcher MetadataFetcher, store storage.Store, cfg Config, logger *zap.Logger) *Reconciler {
	if cfg.APIBatchSize < 1 {
		cfg.APIBatchSize = youtube.APIMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		fetcher: fetcher,
		store:   store,
		planner: NewPlanner(store),
		cfg:     cfg,
		logger:  logger,
	}
}

// Reconcile runs one synchronization pass over the candidate sets.
//
// It returns a Result when the run completes, even if some batches
// failed non-fatally, and an error when the run aborts: a rejected API
// key (*youtube.AuthError) cancels all in-flight batches, a store
// failure (*storage.StoreError) stops the current stage. Both are safe
// to re-run; batches merged before an abort stay merged.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []storage.ChannelVideos, opts Options) (*Result, error) {
	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))
	report := func(stage Stage, done, total int) {
		if opts.Progress != nil {
			opts.Progress(stage, done, total)
		}
	}

	report(StageDedup, 0, 0)
	unknown, err := r.planner.Unknown(ctx, candidates)
	if err != nil {
		return nil, err
	}
	logger.Info("dedup complete",
		zap.Int("channels", len(candidates)),
		zap.Int("unknown_ids", len(unknown)))

	res := &Result{RunID: runID, Unknown: len(unknown)}

	if len(unknown) > 0 {
		batches, err := batch.Split(unknown, r.cfg.APIBatchSize)
		if err != nil {
			return nil, err
		}

		fetched, batchErrs, err := r.fetchBatches(ctx, batches, report, logger)
		if err != nil {
			return nil, err
		}
		res.BatchErrors = batchErrs
		for _, be := range batchErrs {
			res.Unresolved = append(res.Unresolved, be.IDs...)
		}

		var details []storage.VideoDetails
		for _, d := range fetched {
			details = append(details, d...)
		}
		res.Fetched = len(details)

		if len(details) > 0 {
			report(StageMergeVideos, 0, 0)
			if err := r.store.UpsertVideos(ctx, details, opts.ForceUpdate); err != nil {
				return nil, err
			}

			report(StageMergeIndex, 0, 0)
			if updates := storage.ChannelVideosFromDetails(details); len(updates) > 0 {
				if err := r.store.MergeChannelVideos(ctx, updates); err != nil {
					return nil, err
				}
			}
		}
	}

	report(StageReadback, 0, 0)
	videos, err := r.store.FindVideosByIDs(ctx, candidateIDs(candidates))
	if err != nil {
		return nil, err
	}
	res.Videos = videos

	report(StageDone, 0, 0)
	logger.Info("reconciliation complete",
		zap.Int("unknown_ids", res.Unknown),
		zap.Int("fetched", res.Fetched),
		zap.Int("unresolved", len(res.Unresolved)),
		zap.Int("materialized", len(res.Videos)))
	return res, nil
}

// Query returns stored details for the given ids without triggering
// any upstream fetch.
func (r *Reconciler) Query(ctx context.Context, ids []string) ([]storage.VideoDetails, error) {
	return r.store.FindVideosByIDs(ctx, ids)
}

// fetchBatches fans the batches out concurrently and joins them.
// Non-fatal batch failures land in the returned BatchError slice; a
// rejected key aborts the whole fan-out, cancelling in-flight batches
// through the group context.
func (r *Reconciler) fetchBatches(ctx context.Context, batches [][]string, report func(Stage, int, int), logger *zap.Logger) ([][]storage.VideoDetails, []BatchError, error) {
	g, ctx := errgroup.WithContext(ctx)
	if r.cfg.MaxConcurrentFetches > 0 {
		g.SetLimit(r.cfg.MaxConcurrentFetches)
	}

	// One slot per batch; no cross-goroutine mutation.
	results := make([][]storage.VideoDetails, len(batches))
	failures := make([]error, len(batches))
	var done atomic.Int64

	report(StageFetching, 0, len(batches))
	for i, ids := range batches {
		i, ids := i, ids
		g.Go(func() error {
			details, err := r.fetchOne(ctx, ids)
			if err != nil {
				var authErr *youtube.AuthError
				if errors.As(err, &authErr) {
					logger.Error("api key rejected, aborting run",
						zap.Int("status", authErr.Status))
					return err
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if errors.Is(err, youtube.ErrNoData) {
					logger.Debug("batch had no upstream data", zap.Int("batch", i))
				} else {
					logger.Warn("batch fetch failed",
						zap.Error(err),
						zap.Int("batch", i),
						zap.Int("ids", len(ids)))
				}
				failures[i] = err
			} else {
				results[i] = details
			}
			report(StageFetching, int(done.Add(1)), len(batches))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var batchErrs []BatchError
	for i, err := range failures {
		if err != nil {
			batchErrs = append(batchErrs, BatchError{IDs: batches[i], Err: err})
		}
	}
	return results, batchErrs, nil
}

// fetchOne fetches a single batch, retrying transient upstream failures.
func (r *Reconciler) fetchOne(ctx context.Context, ids []string) ([]storage.VideoDetails, error) {
	var details []storage.VideoDetails
	err := retry.Do(ctx, r.cfg.Retry, youtube.IsRetryable, func(ctx context.Context) error {
		d, err := r.fetcher.FetchVideoDetails(ctx, ids)
		if err != nil {
			return err
		}
		details = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// candidateIDs flattens the candidate sets into one deduplicated,
// sorted id list for the readback query.
func candidateIDs(candidates []storage.ChannelVideos) []string {
	set := make(map[string]struct{})
	for _, c := range candidates {
		for _, id := range c.VideoIDs {
			set[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
