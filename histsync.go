package histsync

import (
	"context"

	"go.uber.org/zap"

	"histsync/config"
	"histsync/reconcile"
	"histsync/retry"
	"histsync/storage"
	"histsync/youtube"
)

// Client bundles a connected store, a fetcher bound to the configured
// API key, and a ready-to-use reconciler.
type Client struct {
	Reconciler *reconcile.Reconciler
	Store      *storage.MongoStore
	Fetcher    *youtube.Fetcher
}

// Open wires configuration into a connected client. A nil logger
// disables logging.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewMongoStore(ctx, storage.MongoOptions{
		URI:               cfg.MongoURI,
		Database:          cfg.MongoDatabase,
		VideoCollection:   cfg.VideoCollection,
		ChannelCollection: cfg.ChannelCollection,
		BulkSize:          cfg.StoreBatchSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	fetcher, err := youtube.NewFetcher(ctx, cfg.APIKey,
		youtube.WithRateLimit(cfg.RequestsPerSecond, cfg.MaxConcurrentFetches))
	if err != nil {
		store.Close(ctx)
		return nil, err
	}

	engineCfg := reconcile.Config{
		APIBatchSize:         cfg.APIBatchSize,
		MaxConcurrentFetches: cfg.MaxConcurrentFetches,
		Retry: retry.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
			Multiplier:     cfg.BackoffMultiplier,
			JitterFraction: 0.2,
		},
	}

	return &Client{
		Reconciler: reconcile.New(fetcher, store, engineCfg, logger),
		Store:      store,
		Fetcher:    fetcher,
	}, nil
}

// Close releases the client's store connection.
func (c *Client) Close(ctx context.Context) error {
	return c.Store.Close(ctx)
}
