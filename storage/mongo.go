package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"histsync/batch"
)

// Default collection names and bulk sizing for the Mongo store.
const (
	DefaultVideoCollection   = "videoDetails"
	DefaultChannelCollection = "channelVideos"
	// DefaultBulkSize caps write models per BulkWrite round trip.
	DefaultBulkSize = 1000
)

// MongoOptions configures the Mongo-backed store.
type MongoOptions struct {
	// URI is the MongoDB connection string.
	URI string
	// Database is the database name.
	Database string
	// VideoCollection overrides DefaultVideoCollection when non-empty.
	VideoCollection string
	// ChannelCollection overrides DefaultChannelCollection when non-empty.
	ChannelCollection string
	// BulkSize overrides DefaultBulkSize when positive.
	BulkSize int
}

// MongoStore implements Store on top of MongoDB. All bulk writes go
// through a shared circuit breaker so a struggling database sheds load
// instead of piling up round trips.
type MongoStore struct {
	client   *mongo.Client
	videos   *mongo.Collection
	channels *mongo.Collection
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	bulkSize int
}

// NewMongoStore connects to MongoDB, verifies the connection, and
// ensures the unique indexes the upsert filters rely on.
func NewMongoStore(ctx context.Context, opts MongoOptions, logger *zap.Logger) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("%w: mongo URI required", ErrInvalidInput)
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("%w: database name required", ErrInvalidInput)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	videoColl := opts.VideoCollection
	if videoColl == "" {
		videoColl = DefaultVideoCollection
	}
	channelColl := opts.ChannelCollection
	if channelColl == "" {
		channelColl = DefaultChannelCollection
	}
	bulkSize := opts.BulkSize
	if bulkSize <= 0 {
		bulkSize = DefaultBulkSize
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(opts.Database)
	s := &MongoStore{
		client:   client,
		videos:   db.Collection(videoColl),
		channels: db.Collection(channelColl),
		logger:   logger,
		bulkSize: bulkSize,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "mongo-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	logger.Info("mongo store ready",
		zap.String("database", opts.Database),
		zap.String("video_collection", videoColl),
		zap.String("channel_collection", channelColl))
	return s, nil
}

// ensureIndexes creates the unique key indexes backing the upsert filters.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.videos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return &StoreError{Op: "index", Collection: s.videos.Name(), Err: err}
	}

	_, err = s.channels.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "channelId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return &StoreError{Op: "index", Collection: s.channels.Name(), Err: err}
	}
	return nil
}

// FindVideosByIDs retrieves stored details for the given video ids.
func (s *MongoStore) FindVideosByIDs(ctx context.Context, ids []string) ([]VideoDetails, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		cursor, err := s.videos.Find(ctx, bson.D{{Key: "id", Value: bson.D{{Key: "$in", Value: ids}}}})
		if err != nil {
			return nil, err
		}
		var details []VideoDetails
		if err := cursor.All(ctx, &details); err != nil {
			return nil, err
		}
		return details, nil
	})
	if err != nil {
		return nil, &StoreError{Op: "find", Collection: s.videos.Name(), Err: err}
	}
	return result.([]VideoDetails), nil
}

// FindChannelsByIDs retrieves membership documents for the given channel ids.
func (s *MongoStore) FindChannelsByIDs(ctx context.Context, channelIDs []string) ([]ChannelVideos, error) {
	if len(channelIDs) == 0 {
		return nil, nil
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		cursor, err := s.channels.Find(ctx, bson.D{{Key: "channelId", Value: bson.D{{Key: "$in", Value: channelIDs}}}})
		if err != nil {
			return nil, err
		}
		var channels []ChannelVideos
		if err := cursor.All(ctx, &channels); err != nil {
			return nil, err
		}
		return channels, nil
	})
	if err != nil {
		return nil, &StoreError{Op: "find", Collection: s.channels.Name(), Err: err}
	}
	return result.([]ChannelVideos), nil
}

// UpsertVideos inserts new video documents and, with forceUpdate,
// overwrites existing ones. Without forceUpdate existing documents win.
func (s *MongoStore) UpsertVideos(ctx context.Context, details []VideoDetails, forceUpdate bool) error {
	if len(details) == 0 {
		return nil
	}

	ids := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
	}

	existing, err := s.existingVideoIDs(ctx, ids)
	if err != nil {
		return err
	}

	models := planVideoUpserts(existing, details, forceUpdate)
	if err := s.bulkWrite(ctx, s.videos, "upsert", models); err != nil {
		return err
	}

	s.logger.Debug("videos upserted",
		zap.Int("incoming", len(details)),
		zap.Int("operations", len(models)),
		zap.Bool("force_update", forceUpdate))
	return nil
}

// MergeChannelVideos inserts unseen channels and unions member video
// ids into known ones, skipping channels whose membership is unchanged.
func (s *MongoStore) MergeChannelVideos(ctx context.Context, updates []ChannelVideos) error {
	if len(updates) == 0 {
		return nil
	}

	channelIDs := make([]string, 0, len(updates))
	for _, u := range updates {
		channelIDs = append(channelIDs, u.ChannelID)
	}

	stored, err := s.FindChannelsByIDs(ctx, channelIDs)
	if err != nil {
		return err
	}
	existing := make(map[string]ChannelVideos, len(stored))
	for _, ch := range stored {
		existing[ch.ChannelID] = ch
	}

	models := planChannelMerges(existing, updates)
	if err := s.bulkWrite(ctx, s.channels, "merge", models); err != nil {
		return err
	}

	s.logger.Debug("channel membership merged",
		zap.Int("channels", len(updates)),
		zap.Int("operations", len(models)))
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// existingVideoIDs returns which of the given ids already have a
// stored document, fetching only the id field.
func (s *MongoStore) existingVideoIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		cursor, err := s.videos.Find(ctx,
			bson.D{{Key: "id", Value: bson.D{{Key: "$in", Value: ids}}}},
			options.Find().SetProjection(bson.D{{Key: "id", Value: 1}}))
		if err != nil {
			return nil, err
		}
		var docs []struct {
			ID string `bson:"id"`
		}
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, err
		}
		existing := make(map[string]struct{}, len(docs))
		for _, doc := range docs {
			existing[doc.ID] = struct{}{}
		}
		return existing, nil
	})
	if err != nil {
		return nil, &StoreError{Op: "find", Collection: s.videos.Name(), Err: err}
	}
	return result.(map[string]struct{}), nil
}

// bulkWrite issues the write models as unordered bulk calls, chunked to
// the store's bulk size cap.
func (s *MongoStore) bulkWrite(ctx context.Context, coll *mongo.Collection, op string, models []mongo.WriteModel) error {
	if len(models) == 0 {
		return nil
	}

	chunks, err := batch.Split(models, s.bulkSize)
	if err != nil {
		return &StoreError{Op: op, Collection: coll.Name(), Err: err}
	}

	for _, chunk := range chunks {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return coll.BulkWrite(ctx, chunk, options.BulkWrite().SetOrdered(false))
		})
		if err != nil {
			s.logger.Error("bulk write failed",
				zap.Error(err),
				zap.String("collection", coll.Name()),
				zap.Int("operations", len(chunk)))
			return &StoreError{Op: op, Collection: coll.Name(), Err: err}
		}
	}
	return nil
}
