// Package config manages application configuration.
//
// Settings load from three sources in priority order: HISTSYNC_*
// environment variables, an optional histsync.yaml config file, and
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all histsync configuration.
type Config struct {
	// MongoURI is the MongoDB connection string.
	MongoURI string `mapstructure:"mongo_uri"`
	// MongoDatabase is the database holding both collections.
	MongoDatabase string `mapstructure:"mongo_database"`
	// VideoCollection is the video details collection name.
	VideoCollection string `mapstructure:"video_collection"`
	// ChannelCollection is the channel membership collection name.
	ChannelCollection string `mapstructure:"channel_collection"`

	// APIKey is the YouTube Data API key, passed through unmodified.
	APIKey string `mapstructure:"api_key"`
	// APIBatchSize is the number of video ids per videos.list call.
	// The endpoint caps this at 50.
	APIBatchSize int `mapstructure:"api_batch_size"`
	// StoreBatchSize is the number of write models per bulk write.
	StoreBatchSize int `mapstructure:"store_batch_size"`
	// MaxConcurrentFetches bounds in-flight API batches (0 = unbounded).
	MaxConcurrentFetches int `mapstructure:"max_concurrent_fetches"`
	// RequestsPerSecond caps outbound API calls (0 = unlimited).
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// MaxRetries is the per-batch retry budget for transient API failures.
	MaxRetries int `mapstructure:"max_retries"`
	// InitialBackoff is the initial retry delay.
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	// MaxBackoff is the maximum retry delay.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
	// BackoffMultiplier is the exponential backoff multiplier (must be > 1).
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "youtube")
	v.SetDefault("video_collection", "videoDetails")
	v.SetDefault("channel_collection", "channelVideos")
	v.SetDefault("api_key", "")
	v.SetDefault("api_batch_size", 50)
	v.SetDefault("store_batch_size", 1000)
	v.SetDefault("max_concurrent_fetches", 8)
	v.SetDefault("requests_per_second", 10.0)
	v.SetDefault("max_retries", 3)
	v.SetDefault("initial_backoff", 500*time.Millisecond)
	v.SetDefault("max_backoff", 10*time.Second)
	v.SetDefault("backoff_multiplier", 2.0)
}

// Load reads configuration from histsync.yaml (current directory or
// ~/.config/histsync), overridden by HISTSYNC_* environment variables.
// The config file is optional.
func Load() (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetConfigName("histsync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/histsync")

	v.SetEnvPrefix("HISTSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.APIBatchSize < 1 || c.APIBatchSize > 50 {
		return fmt.Errorf("config: api_batch_size must be between 1 and 50, got %d", c.APIBatchSize)
	}
	if c.StoreBatchSize < 1 {
		return fmt.Errorf("config: store_batch_size must be >= 1, got %d", c.StoreBatchSize)
	}
	if c.MaxConcurrentFetches < 0 {
		return fmt.Errorf("config: max_concurrent_fetches must be >= 0, got %d", c.MaxConcurrentFetches)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("config: backoff_multiplier must be > 1, got %g", c.BackoffMultiplier)
	}
	return nil
}
