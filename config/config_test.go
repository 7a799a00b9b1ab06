package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "youtube", cfg.MongoDatabase)
	assert.Equal(t, "videoDetails", cfg.VideoCollection)
	assert.Equal(t, "channelVideos", cfg.ChannelCollection)
	assert.Equal(t, 50, cfg.APIBatchSize)
	assert.Equal(t, 1000, cfg.StoreBatchSize)
	assert.Equal(t, 8, cfg.MaxConcurrentFetches)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.MaxBackoff)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HISTSYNC_API_KEY", "env-key")
	t.Setenv("HISTSYNC_API_BATCH_SIZE", "25")
	t.Setenv("HISTSYNC_MONGO_DATABASE", "staging")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, 25, cfg.APIBatchSize)
	assert.Equal(t, "staging", cfg.MongoDatabase)
}

func TestLoadRejectsInvalidEnvValues(t *testing.T) {
	t.Setenv("HISTSYNC_API_BATCH_SIZE", "500")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		APIBatchSize:      50,
		StoreBatchSize:    1000,
		MaxRetries:        3,
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"batch size zero", func(c *Config) { c.APIBatchSize = 0 }, "api_batch_size"},
		{"batch size over api limit", func(c *Config) { c.APIBatchSize = 51 }, "api_batch_size"},
		{"store batch size zero", func(c *Config) { c.StoreBatchSize = 0 }, "store_batch_size"},
		{"negative concurrency", func(c *Config) { c.MaxConcurrentFetches = -1 }, "max_concurrent_fetches"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max_retries"},
		{"multiplier at one", func(c *Config) { c.BackoffMultiplier = 1.0 }, "backoff_multiplier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
