// Package youtube fetches video metadata through the YouTube Data API
// v3 and normalizes the inconsistent responses into storage records.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"histsync/storage"
)

// APIMaxBatchSize is the hard per-call id limit of the videos.list endpoint.
const APIMaxBatchSize = 50

// defaultDailyQuota is the standard free daily quota in units.
const defaultDailyQuota = 10000

// videoParts are the response parts projected into storage.VideoDetails.
var videoParts = []string{"snippet", "contentDetails"}

// Fetcher retrieves video metadata batches from the YouTube Data API.
// It is safe for concurrent use; all calls share one rate limiter and
// one quota estimate.
type Fetcher struct {
	service *youtube.Service
	apiKey  string
	limiter *rate.Limiter

	// Quota tracking
	mu             sync.Mutex
	estimatedQuota int
	lastQuotaReset time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRateLimit caps outbound API calls at rps requests per second with
// the given burst. Zero or negative rps leaves the fetcher unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *Fetcher) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewFetcher creates a fetcher bound to the given API key.
func NewFetcher(ctx context.Context, apiKey string, opts ...Option) (*Fetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	f := &Fetcher{
		service:        service,
		apiKey:         apiKey,
		limiter:        rate.NewLimiter(rate.Inf, 0),
		estimatedQuota: defaultDailyQuota,
		lastQuotaReset: time.Now(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// FetchVideoDetails fetches metadata for at most APIMaxBatchSize video
// ids in one videos.list call.
//
// On success the result contains exactly one record per requested id,
// in the caller-supplied order; ids the API had no item for come back
// as null records. A response with no items at all fails with
// ErrNoData. A rejected key fails with *AuthError, anything else with
// *UpstreamError.
func (f *Fetcher) FetchVideoDetails(ctx context.Context, ids []string) ([]storage.VideoDetails, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > APIMaxBatchSize {
		return nil, fmt.Errorf("youtube: batch of %d ids exceeds limit of %d", len(ids), APIMaxBatchSize)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	call := f.service.Videos.List(videoParts).
		Id(ids...).
		MaxResults(int64(len(ids))).
		Context(ctx)

	resp, err := call.Do()
	if err != nil {
		return nil, f.classifyError(ids, err)
	}
	f.trackQuotaUsage(1) // videos.list costs 1 unit per call

	if len(resp.Items) == 0 {
		return nil, ErrNoData
	}
	return normalizeItems(ids, resp.Items), nil
}

// EstimatedQuota returns the estimated remaining daily quota units.
func (f *Fetcher) EstimatedQuota() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.estimatedQuota
}

// classifyError maps API and transport errors onto the fetch taxonomy.
// The API answers a malformed or revoked key with 400/401, which is
// what the abort-the-run classification keys on.
func (f *Fetcher) classifyError(ids []string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusUnauthorized {
			return &AuthError{Key: f.apiKey, Status: apiErr.Code}
		}
		return &UpstreamError{IDs: ids, Status: apiErr.Code, Body: apiErr.Body}
	}
	return &UpstreamError{IDs: ids, Body: err.Error()}
}

// trackQuotaUsage updates the daily quota estimate, resetting it after
// a day has passed.
func (f *Fetcher) trackQuotaUsage(units int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if time.Since(f.lastQuotaReset) > 24*time.Hour {
		f.estimatedQuota = defaultDailyQuota
		f.lastQuotaReset = time.Now()
	}
	f.estimatedQuota -= units
}

// normalizeItems projects raw API items onto storage records, one
// output per requested id in caller order. Requested ids missing from
// the response degrade to null records rather than failing the batch.
func normalizeItems(ids []string, items []*youtube.Video) []storage.VideoDetails {
	byID := make(map[string]*youtube.Video, len(items))
	for _, item := range items {
		if item != nil && item.Id != "" {
			byID[item.Id] = item
		}
	}

	out := make([]storage.VideoDetails, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			out = append(out, storage.NullVideoDetails(id))
			continue
		}
		out = append(out, newVideoDetails(item))
	}
	return out
}

// newVideoDetails builds one record from a raw item. Missing nested
// sections leave the corresponding fields zero; construction never fails.
func newVideoDetails(item *youtube.Video) storage.VideoDetails {
	d := storage.VideoDetails{ID: item.Id}

	if sn := item.Snippet; sn != nil {
		d.ChannelID = sn.ChannelId
		d.ChannelTitle = sn.ChannelTitle
		d.Title = sn.Title
		d.Description = sn.Description
		d.Tags = sn.Tags
		d.CategoryID = sn.CategoryId
		if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			d.PublishedAt = t
		}
	}
	if cd := item.ContentDetails; cd != nil {
		d.Duration = cd.Duration
	}
	return d
}
