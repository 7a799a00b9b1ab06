package youtube

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"

	"histsync/storage"
)

func TestNewFetcher(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{"empty key", "", true},
		{"valid key", "test-api-key-12345", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher, err := NewFetcher(context.Background(), tt.apiKey)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFetcher() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && fetcher == nil {
				t.Error("NewFetcher() returned nil fetcher for valid key")
			}
		})
	}
}

func TestNormalizeItemsPreservesOrderAndCardinality(t *testing.T) {
	ids := []string{"a", "b", "c"}
	items := []*youtube.Video{
		// Response order deliberately differs from request order.
		{Id: "c", Snippet: &youtube.VideoSnippet{Title: "C"}},
		{Id: "a", Snippet: &youtube.VideoSnippet{Title: "A"}},
	}

	out := normalizeItems(ids, items)

	if len(out) != 3 {
		t.Fatalf("normalizeItems() returned %d records, want 3", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "b" || out[2].ID != "c" {
		t.Errorf("output order = %s,%s,%s, want a,b,c", out[0].ID, out[1].ID, out[2].ID)
	}
	if out[0].Title != "A" || out[2].Title != "C" {
		t.Errorf("titles not projected: %q, %q", out[0].Title, out[2].Title)
	}

	// "b" was absent upstream: null record with only the id.
	if !reflect.DeepEqual(out[1], storage.NullVideoDetails("b")) {
		t.Errorf("missing id should degrade to a null record, got %+v", out[1])
	}
}

func TestNormalizeItemsIgnoresItemsWithoutID(t *testing.T) {
	ids := []string{"a"}
	items := []*youtube.Video{
		{Snippet: &youtube.VideoSnippet{Title: "no id"}},
		nil,
	}

	out := normalizeItems(ids, items)
	if len(out) != 1 {
		t.Fatalf("normalizeItems() returned %d records, want 1", len(out))
	}
	if !reflect.DeepEqual(out[0], storage.NullVideoDetails("a")) {
		t.Errorf("got %+v, want null record for a", out[0])
	}
}

func TestNewVideoDetailsProjectsKnownFields(t *testing.T) {
	item := &youtube.Video{
		Id: "v1",
		Snippet: &youtube.VideoSnippet{
			ChannelId:    "G1",
			ChannelTitle: "Channel One",
			Title:        "Title",
			Description:  "Desc",
			Tags:         []string{"go", "testing"},
			CategoryId:   "28",
			PublishedAt:  "2024-06-01T12:00:00Z",
		},
		ContentDetails: &youtube.VideoContentDetails{Duration: "PT4M13S"},
	}

	d := newVideoDetails(item)

	if d.ID != "v1" || d.ChannelID != "G1" || d.ChannelTitle != "Channel One" {
		t.Errorf("identity fields wrong: %+v", d)
	}
	if d.Duration != "PT4M13S" || d.CategoryID != "28" {
		t.Errorf("detail fields wrong: %+v", d)
	}
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if !d.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", d.PublishedAt, want)
	}
}

func TestNewVideoDetailsToleratesMissingSections(t *testing.T) {
	d := newVideoDetails(&youtube.Video{Id: "v1"})

	if d.ID != "v1" {
		t.Fatalf("ID = %q, want v1", d.ID)
	}
	if d.Title != "" || d.Duration != "" || !d.PublishedAt.IsZero() {
		t.Errorf("missing sections should leave zero fields, got %+v", d)
	}

	// Malformed timestamp is absorbed, not an error.
	d = newVideoDetails(&youtube.Video{
		Id:      "v2",
		Snippet: &youtube.VideoSnippet{PublishedAt: "not-a-time"},
	})
	if !d.PublishedAt.IsZero() {
		t.Errorf("malformed PublishedAt should stay zero, got %v", d.PublishedAt)
	}
}

func TestClassifyError(t *testing.T) {
	f := &Fetcher{apiKey: "secret-key"}
	ids := []string{"a", "b"}

	t.Run("bad request is auth error", func(t *testing.T) {
		err := f.classifyError(ids, &googleapi.Error{Code: http.StatusBadRequest})
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("error = %v, want *AuthError", err)
		}
		if authErr.Key != "secret-key" || authErr.Status != http.StatusBadRequest {
			t.Errorf("AuthError = %+v", authErr)
		}
	})

	t.Run("unauthorized is auth error", func(t *testing.T) {
		err := f.classifyError(ids, &googleapi.Error{Code: http.StatusUnauthorized})
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("error = %v, want *AuthError", err)
		}
	})

	t.Run("server error is upstream error", func(t *testing.T) {
		err := f.classifyError(ids, &googleapi.Error{Code: http.StatusInternalServerError, Body: "boom"})
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("error = %v, want *UpstreamError", err)
		}
		if upErr.Status != http.StatusInternalServerError || upErr.Body != "boom" {
			t.Errorf("UpstreamError = %+v", upErr)
		}
		if len(upErr.IDs) != 2 {
			t.Errorf("UpstreamError.IDs = %v, want the batch ids", upErr.IDs)
		}
	})

	t.Run("transport error is upstream error", func(t *testing.T) {
		err := f.classifyError(ids, errors.New("connection refused"))
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("error = %v, want *UpstreamError", err)
		}
		if upErr.Status != 0 {
			t.Errorf("Status = %d, want 0 for transport errors", upErr.Status)
		}
	})

	t.Run("context cancellation passes through", func(t *testing.T) {
		err := f.classifyError(ids, context.Canceled)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	})
}

func TestFetchVideoDetailsRejectsOversizedBatch(t *testing.T) {
	f := &Fetcher{apiKey: "k"}
	ids := make([]string, APIMaxBatchSize+1)
	for i := range ids {
		ids[i] = "id"
	}

	if _, err := f.FetchVideoDetails(context.Background(), ids); err == nil {
		t.Fatal("FetchVideoDetails() should reject batches over the API limit")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"auth error", &AuthError{Key: "k", Status: 400}, false},
		{"no data", ErrNoData, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"upstream error", &UpstreamError{Status: 500}, true},
		{"transport error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
