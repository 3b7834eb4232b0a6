package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"researchradar/internal/model"
)

const youtubeDefaultBaseURL = "https://www.googleapis.com/youtube/v3/search"

// YouTube searches videos through the Data API v3, which supports
// server-side recency via publishedAfter. Requires an API key; without one
// the adapter reports itself disabled and the orchestrator skips it.
type YouTube struct {
	baseURL string
	client  *http.Client
	apiKey  string
}

// NewYouTube builds the adapter.
func NewYouTube(baseURL, apiKey string, timeout time.Duration) *YouTube {
	if baseURL == "" {
		baseURL = youtubeDefaultBaseURL
	}
	return &YouTube{baseURL: baseURL, client: defaultClient(timeout), apiKey: apiKey}
}

// Name implements PostSource.
func (y *YouTube) Name() string { return string(model.SourceYouTube) }

// Source implements PostSource.
func (y *YouTube) Source() model.PostSource { return model.SourceYouTube }

// Capabilities implements PostSource.
func (y *YouTube) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: true, Paginated: false}
}

// Enabled reports whether an API key is configured.
func (y *YouTube) Enabled() bool { return y.apiKey != "" }

// Search implements PostSource with a keyword query over videos.
func (y *YouTube) Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PostRecord, error) {
	if query == "" || limit <= 0 || !y.Enabled() {
		return nil, nil
	}
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("q", query)
	q.Set("type", "video")
	q.Set("order", "date")
	q.Set("maxResults", strconv.Itoa(min(limit, 50)))
	q.Set("key", y.apiKey)
	if !since.IsZero() {
		q.Set("publishedAfter", since.UTC().Format(time.RFC3339))
	}

	var resp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				Description  string `json:"description"`
				ChannelTitle string `json:"channelTitle"`
				PublishedAt  string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := getJSON(ctx, y.client, y.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	now := time.Now().UTC()
	var posts []model.PostRecord
	for _, item := range resp.Items {
		vid := item.ID.VideoID
		if vid == "" {
			continue
		}
		var created *time.Time
		if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			tt := t.UTC()
			created = &tt
		}
		posts = append(posts, model.PostRecord{
			ID:        "youtube:" + vid,
			Source:    model.SourceYouTube,
			Title:     orUntitled(item.Snippet.Title),
			URL:       "https://www.youtube.com/watch?v=" + vid,
			Author:    item.Snippet.ChannelTitle,
			Channel:   item.Snippet.ChannelTitle,
			Summary:   truncate(item.Snippet.Description, summaryLimit),
			CreatedAt: created,
			FetchedAt: now,
		})
	}
	return posts, nil
}
