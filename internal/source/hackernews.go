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

const hnDefaultBaseURL = "https://hn.algolia.com/api/v1/search"

// HackerNews searches stories through the Algolia API, which supports
// server-side recency via a numeric filter on created_at_i.
type HackerNews struct {
	baseURL string
	client  *http.Client
}

// NewHackerNews builds the adapter.
func NewHackerNews(baseURL string, timeout time.Duration) *HackerNews {
	if baseURL == "" {
		baseURL = hnDefaultBaseURL
	}
	return &HackerNews{baseURL: baseURL, client: defaultClient(timeout)}
}

// Name implements PostSource.
func (h *HackerNews) Name() string { return string(model.SourceHackerNews) }

// Source implements PostSource.
func (h *HackerNews) Source() model.PostSource { return model.SourceHackerNews }

// Capabilities implements PostSource.
func (h *HackerNews) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: true, Paginated: true}
}

// Search implements PostSource with a keyword query.
func (h *HackerNews) Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PostRecord, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("tags", "story")
	q.Set("hitsPerPage", strconv.Itoa(limit))
	if !since.IsZero() {
		q.Set("numericFilters", fmt.Sprintf("created_at_i>=%d", since.Unix()))
	}

	var resp struct {
		Hits []struct {
			ObjectID    string `json:"objectID"`
			Title       string `json:"title"`
			URL         string `json:"url"`
			Author      string `json:"author"`
			Points      int    `json:"points"`
			NumComments int    `json:"num_comments"`
			StoryText   string `json:"story_text"`
			CreatedAtI  int64  `json:"created_at_i"`
		} `json:"hits"`
	}
	if err := getJSON(ctx, h.client, h.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("hackernews search: %w", err)
	}

	now := time.Now().UTC()
	var posts []model.PostRecord
	for _, hit := range resp.Hits {
		if hit.ObjectID == "" {
			continue
		}
		link := hit.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		var created *time.Time
		if hit.CreatedAtI > 0 {
			t := time.Unix(hit.CreatedAtI, 0).UTC()
			created = &t
		}
		posts = append(posts, model.PostRecord{
			ID:           "hn:" + hit.ObjectID,
			Source:       model.SourceHackerNews,
			Title:        orUntitled(hit.Title),
			URL:          link,
			Author:       hit.Author,
			Score:        hit.Points,
			CommentCount: hit.NumComments,
			Summary:      truncate(hit.StoryText, summaryLimit),
			CreatedAt:    created,
			FetchedAt:    now,
		})
	}
	return posts, nil
}
