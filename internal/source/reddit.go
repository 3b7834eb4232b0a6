package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"researchradar/internal/model"
)

const redditDefaultBaseURL = "https://www.reddit.com"

// summaryLimit caps stored post summaries.
const summaryLimit = 500

// DefaultSubreddits are the communities polled for new posts.
var DefaultSubreddits = []string{"MachineLearning", "computervision", "GaussianSplatting"}

// Reddit reads the public new-post listing of a subreddit. The listing has
// no date parameter; recency filtering is client-side.
type Reddit struct {
	baseURL    string
	client     *http.Client
	subreddits []string
}

// NewReddit builds the adapter; nil subreddits uses DefaultSubreddits.
func NewReddit(baseURL string, timeout time.Duration, subreddits []string) *Reddit {
	if baseURL == "" {
		baseURL = redditDefaultBaseURL
	}
	if len(subreddits) == 0 {
		subreddits = DefaultSubreddits
	}
	return &Reddit{baseURL: baseURL, client: defaultClient(timeout), subreddits: subreddits}
}

// Name implements PostSource.
func (r *Reddit) Name() string { return string(model.SourceReddit) }

// Source implements PostSource.
func (r *Reddit) Source() model.PostSource { return model.SourceReddit }

// Capabilities implements PostSource.
func (r *Reddit) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: false, Paginated: false}
}

// Subreddits returns the channel universe; the orchestrator issues one task
// per subreddit instead of one per keyword.
func (r *Reddit) Subreddits() []string { return r.subreddits }

// Search implements PostSource; the query is a subreddit name.
func (r *Reddit) Search(ctx context.Context, query string, _ time.Time, limit int) ([]model.PostRecord, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Data struct {
			Children []struct {
				Data struct {
					ID          string  `json:"id"`
					Title       string  `json:"title"`
					URL         string  `json:"url"`
					Permalink   string  `json:"permalink"`
					Author      string  `json:"author"`
					Score       int     `json:"score"`
					NumComments int     `json:"num_comments"`
					SelfText    string  `json:"selftext"`
					Created     float64 `json:"created_utc"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/r/%s/new.json?%s", r.baseURL, url.PathEscape(query), q.Encode())
	if err := getJSON(ctx, r.client, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("reddit r/%s: %w", query, err)
	}

	now := time.Now().UTC()
	var posts []model.PostRecord
	for _, child := range resp.Data.Children {
		d := child.Data
		if d.ID == "" {
			continue
		}
		link := d.URL
		if link == "" {
			link = redditDefaultBaseURL + d.Permalink
		}
		var created *time.Time
		if d.Created > 0 {
			t := time.Unix(int64(d.Created), 0).UTC()
			created = &t
		}
		posts = append(posts, model.PostRecord{
			ID:           "reddit:" + d.ID,
			Source:       model.SourceReddit,
			Title:        orUntitled(d.Title),
			URL:          link,
			Author:       d.Author,
			Score:        d.Score,
			CommentCount: d.NumComments,
			Summary:      truncate(d.SelfText, summaryLimit),
			Channel:      "r/" + query,
			CreatedAt:    created,
			FetchedAt:    now,
		})
	}
	return posts, nil
}

func orUntitled(title string) string {
	if title == "" {
		return "(no title)"
	}
	return title
}

// truncate cuts s to at most n bytes without splitting a rune; a partial
// rune at the boundary would be invalid UTF-8 and rejected by Postgres.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
