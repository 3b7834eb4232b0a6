package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchradar/internal/model"
)

func TestHackerNewsSearch(t *testing.T) {
	t.Parallel()

	since := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gaussian splatting", r.URL.Query().Get("query"))
		assert.Equal(t, "story", r.URL.Query().Get("tags"))
		assert.Equal(t, fmt.Sprintf("created_at_i>=%d", since.Unix()), r.URL.Query().Get("numericFilters"))
		_, _ = w.Write([]byte(`{"hits": [
			{
				"objectID": "41000000",
				"title": "Show HN: splat viewer",
				"url": "https://example.org/viewer",
				"author": "pg",
				"points": 120,
				"num_comments": 42,
				"created_at_i": 1756684800
			},
			{
				"objectID": "41000001",
				"title": "",
				"url": "",
				"author": "dang"
			},
			{"objectID": ""}
		]}`))
	}))
	defer srv.Close()

	h := NewHackerNews(srv.URL, time.Second)
	posts, err := h.Search(context.Background(), "gaussian splatting", since, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	p := posts[0]
	assert.Equal(t, "hn:41000000", p.ID)
	assert.Equal(t, model.SourceHackerNews, p.Source)
	assert.Equal(t, "Show HN: splat viewer", p.Title)
	assert.Equal(t, "https://example.org/viewer", p.URL)
	assert.Equal(t, "pg", p.Author)
	assert.Equal(t, 120, p.Score)
	assert.Equal(t, 42, p.CommentCount)
	require.NotNil(t, p.CreatedAt)
	assert.False(t, p.FetchedAt.IsZero())

	// Missing title and url fall back to a placeholder and the item page.
	assert.Equal(t, "(no title)", posts[1].Title)
	assert.Equal(t, "https://news.ycombinator.com/item?id=41000001", posts[1].URL)
	assert.Nil(t, posts[1].CreatedAt)
}

func TestHackerNewsEmptyQuery(t *testing.T) {
	t.Parallel()

	h := NewHackerNews("http://unused.invalid", time.Second)
	posts, err := h.Search(context.Background(), "", time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
}
