package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchradar/internal/model"
)

const newsFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <item>
    <title>&lt;b&gt;Runway&lt;/b&gt; ships Gen-3 update</title>
    <link>https://example.org/runway-gen3?utm_source=rss</link>
    <guid>news-guid-1</guid>
    <pubDate>Mon, 11 Aug 2025 10:00:00 +0000</pubDate>
    <description>&lt;a href="x"&gt;The update&lt;/a&gt; improves motion.</description>
    <source>Example Wire</source>
  </item>
  <item>
    <title>Old story</title>
    <link>https://example.org/old</link>
    <guid>news-guid-2</guid>
    <pubDate>Wed, 01 Jan 2020 10:00:00 +0000</pubDate>
  </item>
</channel>
</rss>`

func TestGoogleNewsSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The channel name expands through the query map.
		assert.Equal(t, "Runway Gen-3", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(newsFeedFixture))
	}))
	defer srv.Close()

	g := NewGoogleNews(srv.URL, time.Second, map[string]string{"Runway": "Runway Gen-3"})
	since := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	posts, err := g.Search(context.Background(), "Runway", since, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, model.SourceCompany, p.Source)
	assert.Equal(t, "Runway ships Gen-3 update", p.Title)
	assert.Equal(t, "The update improves motion.", p.Summary)
	assert.Equal(t, "Example Wire", p.Author)
	assert.Equal(t, "Runway", p.Channel)
	assert.Equal(t, "https://example.org/runway-gen3?utm_source=rss", p.URL)
	require.NotNil(t, p.CreatedAt)
	assert.Equal(t, time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC), *p.CreatedAt)
}

func TestGoogleNewsUnmappedChannelSearchesItsName(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Acme Scan", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`<rss><channel></channel></rss>`))
	}))
	defer srv.Close()

	g := NewGoogleNews(srv.URL, time.Second, nil)
	posts, err := g.Search(context.Background(), "Acme Scan", time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFeedEntryID(t *testing.T) {
	t.Parallel()

	// GUID wins over link and title.
	a := feedEntryID("guid-1", "https://example.org/x", "Title")
	b := feedEntryID("guid-1", "https://example.org/y", "Other")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)

	// Without a GUID the normalized link decides, so tracking params and
	// case differences collapse to one identity.
	c := feedEntryID("", "https://Example.org/x?utm_source=rss", "T")
	d := feedEntryID("", "https://example.org/x", "T")
	assert.Equal(t, c, d)

	// Title is the last resort.
	e := feedEntryID("", "", "Only Title")
	f := feedEntryID("", "", "Only Title")
	assert.Equal(t, e, f)
	assert.NotEqual(t, a, e)
}

func TestParseRSSDate(t *testing.T) {
	t.Parallel()

	got := parseRSSDate("Mon, 11 Aug 2025 10:00:00 +0000")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC), *got)

	got = parseRSSDate("Mon, 11 Aug 2025 10:00:00 GMT")
	require.NotNil(t, got)

	assert.Nil(t, parseRSSDate(""))
	assert.Nil(t, parseRSSDate("not a date"))
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello world", stripHTML(`<a href="x"><b>Hello</b>  world</a>`))
	assert.Equal(t, "A & B", stripHTML("A &amp; B"))
	assert.Equal(t, "", stripHTML(""))
	assert.Equal(t, "plain", stripHTML("plain"))
}
