package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"researchradar/internal/canonical"
	"researchradar/internal/model"
)

const googleNewsDefaultBaseURL = "https://news.google.com/rss/search"

// GoogleNews pulls company announcements from the Google News search RSS
// feed. The feed has no date parameter, so recency is client-side. The
// query passed to Search is a company name (or operator keyword); it is
// expanded through the configured query map and recorded as the channel.
type GoogleNews struct {
	baseURL string
	client  *http.Client
	queries map[string]string
}

// NewGoogleNews builds the adapter. queries maps channel names to the news
// search query used for them; unmapped channels search for their own name.
func NewGoogleNews(baseURL string, timeout time.Duration, queries map[string]string) *GoogleNews {
	if baseURL == "" {
		baseURL = googleNewsDefaultBaseURL
	}
	return &GoogleNews{baseURL: baseURL, client: defaultClient(timeout), queries: queries}
}

// Name implements PostSource.
func (g *GoogleNews) Name() string { return string(model.SourceCompany) }

// Source implements PostSource.
func (g *GoogleNews) Source() model.PostSource { return model.SourceCompany }

// Capabilities implements PostSource.
func (g *GoogleNews) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: false, Paginated: false}
}

// Search implements PostSource; the query is a channel (company) name.
func (g *GoogleNews) Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PostRecord, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}
	search := query
	if mapped, ok := g.queries[query]; ok && mapped != "" {
		search = mapped
	}
	q := url.Values{}
	q.Set("q", search)
	q.Set("hl", "en")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")

	body, err := getBody(ctx, g.client, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("google news %q: %w", query, err)
	}
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("google news feed %q: %w", query, err)
	}

	now := time.Now().UTC()
	var posts []model.PostRecord
	for _, item := range feed.Channel.Items {
		if len(posts) >= limit {
			break
		}
		link := strings.TrimSpace(item.Link)
		created := parseRSSDate(item.PubDate)
		if !since.IsZero() && created != nil && created.Before(since) {
			continue
		}
		posts = append(posts, model.PostRecord{
			ID:        "company:" + feedEntryID(item.GUID, link, item.Title),
			Source:    model.SourceCompany,
			Title:     orUntitled(stripHTML(item.Title)),
			URL:       link,
			Author:    stripHTML(item.Source),
			Summary:   truncate(stripHTML(item.Description), summaryLimit),
			Channel:   query,
			CreatedAt: created,
			FetchedAt: now,
		})
	}
	return posts, nil
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
	Source      string `xml:"source"`
}

var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

func parseRSSDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			tt := t.UTC()
			return &tt
		}
	}
	return nil
}

// feedEntryID derives a stable identity from the entry's GUID, falling back
// to the normalized link, so re-fetching a feed upserts rather than
// duplicating.
func feedEntryID(guid, link, title string) string {
	key := strings.TrimSpace(guid)
	if key == "" {
		if norm := canonical.Normalize(link); norm != "" {
			key = norm
		} else {
			key = title
		}
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// stripHTML removes markup and collapses whitespace; Google News wraps
// titles and summaries in anchor tags and entities.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return flattenText(s)
	}
	return flattenText(doc.Text())
}
