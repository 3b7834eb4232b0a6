package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"researchradar/internal/model"
)

const rsshubDefaultBaseURL = "https://rsshub.app"

// WeChatAlbum locates one official-account article album on RSSHub.
type WeChatAlbum struct {
	Biz     string
	AlbumID string
}

// WeChat pulls official-account articles for companies that publish on
// WeChat instead of the open web, bridged through an RSSHub instance.
// Companies without a configured album yield no results.
type WeChat struct {
	baseURL string
	client  *http.Client
	albums  map[string]WeChatAlbum
}

// NewWeChat builds the adapter. albums maps company names to their album
// coordinates; an empty map disables the adapter in practice.
func NewWeChat(baseURL string, timeout time.Duration, albums map[string]WeChatAlbum) *WeChat {
	if baseURL == "" {
		baseURL = rsshubDefaultBaseURL
	}
	return &WeChat{baseURL: baseURL, client: defaultClient(timeout), albums: albums}
}

// Name implements PostSource.
func (w *WeChat) Name() string { return "wechat" }

// Source implements PostSource. WeChat articles are company announcements.
func (w *WeChat) Source() model.PostSource { return model.SourceCompany }

// Capabilities implements PostSource.
func (w *WeChat) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: false, Paginated: false}
}

// Search implements PostSource; the query is a company name.
func (w *WeChat) Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PostRecord, error) {
	album, ok := w.albums[query]
	if !ok || limit <= 0 {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/wechat/mp/msgalbum/%s/%s", w.baseURL, album.Biz, album.AlbumID)
	body, err := getBody(ctx, w.client, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("wechat %q: %w", query, err)
	}
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("wechat feed %q: %w", query, err)
	}

	now := time.Now().UTC()
	var posts []model.PostRecord
	for _, item := range feed.Channel.Items {
		if len(posts) >= limit {
			break
		}
		created := parseRSSDate(item.PubDate)
		if !since.IsZero() && created != nil && created.Before(since) {
			continue
		}
		link := strings.TrimSpace(item.Link)
		posts = append(posts, model.PostRecord{
			ID:        "company:wechat:" + feedEntryID(item.GUID, link, item.Title),
			Source:    model.SourceCompany,
			Title:     orUntitled(stripHTML(item.Title)),
			URL:       link,
			Author:    "wechat-official-account",
			Summary:   truncate(stripHTML(item.Description), summaryLimit),
			Channel:   query,
			CreatedAt: created,
			FetchedAt: now,
		})
	}
	return posts, nil
}
