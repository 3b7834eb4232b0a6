// Package source wraps the external research-signal APIs behind a uniform
// search contract. Each adapter owns its own HTTP plumbing and reports its
// failures as ordinary errors; the orchestrator decides what is reportable.
package source

import (
	"context"
	"time"

	"researchradar/internal/model"
)

// Capabilities declares what an adapter's upstream supports. Sources differ
// on whether recency filtering happens server-side (query parameter) or must
// be applied after the fetch; the orchestrator client-filters results from
// adapters without server-side support.
type Capabilities struct {
	ServerSideRecency bool
	Paginated         bool
}

// PaperSource searches an academic index. since bounds results to items
// published at or after that instant; the zero time means unbounded.
type PaperSource interface {
	Name() string
	Capabilities() Capabilities
	Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PaperRecord, error)
}

// PostSource searches a community, code, or news feed. The query parameter
// is adapter-specific: a keyword for search APIs, a channel name for feeds
// that are enumerated rather than searched.
type PostSource interface {
	Name() string
	Source() model.PostSource
	Capabilities() Capabilities
	Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PostRecord, error)
}

// FilterPapersSince drops papers strictly older than since. Papers without
// a publication timestamp are kept. Used by the orchestrator for adapters
// without server-side recency. The input slice is left untouched; Search
// results may be shared across workers.
func FilterPapersSince(papers []model.PaperRecord, since time.Time) []model.PaperRecord {
	if since.IsZero() {
		return papers
	}
	out := make([]model.PaperRecord, 0, len(papers))
	for _, p := range papers {
		if p.PublishedAt != nil && p.PublishedAt.Before(since) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterPostsSince drops posts strictly older than since, keeping posts
// with unknown creation times. Like FilterPapersSince it never mutates the
// input slice.
func FilterPostsSince(posts []model.PostRecord, since time.Time) []model.PostRecord {
	if since.IsZero() {
		return posts
	}
	out := make([]model.PostRecord, 0, len(posts))
	for _, p := range posts {
		if p.CreatedAt != nil && p.CreatedAt.Before(since) {
			continue
		}
		out = append(out, p)
	}
	return out
}
