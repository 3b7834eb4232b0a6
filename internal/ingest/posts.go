package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"researchradar/internal/canonical"
	"researchradar/internal/metrics"
	"researchradar/internal/model"
	"researchradar/internal/source"
)

// PostsResult summarizes one post ingest run.
type PostsResult struct {
	Fetched   int      `json:"fetched"`
	Persisted int      `json:"persisted"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// IngestPosts fetches and persists community and code-hosting posts from the
// last days. A non-empty tagFilter restricts queries and admitted posts to
// one taxonomy tag; a non-empty only restricts the run to one post source.
func (p *Pipeline) IngestPosts(ctx context.Context, days int, tagFilter string, only model.PostSource) (PostsResult, error) {
	var res PostsResult
	if err := p.tryStart("posts"); err != nil {
		return res, err
	}
	defer p.finish("posts")
	start := time.Now()

	sinceT := since(days)
	tasks := p.postTasks(ctx, sinceT, tagFilter, only)
	p.log.Info("post ingest started",
		zap.Int("tasks", len(tasks)), zap.Int("days", days),
		zap.String("tag", tagFilter), zap.String("only", string(only)))

	dedupe := canonical.NewDeduper()
	for r := range p.runPostTasks(ctx, tasks) {
		name := r.task.src.Name()
		if r.err != nil {
			metrics.ObserveSourceError(name)
			res.Errors = append(res.Errors, fmt.Sprintf("%s %q: %v", name, r.task.query, r.err))
			continue
		}
		metrics.ObserveFetched(name, len(r.posts))
		res.Fetched += len(r.posts)

		for _, post := range r.posts {
			if !dedupe.Admit(post.ID, post.URL) {
				res.Skipped++
				continue
			}
			tags := p.tax.TagPost(post.Title, post.Summary, post.Source, post.Channel)
			if !p.tax.HasBusinessTag(tags) {
				res.Skipped++
				continue
			}
			if tagFilter != "" && !hasTag(tags, tagFilter) {
				res.Skipped++
				continue
			}
			post.Tags = tags

			if err := p.store.UpsertPost(ctx, post); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %v", name, post.ID, err))
				continue
			}
			res.Persisted++
			metrics.ObservePersisted(string(post.Source), "upsert")
		}
	}

	metrics.ObserveIngestDuration("posts", time.Since(start))
	p.log.Info("post ingest finished",
		zap.Int("fetched", res.Fetched), zap.Int("persisted", res.Persisted),
		zap.Int("skipped", res.Skipped), zap.Int("errors", len(res.Errors)))
	return res, nil
}

// postTasks assembles the query plan: keyword queries on the search-style
// sources, one task per subreddit on Reddit.
func (p *Pipeline) postTasks(ctx context.Context, sinceT time.Time, tagFilter string, only model.PostSource) []postTask {
	var keywords []string
	if tagFilter != "" {
		if tag, ok := p.tax.Tag(tagFilter); ok {
			keywords = tag.TagSearchKeywords()
		}
	} else {
		keywords = p.keywordsFor(ctx, model.ScopeCommunity, p.cfg.PostKeywordCap)
	}

	keywordSources := []source.PostSource{}
	add := func(src source.PostSource) {
		if src == nil {
			return
		}
		if only != "" && src.Source() != only {
			return
		}
		keywordSources = append(keywordSources, src)
	}
	add(p.sources.HackerNews)
	add(p.sources.GitHub)
	add(p.sources.HuggingFace)
	if p.sources.YouTube != nil && p.sources.YouTube.Enabled() {
		add(p.sources.YouTube)
	}

	var tasks []postTask
	for _, src := range keywordSources {
		for _, kw := range keywords {
			tasks = append(tasks, postTask{
				src:   src,
				query: kw,
				since: sinceT,
				limit: p.cfg.PostQueryLimit,
			})
		}
	}

	if p.sources.Reddit != nil && (only == "" || only == model.SourceReddit) {
		for _, sub := range p.sources.Reddit.Subreddits() {
			tasks = append(tasks, postTask{
				src:   p.sources.Reddit,
				query: sub,
				since: sinceT,
				limit: p.cfg.PostQueryLimit,
			})
		}
	}
	return tasks
}
