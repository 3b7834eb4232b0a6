package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"researchradar/internal/canonical"
	"researchradar/internal/metrics"
	"researchradar/internal/model"
)

// IngestCompanyPosts pulls announcements for every tracked company, or one
// company when the argument is non-empty. News and WeChat adapters each get
// one task per company; operator crawl keywords scoped to the company
// pipeline add extra news queries.
func (p *Pipeline) IngestCompanyPosts(ctx context.Context, days int, company string) (PostsResult, error) {
	var res PostsResult
	if err := p.tryStart("company"); err != nil {
		return res, err
	}
	defer p.finish("company")
	start := time.Now()

	sinceT := since(days)
	companies := p.tax.Companies()
	if company != "" {
		companies = []string{company}
	}

	var tasks []postTask
	for _, c := range companies {
		if p.sources.News != nil {
			tasks = append(tasks, postTask{src: p.sources.News, query: c, since: sinceT, limit: p.cfg.PostQueryLimit})
		}
		if p.sources.WeChat != nil {
			tasks = append(tasks, postTask{src: p.sources.WeChat, query: c, since: sinceT, limit: p.cfg.PostQueryLimit})
		}
	}
	if company == "" && p.sources.News != nil {
		if extra, err := p.store.ActiveCrawlKeywords(ctx, model.ScopeCompany); err == nil {
			for _, kw := range extra {
				tasks = append(tasks, postTask{src: p.sources.News, query: kw, since: sinceT, limit: p.cfg.PostQueryLimit})
			}
		} else {
			p.log.Warn("company crawl keywords unavailable", zap.Error(err))
		}
	}
	p.log.Info("company ingest started",
		zap.Int("companies", len(companies)), zap.Int("tasks", len(tasks)), zap.Int("days", days))

	// Direction tags admit a company post even without a taxonomy keyword
	// hit; being published by a tracked company is the signal.
	directions := make(map[string]struct{}, len(p.tax.Directions))
	for _, d := range p.tax.Directions {
		directions[d.Name] = struct{}{}
	}

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
			tags := p.tax.TagCompanyPost(post.Title, post.Summary, post.Channel)
			if !p.tax.HasBusinessTag(tags) && !hasAny(tags, directions) {
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

	metrics.ObserveIngestDuration("company", time.Since(start))
	p.log.Info("company ingest finished",
		zap.Int("fetched", res.Fetched), zap.Int("persisted", res.Persisted),
		zap.Int("skipped", res.Skipped), zap.Int("errors", len(res.Errors)))
	return res, nil
}

func hasAny(tags []string, set map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
