package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"researchradar/internal/canonical"
	"researchradar/internal/metrics"
	"researchradar/internal/model"
	"researchradar/internal/notify"
	"researchradar/internal/source"
)

// keywordQueryLimit caps results per keyword query on keyword-searched paper
// sources.
const keywordQueryLimit = 20

// PapersResult summarizes one paper ingest run.
type PapersResult struct {
	Fetched       int      `json:"fetched"`
	Inserted      int      `json:"inserted"`
	Refreshed     int      `json:"refreshed"`
	Skipped       int      `json:"skipped"`
	Notifications int      `json:"notifications"`
	Errors        []string `json:"errors,omitempty"`
}

// IngestPapers fetches, classifies, and persists papers published in the
// last days. A non-empty tagFilter restricts the run to one taxonomy tag:
// only that tag's queries are issued and only papers carrying the tag are
// persisted. Returns ErrRunInProgress if a paper run is already active.
func (p *Pipeline) IngestPapers(ctx context.Context, days int, tagFilter string) (PapersResult, error) {
	var res PapersResult
	if err := p.tryStart("papers"); err != nil {
		return res, err
	}
	defer p.finish("papers")
	start := time.Now()

	sinceT := since(days)
	tasks := p.paperTasks(ctx, sinceT, tagFilter)
	p.log.Info("paper ingest started",
		zap.Int("tasks", len(tasks)), zap.Int("days", days), zap.String("tag", tagFilter))

	subs, err := p.store.ActiveSubscriptions(ctx)
	if err != nil {
		p.log.Warn("subscriptions unavailable, run continues without notifications", zap.Error(err))
		subs = nil
	}

	dedupe := canonical.NewDeduper()
	perTag := make(map[string]int)

	for r := range p.runPaperTasks(ctx, tasks) {
		name := r.task.src.Name()
		if r.err != nil {
			metrics.ObserveSourceError(name)
			res.Errors = append(res.Errors, fmt.Sprintf("%s %q: %v", name, r.task.query, r.err))
			continue
		}
		metrics.ObserveFetched(name, len(r.papers))
		res.Fetched += len(r.papers)

		for _, paper := range r.papers {
			if r.task.tag != "" && perTag[r.task.tag] >= p.cfg.MaxPerTag {
				res.Skipped++
				continue
			}
			if !dedupe.Admit(paper.ID, paper.URL) {
				res.Skipped++
				continue
			}
			tags := p.tax.TagPaper(paper.Title, paper.Abstract, paper.Categories,
				paper.Keywords, paper.Source, paper.Venue)
			if !p.tax.HasBusinessTag(tags) {
				res.Skipped++
				continue
			}
			if tagFilter != "" && !hasTag(tags, tagFilter) {
				res.Skipped++
				continue
			}
			paper.Tags = tags

			if err := p.persistPaper(ctx, paper, subs, &res); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %v", name, paper.ID, err))
				continue
			}
			if r.task.tag != "" {
				perTag[r.task.tag]++
			}
		}
	}

	for tag, n := range perTag {
		if n < p.cfg.MinPerTag {
			p.log.Warn("tag below fetch floor", zap.String("tag", tag), zap.Int("accepted", n))
		}
	}

	metrics.ObserveIngestDuration("papers", time.Since(start))
	p.log.Info("paper ingest finished",
		zap.Int("fetched", res.Fetched), zap.Int("inserted", res.Inserted),
		zap.Int("refreshed", res.Refreshed), zap.Int("skipped", res.Skipped),
		zap.Int("notifications", res.Notifications), zap.Int("errors", len(res.Errors)))
	return res, nil
}

// paperTasks assembles the query plan: per-tag quota queries on arXiv,
// keyword queries on Semantic Scholar, and one task per OpenReview venue.
func (p *Pipeline) paperTasks(ctx context.Context, sinceT time.Time, tagFilter string) []paperTask {
	var tasks []paperTask

	tags := p.tax.PaperTags
	if tagFilter != "" {
		tags = nil
		if tag, ok := p.tax.Tag(tagFilter); ok {
			tags = append(tags, tag)
		}
	}

	if p.sources.Arxiv != nil {
		for _, tag := range tags {
			var cooccur []string
			if tag.RequiresCooccurrencePrefix() {
				cooccur = p.tax.Cooccurrence
			}
			queries := 0
			for _, kw := range tag.TagSearchKeywords() {
				if queries >= p.cfg.MaxQueriesPerTag {
					break
				}
				query := source.TagQuery([]string{kw}, cooccur)
				if query == "" {
					continue
				}
				tasks = append(tasks, paperTask{
					src:   p.sources.Arxiv,
					query: query,
					since: sinceT,
					limit: p.cfg.MaxPerTag,
					tag:   tag.Name,
				})
				queries++
			}
		}
	}

	if p.sources.SemanticScholar != nil {
		var keywords []string
		if tagFilter != "" {
			for _, tag := range tags {
				keywords = append(keywords, tag.TagSearchKeywords()...)
			}
		} else {
			keywords = p.keywordsFor(ctx, model.ScopePapers, p.cfg.KeywordCap)
		}
		for _, kw := range keywords {
			tasks = append(tasks, paperTask{
				src:   p.sources.SemanticScholar,
				query: kw,
				since: sinceT,
				limit: keywordQueryLimit,
			})
		}
	}

	if p.sources.OpenReview != nil && tagFilter == "" {
		for _, venue := range p.sources.OpenReview.Venues() {
			tasks = append(tasks, paperTask{
				src:   p.sources.OpenReview,
				query: venue.ID,
				since: sinceT,
				limit: p.cfg.MaxPerTag,
			})
		}
	}
	return tasks
}

// persistPaper upserts one admitted paper. New papers, as opposed to
// refreshes of a stored identity, also run subscription matching. Papers
// duplicating a differently-sourced stored paper (same DOI, URL, or
// normalized title) are skipped, first store wins.
func (p *Pipeline) persistPaper(ctx context.Context, paper model.PaperRecord, subs []model.Subscription, res *PapersResult) error {
	exists, err := p.store.PaperExists(ctx, paper.ID)
	if err != nil {
		return err
	}
	if !exists {
		dupID, err := p.store.FindPaperDuplicate(ctx, paper.DOI, paper.URL,
			canonical.NormalizeTitle(paper.Title))
		if err != nil {
			return err
		}
		if dupID != "" && dupID != paper.ID {
			res.Skipped++
			return nil
		}
	}

	if err := p.store.UpsertPaper(ctx, paper); err != nil {
		return err
	}
	if exists {
		res.Refreshed++
		metrics.ObservePersisted(string(paper.Source), "refresh")
		return nil
	}
	res.Inserted++
	metrics.ObservePersisted(string(paper.Source), "new")

	notifications := notify.BuildNotifications(paper, subs)
	for _, n := range notifications {
		if err := p.store.InsertNotification(ctx, n); err != nil {
			return fmt.Errorf("notification: %w", err)
		}
	}
	res.Notifications += len(notifications)
	metrics.ObserveNotifications(len(notifications))
	return nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
