// Package ingest orchestrates the fetch pipelines: it fans source queries out
// to a bounded worker pool, funnels results through canonicalization, dedup,
// classification, and the admission filter, and upserts what survives.
//
// A single aggregator goroutine (the caller) owns all mutable run state, so
// counters and the dedup table need no locking. One failed source query never
// aborts a run; failures are collected as reportable strings.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"researchradar/internal/metrics"
	"researchradar/internal/model"
	"researchradar/internal/source"
	"researchradar/internal/store"
	"researchradar/internal/taxonomy"
)

// Config bounds a pipeline run.
type Config struct {
	// Workers is the size of the fetch worker pool.
	Workers int
	// MinPerTag is the fetch floor per taxonomy tag; falling short is
	// logged, not fatal.
	MinPerTag int
	// MaxPerTag caps accepted papers per taxonomy tag per run.
	MaxPerTag int
	// MaxQueriesPerTag caps upstream queries issued per tag.
	MaxQueriesPerTag int
	// KeywordCap bounds the default keyword list for keyword-searched
	// paper sources.
	KeywordCap int
	// PostKeywordCap bounds the keyword list for keyword-searched post
	// sources.
	PostKeywordCap int
	// PostQueryLimit is the per-query result cap for post sources.
	PostQueryLimit int
}

// DefaultConfig returns the production run bounds.
func DefaultConfig() Config {
	return Config{
		Workers:          4,
		MinPerTag:        5,
		MaxPerTag:        60,
		MaxQueriesPerTag: 40,
		KeywordCap:       60,
		PostKeywordCap:   12,
		PostQueryLimit:   30,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MinPerTag <= 0 {
		c.MinPerTag = d.MinPerTag
	}
	if c.MaxPerTag <= 0 {
		c.MaxPerTag = d.MaxPerTag
	}
	if c.MaxQueriesPerTag <= 0 {
		c.MaxQueriesPerTag = d.MaxQueriesPerTag
	}
	if c.KeywordCap <= 0 {
		c.KeywordCap = d.KeywordCap
	}
	if c.PostKeywordCap <= 0 {
		c.PostKeywordCap = d.PostKeywordCap
	}
	if c.PostQueryLimit <= 0 {
		c.PostQueryLimit = d.PostQueryLimit
	}
	return c
}

// Sources bundles the wired adapters. Nil fields are skipped, so a deployment
// can run with any subset.
type Sources struct {
	Arxiv           source.PaperSource
	OpenReview      *source.OpenReview
	SemanticScholar source.PaperSource

	HackerNews  source.PostSource
	Reddit      *source.Reddit
	GitHub      source.PostSource
	HuggingFace source.PostSource
	YouTube     *source.YouTube

	News   source.PostSource
	WeChat source.PostSource
}

// Pipeline runs the three ingest flows against a store.
type Pipeline struct {
	store   store.Store
	sources Sources
	tax     taxonomy.Taxonomy
	cfg     Config
	log     *zap.Logger

	mu      sync.Mutex
	running map[string]bool
}

// New wires a pipeline.
func New(st store.Store, srcs Sources, tax taxonomy.Taxonomy, cfg Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		store:   st,
		sources: srcs,
		tax:     tax,
		cfg:     cfg.withDefaults(),
		log:     log,
		running: make(map[string]bool),
	}
}

// ErrRunInProgress reports a rejected concurrent run of the same pipeline.
type ErrRunInProgress struct{ Pipeline string }

func (e ErrRunInProgress) Error() string {
	return fmt.Sprintf("%s ingest already running", e.Pipeline)
}

// tryStart marks a pipeline running; a second concurrent run of the same
// pipeline is rejected rather than queued.
func (p *Pipeline) tryStart(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running[name] {
		return ErrRunInProgress{Pipeline: name}
	}
	p.running[name] = true
	return nil
}

func (p *Pipeline) finish(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, name)
}

// paperTask is one upstream paper query. tag carries provenance for the
// per-tag quota; empty for keyword-driven sources.
type paperTask struct {
	src   source.PaperSource
	query string
	since time.Time
	limit int
	tag   string
}

type paperResult struct {
	task   paperTask
	papers []model.PaperRecord
	err    error
}

// runPaperTasks fans tasks out to the worker pool and returns the result
// stream. The channel closes once every task has reported.
func (p *Pipeline) runPaperTasks(ctx context.Context, tasks []paperTask) <-chan paperResult {
	taskCh := make(chan paperTask)
	out := make(chan paperResult)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				metrics.IncActiveWorkers()
				papers, err := t.src.Search(ctx, t.query, t.since, t.limit)
				metrics.DecActiveWorkers()
				if err == nil && !t.src.Capabilities().ServerSideRecency {
					papers = source.FilterPapersSince(papers, t.since)
				}
				select {
				case out <- paperResult{task: t, papers: papers, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, t := range tasks {
			select {
			case taskCh <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

type postTask struct {
	src   source.PostSource
	query string
	since time.Time
	limit int
}

type postResult struct {
	task  postTask
	posts []model.PostRecord
	err   error
}

func (p *Pipeline) runPostTasks(ctx context.Context, tasks []postTask) <-chan postResult {
	taskCh := make(chan postTask)
	out := make(chan postResult)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				metrics.IncActiveWorkers()
				posts, err := t.src.Search(ctx, t.query, t.since, t.limit)
				metrics.DecActiveWorkers()
				if err == nil && !t.src.Capabilities().ServerSideRecency {
					posts = source.FilterPostsSince(posts, t.since)
				}
				select {
				case out <- postResult{task: t, posts: posts, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, t := range tasks {
			select {
			case taskCh <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// since converts a day window to the recency bound; days <= 0 means
// unbounded.
func since(days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().AddDate(0, 0, -days)
}

// keywordsFor returns the operator crawl keywords for a scope, falling back
// to the taxonomy-derived defaults. Store errors fall back too; a broken
// keyword table must not stop an ingest run.
func (p *Pipeline) keywordsFor(ctx context.Context, scope model.KeywordScope, limit int) []string {
	kws, err := p.store.ActiveCrawlKeywords(ctx, scope)
	if err != nil {
		p.log.Warn("crawl keywords unavailable, using taxonomy defaults",
			zap.String("scope", string(scope)), zap.Error(err))
	}
	if len(kws) > 0 {
		if len(kws) > limit {
			kws = kws[:limit]
		}
		return kws
	}
	return p.tax.SearchKeywords(limit)
}
