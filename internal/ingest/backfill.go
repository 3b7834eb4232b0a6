package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BackfillTags re-runs classification over stored papers and writes back any
// changed tag set. By default only untagged papers are visited; force visits
// every paper, which is how taxonomy edits are rolled out retroactively.
// Returns the number of papers whose tags changed.
func (p *Pipeline) BackfillTags(ctx context.Context, force bool) (int, error) {
	papers, err := p.store.PapersForTagging(ctx, force)
	if err != nil {
		return 0, fmt.Errorf("backfill tags: %w", err)
	}

	updated := 0
	for _, paper := range papers {
		tags := p.tax.TagPaper(paper.Title, paper.Abstract, paper.Categories,
			paper.Keywords, paper.Source, paper.Venue)
		if sameTags(tags, paper.Tags) {
			continue
		}
		if err := p.store.UpdatePaperTags(ctx, paper.ID, tags); err != nil {
			return updated, fmt.Errorf("backfill tags %s: %w", paper.ID, err)
		}
		updated++
	}
	p.log.Info("tag backfill finished",
		zap.Bool("force", force), zap.Int("visited", len(papers)), zap.Int("updated", updated))
	return updated, nil
}

func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
