// Package retention ages out stored records. Papers and code-hosting posts
// keep a long window; community chatter keeps a short one. Records without a
// publication or creation timestamp are never aged out.
package retention

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"researchradar/internal/model"
	"researchradar/internal/store"
	"researchradar/internal/taxonomy"
)

// Policy holds the retention windows in days.
type Policy struct {
	PaperDays     int
	CodeDays      int
	CommunityDays int
}

// DefaultPolicy keeps research artifacts for a year and community posts for
// a quarter.
func DefaultPolicy() Policy {
	return Policy{PaperDays: 365, CodeDays: 365, CommunityDays: 90}
}

// Result counts what a cleanup pass removed.
type Result struct {
	PapersDeleted    int64 `json:"papers_deleted"`
	CodeDeleted      int64 `json:"code_posts_deleted"`
	CommunityDeleted int64 `json:"community_posts_deleted"`
}

// Manager runs cleanup and reclaim passes against the store.
type Manager struct {
	store  store.Store
	policy Policy
	log    *zap.Logger
	now    func() time.Time
}

// NewManager wires a retention manager.
func NewManager(st store.Store, policy Policy, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: st, policy: policy, log: log, now: time.Now}
}

// Cleanup deletes expired records in all three classes. Cutoffs are
// exclusive: a record timestamped exactly at the boundary survives.
func (m *Manager) Cleanup(ctx context.Context) (Result, error) {
	var res Result
	now := m.now().UTC()

	papers, err := m.store.DeletePapersBefore(ctx, now.AddDate(0, 0, -m.policy.PaperDays))
	if err != nil {
		return res, fmt.Errorf("cleanup papers: %w", err)
	}
	res.PapersDeleted = papers

	code, err := m.store.DeletePostsBefore(ctx, model.CodePostSources,
		now.AddDate(0, 0, -m.policy.CodeDays))
	if err != nil {
		return res, fmt.Errorf("cleanup code posts: %w", err)
	}
	res.CodeDeleted = code

	community, err := m.store.DeletePostsBefore(ctx, model.CommunityPostSources,
		now.AddDate(0, 0, -m.policy.CommunityDays))
	if err != nil {
		return res, fmt.Errorf("cleanup community posts: %w", err)
	}
	res.CommunityDeleted = community

	m.log.Info("cleanup finished",
		zap.Int64("papers_deleted", res.PapersDeleted),
		zap.Int64("code_posts_deleted", res.CodeDeleted),
		zap.Int64("community_posts_deleted", res.CommunityDeleted))
	return res, nil
}

// Reclaim compacts storage after deletes.
func (m *Manager) Reclaim(ctx context.Context) error {
	m.log.Info("reclaiming storage")
	return m.store.Vacuum(ctx)
}

// PurgeUntagged deletes papers whose stored tag set carries no business tag.
// Source and venue markers alone do not justify keeping a paper around.
func (m *Manager) PurgeUntagged(ctx context.Context, tax taxonomy.Taxonomy) (int64, error) {
	all, err := m.store.ListPaperTags(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge untagged: %w", err)
	}
	var ids []string
	for _, pt := range all {
		if !tax.HasBusinessTag(pt.Tags) {
			ids = append(ids, pt.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := m.store.DeletePapers(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("purge untagged: %w", err)
	}
	m.log.Info("purged untagged papers", zap.Int64("deleted", n))
	return n, nil
}
