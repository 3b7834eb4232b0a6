// Package store persists canonical records in Postgres. The pipeline is the
// only writer of papers, posts, and notifications; subscriptions and crawl
// keywords are owned by the operator surface and only read here.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"researchradar/internal/model"
)

// DB is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PaperTags pairs a paper identity with its stored tag set.
type PaperTags struct {
	ID   string
	Tags []string
}

// Store is the persistence contract consumed by the ingestion pipeline and
// the retention manager.
type Store interface {
	PaperExists(ctx context.Context, id string) (bool, error)
	FindPaperDuplicate(ctx context.Context, doi, url, titleKey string) (string, error)
	UpsertPaper(ctx context.Context, p model.PaperRecord) error
	UpsertPost(ctx context.Context, p model.PostRecord) error

	ActiveSubscriptions(ctx context.Context) ([]model.Subscription, error)
	InsertNotification(ctx context.Context, n model.Notification) error
	ActiveCrawlKeywords(ctx context.Context, scope model.KeywordScope) ([]string, error)

	PapersForTagging(ctx context.Context, all bool) ([]model.PaperRecord, error)
	UpdatePaperTags(ctx context.Context, id string, tags []string) error
	ListPaperTags(ctx context.Context) ([]PaperTags, error)

	DeletePapersBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeletePapers(ctx context.Context, ids []string) (int64, error)
	DeletePostsBefore(ctx context.Context, sources []model.PostSource, cutoff time.Time) (int64, error)
	Vacuum(ctx context.Context) error
}
