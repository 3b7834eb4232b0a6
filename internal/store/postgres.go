package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"researchradar/internal/canonical"
	"researchradar/internal/model"
)

// psql builds queries with Postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	db  DB
	log *zap.Logger
}

var _ Store = (*Postgres)(nil)

// NewPostgres wires a pool (or mock) and a logger.
func NewPostgres(db DB, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{db: db, log: log}
}

// PaperExists reports whether a paper identity is already stored.
func (p *Postgres) PaperExists(ctx context.Context, id string) (bool, error) {
	query, args, err := psql.Select("1").From("papers").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}
	var one int
	if err := p.db.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("paper exists: %w", err)
	}
	return true, nil
}

// FindPaperDuplicate looks for an already-stored paper matching any of the
// three duplicate keys: exact DOI, exact canonical URL, or normalized title.
// Empty keys are skipped. Returns the existing identity or "".
func (p *Postgres) FindPaperDuplicate(ctx context.Context, doi, url, titleKey string) (string, error) {
	var or sq.Or
	if doi != "" {
		or = append(or, sq.Eq{"doi": doi})
	}
	if url != "" {
		or = append(or, sq.Eq{"url": url})
	}
	if titleKey != "" {
		or = append(or, sq.Eq{"title_key": titleKey})
	}
	if len(or) == 0 {
		return "", nil
	}
	query, args, err := psql.Select("id").From("papers").Where(or).Limit(1).ToSql()
	if err != nil {
		return "", fmt.Errorf("build duplicate query: %w", err)
	}
	var id string
	if err := p.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find duplicate: %w", err)
	}
	return id, nil
}

// UpsertPaper inserts or replaces a paper keyed by identity.
func (p *Postgres) UpsertPaper(ctx context.Context, rec model.PaperRecord) error {
	query, args, err := psql.Insert("papers").
		Columns("id", "title", "abstract", "authors", "categories", "pdf_url", "page_url",
			"published_at", "source", "doi", "url", "title_key", "affiliations", "keywords",
			"venue", "citation_count", "tags", "updated_at").
		Values(rec.ID, rec.Title, rec.Abstract, rec.Authors, rec.Categories, rec.PDFURL, rec.PageURL,
			rec.PublishedAt, string(rec.Source), nullIfEmpty(rec.DOI), nullIfEmpty(rec.URL),
			canonical.NormalizeTitle(rec.Title), rec.Affiliations, rec.Keywords,
			rec.Venue, rec.CitationCount, model.JoinTags(rec.Tags), time.Now().UTC()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, abstract = EXCLUDED.abstract, authors = EXCLUDED.authors,
			categories = EXCLUDED.categories, pdf_url = EXCLUDED.pdf_url, page_url = EXCLUDED.page_url,
			published_at = EXCLUDED.published_at, source = EXCLUDED.source, doi = EXCLUDED.doi,
			url = EXCLUDED.url, title_key = EXCLUDED.title_key, affiliations = EXCLUDED.affiliations,
			keywords = EXCLUDED.keywords, venue = EXCLUDED.venue,
			citation_count = EXCLUDED.citation_count, tags = EXCLUDED.tags,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build paper upsert: %w", err)
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert paper %s: %w", rec.ID, err)
	}
	return nil
}

// UpsertPost inserts or replaces a post keyed by identity.
func (p *Postgres) UpsertPost(ctx context.Context, rec model.PostRecord) error {
	query, args, err := psql.Insert("posts").
		Columns("id", "source", "title", "url", "author", "score", "comment_count",
			"summary", "channel", "tags", "created_at", "fetched_at").
		Values(rec.ID, string(rec.Source), rec.Title, rec.URL, rec.Author, rec.Score, rec.CommentCount,
			rec.Summary, rec.Channel, model.JoinTags(rec.Tags), rec.CreatedAt, rec.FetchedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source, title = EXCLUDED.title, url = EXCLUDED.url,
			author = EXCLUDED.author, score = EXCLUDED.score, comment_count = EXCLUDED.comment_count,
			summary = EXCLUDED.summary, channel = EXCLUDED.channel, tags = EXCLUDED.tags,
			created_at = EXCLUDED.created_at, fetched_at = EXCLUDED.fetched_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build post upsert: %w", err)
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert post %s: %w", rec.ID, err)
	}
	return nil
}

// ActiveSubscriptions loads every active subscription.
func (p *Postgres) ActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	query, args, err := psql.Select("id", "type", "value").
		From("subscriptions").Where(sq.Eq{"active": true}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build subscriptions query: %w", err)
	}
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var typ string
		if err := rows.Scan(&s.ID, &typ, &s.Value); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.Type = model.SubscriptionType(typ)
		s.Active = true
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subscriptions rows: %w", err)
	}
	return subs, nil
}

// InsertNotification records one subscription match.
func (p *Postgres) InsertNotification(ctx context.Context, n model.Notification) error {
	query, args, err := psql.Insert("notifications").
		Columns("id", "paper_id", "subscription_id", "reason", "read", "created_at").
		Values(n.ID, n.PaperID, n.SubscriptionID, n.Reason, n.Read, n.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build notification insert: %w", err)
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notification for %s: %w", n.PaperID, err)
	}
	return nil
}

// ActiveCrawlKeywords loads operator keywords for a scope; keywords scoped
// "all" apply to every scope. Newest first.
func (p *Postgres) ActiveCrawlKeywords(ctx context.Context, scope model.KeywordScope) ([]string, error) {
	query, args, err := psql.Select("keyword").From("crawl_keywords").
		Where(sq.And{
			sq.Eq{"active": true},
			sq.Or{sq.Eq{"scope": string(scope)}, sq.Eq{"scope": string(model.ScopeAll)}},
		}).
		OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build keywords query: %w", err)
	}
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query crawl keywords: %w", err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keywords rows: %w", err)
	}
	return keywords, nil
}

// PapersForTagging returns the classification inputs of stored papers; all
// selects every paper, otherwise only papers with an empty tag set.
func (p *Postgres) PapersForTagging(ctx context.Context, all bool) ([]model.PaperRecord, error) {
	builder := psql.Select("id", "title", "abstract", "categories", "keywords", "source", "venue", "tags").
		From("papers")
	if !all {
		builder = builder.Where(sq.Eq{"tags": ""})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tagging query: %w", err)
	}
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query papers for tagging: %w", err)
	}
	defer rows.Close()

	var papers []model.PaperRecord
	for rows.Next() {
		var rec model.PaperRecord
		var src, tags string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Abstract, &rec.Categories, &rec.Keywords, &src, &rec.Venue, &tags); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		rec.Source = model.PaperSource(src)
		rec.Tags = model.SplitTags(tags)
		papers = append(papers, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tagging rows: %w", err)
	}
	return papers, nil
}

// UpdatePaperTags replaces a paper's tag set.
func (p *Postgres) UpdatePaperTags(ctx context.Context, id string, tags []string) error {
	query, args, err := psql.Update("papers").
		Set("tags", model.JoinTags(tags)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build tags update: %w", err)
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update tags %s: %w", id, err)
	}
	return nil
}

// ListPaperTags returns every paper identity with its tag set.
func (p *Postgres) ListPaperTags(ctx context.Context) ([]PaperTags, error) {
	query, args, err := psql.Select("id", "tags").From("papers").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tags list query: %w", err)
	}
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query paper tags: %w", err)
	}
	defer rows.Close()

	var out []PaperTags
	for rows.Next() {
		var id, tags string
		if err := rows.Scan(&id, &tags); err != nil {
			return nil, fmt.Errorf("scan paper tags: %w", err)
		}
		out = append(out, PaperTags{ID: id, Tags: model.SplitTags(tags)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("paper tags rows: %w", err)
	}
	return out, nil
}

// DeletePapersBefore removes papers published strictly before cutoff,
// cascading to their notifications. Papers without a publication timestamp
// are never deleted.
func (p *Postgres) DeletePapersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psql.Select("id").From("papers").
		Where(sq.And{
			sq.NotEq{"published_at": nil},
			sq.Lt{"published_at": cutoff},
		}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build expired papers query: %w", err)
	}
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("query expired papers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan expired paper: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("expired papers rows: %w", err)
	}
	return p.DeletePapers(ctx, ids)
}

// DeletePapers removes the given papers, deleting their notifications first
// to avoid orphaned references.
func (p *Postgres) DeletePapers(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := psql.Delete("notifications").Where(sq.Eq{"paper_id": ids}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build notifications delete: %w", err)
	}
	if _, err := p.db.Exec(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}

	query, args, err = psql.Delete("papers").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build papers delete: %w", err)
	}
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete papers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeletePostsBefore removes posts of the given sources created strictly
// before cutoff. Posts without a creation timestamp are never deleted.
func (p *Postgres) DeletePostsBefore(ctx context.Context, sources []model.PostSource, cutoff time.Time) (int64, error) {
	if len(sources) == 0 {
		return 0, nil
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	query, args, err := psql.Delete("posts").
		Where(sq.And{
			sq.Eq{"source": names},
			sq.NotEq{"created_at": nil},
			sq.Lt{"created_at": cutoff},
		}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build posts delete: %w", err)
	}
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete posts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Vacuum reclaims storage after bulk deletes. VACUUM cannot run inside a
// transaction and takes locks the normal pipeline must not hold.
func (p *Postgres) Vacuum(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
