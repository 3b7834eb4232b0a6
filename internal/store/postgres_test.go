package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"researchradar/internal/model"
)

func newMockStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock, zap.NewNop()), mock
}

func TestPaperExists(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT 1 FROM papers").
		WithArgs("arxiv:2501.00001").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	ok, err := s.PaperExists(context.Background(), "arxiv:2501.00001")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery("SELECT 1 FROM papers").
		WithArgs("arxiv:missing").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}))

	ok, err = s.PaperExists(context.Background(), "arxiv:missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPaperDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM papers").
		WithArgs("10.1000/x", "https://example.com/p", "gaussian splatting survey").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("s2:abc"))

	id, err := s.FindPaperDuplicate(context.Background(), "10.1000/x", "https://example.com/p", "gaussian splatting survey")
	require.NoError(t, err)
	assert.Equal(t, "s2:abc", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPaperDuplicateSkipsEmptyKeys(t *testing.T) {
	s, mock := newMockStore(t)

	// All keys empty: no query at all.
	id, err := s.FindPaperDuplicate(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.Empty(t, id)

	// Only the title key set: exactly one placeholder.
	mock.ExpectQuery("SELECT id FROM papers").
		WithArgs("some title").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	id, err = s.FindPaperDuplicate(context.Background(), "", "", "some title")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPaperComputesTitleKey(t *testing.T) {
	s, mock := newMockStore(t)

	pub := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := model.PaperRecord{
		ID:          "arxiv:2501.00001",
		Title:       "3D Gaussian Splatting: A Survey!",
		Abstract:    "We survey splatting.",
		Authors:     "A. Author",
		Source:      model.SourceArxiv,
		PublishedAt: &pub,
		Tags:        []string{"3dgs", "ARXIV"},
	}

	mock.ExpectExec("INSERT INTO papers").
		WithArgs(rec.ID, rec.Title, rec.Abstract, rec.Authors, "", "", "",
			&pub, "arxiv", nil, nil, "3d gaussian splatting a survey", "", "",
			"", (*int)(nil), "3dgs,ARXIV", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertPaper(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPost(t *testing.T) {
	s, mock := newMockStore(t)

	created := time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)
	fetched := time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)
	rec := model.PostRecord{
		ID:           "hn:123",
		Source:       model.SourceHackerNews,
		Title:        "Splats everywhere",
		URL:          "https://example.com",
		Author:       "pg",
		Score:        42,
		CommentCount: 7,
		Tags:         []string{"HN"},
		CreatedAt:    &created,
		FetchedAt:    fetched,
	}

	mock.ExpectExec("INSERT INTO posts").
		WithArgs(rec.ID, "hn", rec.Title, rec.URL, rec.Author, 42, 7,
			"", "", "HN", &created, fetched).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertPost(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveSubscriptions(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, type, value FROM subscriptions").
		WithArgs(true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "type", "value"}).
			AddRow("sub-1", "keyword", "relighting").
			AddRow("sub-2", "author", "Kerbl"))

	subs, err := s.ActiveSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, model.SubKeyword, subs[0].Type)
	assert.Equal(t, "Kerbl", subs[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveCrawlKeywordsIncludesAllScope(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT keyword FROM crawl_keywords").
		WithArgs(true, "papers", "all").
		WillReturnRows(pgxmock.NewRows([]string{"keyword"}).
			AddRow("4d gaussian").
			AddRow("splat compression"))

	kws, err := s.ActiveCrawlKeywords(context.Background(), model.ScopePapers)
	require.NoError(t, err)
	assert.Equal(t, []string{"4d gaussian", "splat compression"}, kws)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePapersCascadesNotificationsFirst(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM notifications").
		WithArgs("arxiv:a", "arxiv:b").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("DELETE FROM papers").
		WithArgs("arxiv:a", "arxiv:b").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := s.DeletePapers(context.Background(), []string{"arxiv:a", "arxiv:b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePapersNoIDs(t *testing.T) {
	s, mock := newMockStore(t)

	n, err := s.DeletePapers(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePapersBefore(t *testing.T) {
	s, mock := newMockStore(t)

	cutoff := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id FROM papers").
		WithArgs(cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("arxiv:old"))
	mock.ExpectExec("DELETE FROM notifications").
		WithArgs("arxiv:old").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM papers").
		WithArgs("arxiv:old").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	n, err := s.DeletePapersBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePostsBefore(t *testing.T) {
	s, mock := newMockStore(t)

	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM posts").
		WithArgs("hn", "reddit", cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 9))

	n, err := s.DeletePostsBefore(context.Background(),
		[]model.PostSource{model.SourceHackerNews, model.SourceReddit}, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVacuum(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("VACUUM").WillReturnResult(pgxmock.NewResult("VACUUM", 0))
	require.NoError(t, s.Vacuum(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPaperTags(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, tags FROM papers").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tags"}).
			AddRow("arxiv:a", "3dgs,ARXIV").
			AddRow("arxiv:b", ""))

	tags, err := s.ListPaperTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, []string{"3dgs", "ARXIV"}, tags[0].Tags)
	assert.Empty(t, tags[1].Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPapersForTaggingUntaggedOnly(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, title, abstract, categories, keywords, source, venue, tags FROM papers").
		WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "abstract", "categories", "keywords", "source", "venue", "tags"}).
			AddRow("arxiv:a", "T", "A", "cs.CV", "", "arxiv", "", ""))

	papers, err := s.PapersForTagging(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, model.SourceArxiv, papers[0].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}
