package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchradar/internal/model"
)

func TestSemanticScholarSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gaussian splatting", r.URL.Query().Get("query"))
		assert.Contains(t, r.URL.Query().Get("fields"), "citationCount")
		_, _ = w.Write([]byte(`{"data": [
			{
				"paperId": "p1",
				"title": "Splatting at Scale",
				"abstract": "Big splats.",
				"publicationDate": "2025-06-15",
				"venue": "",
				"publicationVenue": {"name": "CVPR"},
				"citationCount": 12,
				"url": "https://example.org/p1",
				"externalIds": {"DOI": "10.1/p1"},
				"authors": [
					{"name": "Ann", "affiliations": ["MIT", "NVIDIA"]},
					{"name": "Ben", "affiliations": ["MIT"]}
				]
			},
			{"paperId": ""}
		]}`))
	}))
	defer srv.Close()

	s := NewSemanticScholar(srv.URL, time.Second)
	papers, err := s.Search(context.Background(), "gaussian splatting", time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, "s2:p1", p.ID)
	assert.Equal(t, "Splatting at Scale", p.Title)
	assert.Equal(t, "Ann, Ben", p.Authors)
	// Affiliations are a sorted, deduplicated set.
	assert.Equal(t, "MIT, NVIDIA", p.Affiliations)
	assert.Equal(t, "CVPR", p.Venue)
	assert.Equal(t, "10.1/p1", p.DOI)
	assert.Equal(t, "gaussian splatting", p.Keywords)
	require.NotNil(t, p.CitationCount)
	assert.Equal(t, 12, *p.CitationCount)
	assert.Equal(t, model.SourceSemanticScholar, p.Source)
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *p.PublishedAt)
}

func TestSemanticScholarYearFallback(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [
			{"paperId": "p1", "title": "T", "year": 2024, "externalIds": {"ArXiv": "2409.01234"}}
		]}`))
	}))
	defer srv.Close()

	s := NewSemanticScholar(srv.URL, time.Second)
	papers, err := s.Search(context.Background(), "q", time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *p.PublishedAt)
	// No url field, so the arXiv external id supplies the page link.
	assert.Equal(t, "https://arxiv.org/abs/2409.01234", p.PageURL)
	assert.Equal(t, "Semantic Scholar", p.Venue)
}

func TestSemanticScholarRecencyFilter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [
			{"paperId": "old", "title": "Old", "publicationDate": "2020-01-01"},
			{"paperId": "new", "title": "New", "publicationDate": "2025-08-01"}
		]}`))
	}))
	defer srv.Close()

	s := NewSemanticScholar(srv.URL, time.Second)
	papers, err := s.Search(context.Background(), "q", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "s2:new", papers[0].ID)
}
