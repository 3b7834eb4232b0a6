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

const arxivFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2409.01234v1</id>
    <title>Compact 3D Gaussian
 Splatting</title>
    <summary>We compress
 splats.</summary>
    <published>2024-09-02T12:00:00Z</published>
    <author><name>Alice Example</name></author>
    <author><name>Bob Example</name></author>
    <category term="cs.CV"/>
    <category term="cs.GR"/>
    <link rel="related" href="http://arxiv.org/pdf/2409.01234v1"/>
  </entry>
  <entry>
    <id></id>
    <title>entry without id is dropped</title>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		assert.Equal(t, "submittedDate", r.URL.Query().Get("sortBy"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(arxivFeedFixture))
	}))
	defer srv.Close()

	a := NewArxiv(srv.URL, time.Second)
	a.now = func() time.Time { return time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC) }

	since := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	papers, err := a.Search(context.Background(), `(all:"gaussian splatting")`, since, 10)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	assert.Contains(t, gotQuery, "submittedDate:[202409010000 TO 202409090000]")

	p := papers[0]
	assert.Equal(t, "arxiv:2409.01234v1", p.ID)
	assert.Equal(t, "Compact 3D Gaussian Splatting", p.Title)
	assert.Equal(t, "We compress splats.", p.Abstract)
	assert.Equal(t, "Alice Example, Bob Example", p.Authors)
	assert.Equal(t, "cs.CV, cs.GR", p.Categories)
	assert.Equal(t, "http://arxiv.org/pdf/2409.01234v1", p.PDFURL)
	assert.Equal(t, "https://arxiv.org/abs/2409.01234v1", p.PageURL)
	assert.Equal(t, model.SourceArxiv, p.Source)
	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, 2024, p.PublishedAt.Year())
}

func TestArxivSearchEmptyQuery(t *testing.T) {
	t.Parallel()

	a := NewArxiv("http://unused.invalid", time.Second)
	papers, err := a.Search(context.Background(), "", time.Time{}, 10)
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestTagQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		keywords []string
		cooccur  []string
		want     string
	}{
		{
			name:     "quotes multi-word terms",
			keywords: []string{"gaussian splatting", "3dgs"},
			want:     `(all:"gaussian splatting" OR all:3dgs)`,
		},
		{
			name:     "cooccurrence constraint",
			keywords: []string{"relighting"},
			cooccur:  []string{"gaussian splatting"},
			want:     `(all:relighting) AND (all:"gaussian splatting")`,
		},
		{
			name:     "short keywords dropped",
			keywords: []string{"ai", "world model"},
			want:     `(all:"world model")`,
		},
		{
			name:     "empty when nothing searchable",
			keywords: []string{"ai"},
			want:     "",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TagQuery(tt.keywords, tt.cooccur))
		})
	}
}

func TestFilterPapersSince(t *testing.T) {
	t.Parallel()

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	papers := []model.PaperRecord{
		{ID: "a", PublishedAt: &old},
		{ID: "b", PublishedAt: &fresh},
		{ID: "c"},
	}

	got := FilterPapersSince(papers, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	// The input slice stays intact; workers may share a Search result.
	assert.Equal(t, []string{"a", "b", "c"}, []string{papers[0].ID, papers[1].ID, papers[2].ID})

	// Zero since keeps everything.
	all := []model.PaperRecord{{ID: "a", PublishedAt: &old}}
	assert.Len(t, FilterPapersSince(all, time.Time{}), 1)
}

func TestFilterPostsSince(t *testing.T) {
	t.Parallel()

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := []model.PostRecord{
		{ID: "a", CreatedAt: &old},
		{ID: "b"},
	}
	got := FilterPostsSince(posts, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", posts[0].ID)
}
