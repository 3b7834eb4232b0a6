package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"researchradar/internal/model"
)

const arxivDefaultBaseURL = "http://export.arxiv.org/api/query"

// Arxiv searches the arXiv Atom API. Recency is applied server-side through
// a submittedDate range term in the query.
type Arxiv struct {
	baseURL  string
	client   *http.Client
	pageSize int
	now      func() time.Time
}

// NewArxiv builds the arXiv adapter. baseURL may be empty for the public API.
func NewArxiv(baseURL string, timeout time.Duration) *Arxiv {
	if baseURL == "" {
		baseURL = arxivDefaultBaseURL
	}
	return &Arxiv{
		baseURL:  baseURL,
		client:   defaultClient(timeout),
		pageSize: 50,
		now:      time.Now,
	}
}

// Name implements PaperSource.
func (a *Arxiv) Name() string { return string(model.SourceArxiv) }

// Capabilities implements PaperSource.
func (a *Arxiv) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: true, Paginated: true}
}

// TagQuery assembles an arXiv search expression from a tag's keywords,
// optionally AND-constrained by the co-occurrence keyword set.
func TagQuery(keywords, cooccur []string) string {
	kwPart := arxivOrTerms(keywords)
	if kwPart == "" {
		return ""
	}
	gsPart := arxivOrTerms(cooccur)
	if gsPart == "" {
		return "(" + kwPart + ")"
	}
	return "(" + kwPart + ") AND (" + gsPart + ")"
}

func arxivOrTerms(keywords []string) string {
	var terms []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if len(kw) < 3 {
			continue
		}
		if strings.Contains(kw, " ") {
			terms = append(terms, `all:"`+kw+`"`)
		} else {
			terms = append(terms, "all:"+kw)
		}
	}
	return strings.Join(terms, " OR ")
}

// Search pages through arXiv results for one query, newest first, until
// limit papers are collected or the feed runs out.
func (a *Arxiv) Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PaperRecord, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}
	if !since.IsZero() {
		query = fmt.Sprintf("(%s) AND submittedDate:[%s TO %s]",
			query, since.UTC().Format("200601021504"), a.now().UTC().Format("200601021504"))
	}

	var papers []model.PaperRecord
	for start := 0; len(papers) < limit; {
		pageSize := a.pageSize
		if rest := limit - len(papers); rest < pageSize {
			pageSize = rest
		}
		q := url.Values{}
		q.Set("search_query", query)
		q.Set("sortBy", "submittedDate")
		q.Set("sortOrder", "descending")
		q.Set("start", strconv.Itoa(start))
		q.Set("max_results", strconv.Itoa(pageSize))

		body, err := getBody(ctx, a.client, a.baseURL+"?"+q.Encode(), nil)
		if err != nil {
			return papers, fmt.Errorf("arxiv search: %w", err)
		}
		var feed arxivFeed
		if err := xml.Unmarshal(body, &feed); err != nil {
			return papers, fmt.Errorf("arxiv feed: %w", err)
		}
		if len(feed.Entries) == 0 {
			break
		}
		for _, e := range feed.Entries {
			if p, ok := e.paper(); ok {
				papers = append(papers, p)
			}
		}
		start += len(feed.Entries)
		if len(feed.Entries) < pageSize {
			break
		}
	}
	return papers, nil
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string `xml:"id"`
	Title      string `xml:"title"`
	Summary    string `xml:"summary"`
	Published  string `xml:"published"`
	Authors    []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	Links []struct {
		Rel  string `xml:"rel,attr"`
		Href string `xml:"href,attr"`
	} `xml:"link"`
}

func (e arxivEntry) paper() (model.PaperRecord, bool) {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		return model.PaperRecord{}, false
	}
	// Atom ids look like http://arxiv.org/abs/2409.01234v1.
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}

	var authors []string
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	var cats []string
	for _, c := range e.Categories {
		if c.Term != "" {
			cats = append(cats, c.Term)
		}
	}
	pdfURL := ""
	for _, l := range e.Links {
		if l.Rel == "related" {
			pdfURL = l.Href
		}
	}
	if pdfURL == "" {
		pdfURL = "https://arxiv.org/pdf/" + id + ".pdf"
	}
	pageURL := "https://arxiv.org/abs/" + id

	var published *time.Time
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		published = &t
	}

	return model.PaperRecord{
		ID:          "arxiv:" + id,
		Title:       flattenText(e.Title),
		Abstract:    flattenText(e.Summary),
		Authors:     strings.Join(authors, ", "),
		Categories:  strings.Join(cats, ", "),
		PDFURL:      pdfURL,
		PageURL:     pageURL,
		URL:         pageURL,
		PublishedAt: published,
		Source:      model.SourceArxiv,
	}, true
}

// flattenText collapses the newline-wrapped text arXiv feeds carry.
func flattenText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
