package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"researchradar/internal/model"
)

const (
	s2DefaultBaseURL = "https://api.semanticscholar.org/graph/v1/paper/search"
	s2Fields         = "paperId,title,abstract,authors,publicationDate,year,venue,publicationVenue,citationCount,externalIds,url"
)

// SemanticScholar searches the Semantic Scholar Graph API. The API has no
// date filter, so recency is applied client-side against publicationDate.
type SemanticScholar struct {
	baseURL string
	client  *http.Client
}

// NewSemanticScholar builds the adapter.
func NewSemanticScholar(baseURL string, timeout time.Duration) *SemanticScholar {
	if baseURL == "" {
		baseURL = s2DefaultBaseURL
	}
	return &SemanticScholar{baseURL: baseURL, client: defaultClient(timeout)}
}

// Name implements PaperSource.
func (s *SemanticScholar) Name() string { return string(model.SourceSemanticScholar) }

// Capabilities implements PaperSource.
func (s *SemanticScholar) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: false, Paginated: false}
}

// Search implements PaperSource. The query is recorded on returned papers
// as their keyword provenance.
func (s *SemanticScholar) Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PaperRecord, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(min(limit, 100)))
	q.Set("fields", s2Fields)

	var resp struct {
		Data []s2Paper `json:"data"`
	}
	if err := getJSON(ctx, s.client, s.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("semantic scholar search: %w", err)
	}

	var papers []model.PaperRecord
	for _, item := range resp.Data {
		p, ok := item.paper(query)
		if !ok {
			continue
		}
		if !since.IsZero() && p.PublishedAt != nil && p.PublishedAt.Before(since) {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

type s2Paper struct {
	PaperID         string `json:"paperId"`
	Title           string `json:"title"`
	Abstract        string `json:"abstract"`
	PublicationDate string `json:"publicationDate"`
	Year            int    `json:"year"`
	Venue           string `json:"venue"`
	URL             string `json:"url"`
	CitationCount   *int   `json:"citationCount"`
	PublicationVenue struct {
		Name string `json:"name"`
	} `json:"publicationVenue"`
	ExternalIDs struct {
		DOI   string `json:"DOI"`
		ArXiv string `json:"ArXiv"`
	} `json:"externalIds"`
	Authors []struct {
		Name         string   `json:"name"`
		Affiliations []string `json:"affiliations"`
	} `json:"authors"`
}

func (p s2Paper) paper(query string) (model.PaperRecord, bool) {
	if p.PaperID == "" {
		return model.PaperRecord{}, false
	}

	var names []string
	affSet := make(map[string]struct{})
	for _, a := range p.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
		for _, aff := range a.Affiliations {
			if aff != "" {
				affSet[aff] = struct{}{}
			}
		}
	}
	affs := make([]string, 0, len(affSet))
	for aff := range affSet {
		affs = append(affs, aff)
	}
	sort.Strings(affs)

	pageURL := p.URL
	if pageURL == "" && p.ExternalIDs.ArXiv != "" {
		pageURL = "https://arxiv.org/abs/" + p.ExternalIDs.ArXiv
	}

	venue := p.PublicationVenue.Name
	if venue == "" {
		venue = p.Venue
	}
	if venue == "" {
		venue = "Semantic Scholar"
	}

	var published *time.Time
	if p.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", p.PublicationDate); err == nil {
			tt := t.UTC()
			published = &tt
		}
	}
	if published == nil && p.Year > 0 {
		t := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		published = &t
	}

	return model.PaperRecord{
		ID:            "s2:" + p.PaperID,
		Title:         flattenText(p.Title),
		Abstract:      flattenText(p.Abstract),
		Authors:       strings.Join(names, ", "),
		Categories:    venue,
		Venue:         venue,
		PageURL:       pageURL,
		URL:           pageURL,
		PublishedAt:   published,
		Source:        model.SourceSemanticScholar,
		DOI:           p.ExternalIDs.DOI,
		Affiliations:  strings.Join(affs, ", "),
		Keywords:      query,
		CitationCount: p.CitationCount,
	}, true
}
