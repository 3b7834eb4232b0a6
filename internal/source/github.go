package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"researchradar/internal/model"
)

const githubDefaultBaseURL = "https://api.github.com"

// GitHub searches repositories. Recency is applied server-side with a
// created:> qualifier in the search query.
type GitHub struct {
	baseURL string
	client  *http.Client
	token   string
}

// NewGitHub builds the adapter. The token is optional; unauthenticated
// search has a tighter rate limit but works.
func NewGitHub(baseURL, token string, timeout time.Duration) *GitHub {
	if baseURL == "" {
		baseURL = githubDefaultBaseURL
	}
	return &GitHub{baseURL: baseURL, client: defaultClient(timeout), token: token}
}

// Name implements PostSource.
func (g *GitHub) Name() string { return string(model.SourceGitHub) }

// Source implements PostSource.
func (g *GitHub) Source() model.PostSource { return model.SourceGitHub }

// Capabilities implements PostSource.
func (g *GitHub) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: true, Paginated: true}
}

// Search implements PostSource with a keyword query over repositories.
func (g *GitHub) Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PostRecord, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}
	search := strings.ToLower(query)
	if !since.IsZero() {
		search += " created:>=" + since.UTC().Format("2006-01-02")
	}
	q := url.Values{}
	q.Set("q", search)
	q.Set("sort", "created")
	q.Set("per_page", strconv.Itoa(limit))

	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}

	var resp struct {
		Items []struct {
			ID          int64  `json:"id"`
			FullName    string `json:"full_name"`
			HTMLURL     string `json:"html_url"`
			Description string `json:"description"`
			Stargazers  int    `json:"stargazers_count"`
			CreatedAt   string `json:"created_at"`
			Owner       struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"items"`
	}
	if err := getJSON(ctx, g.client, g.baseURL+"/search/repositories?"+q.Encode(), headers, &resp); err != nil {
		return nil, fmt.Errorf("github search: %w", err)
	}

	now := time.Now().UTC()
	var posts []model.PostRecord
	for _, item := range resp.Items {
		if item.FullName == "" {
			continue
		}
		var created *time.Time
		if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
			tt := t.UTC()
			created = &tt
		}
		posts = append(posts, model.PostRecord{
			ID:        "github:" + strconv.FormatInt(item.ID, 10),
			Source:    model.SourceGitHub,
			Title:     item.FullName,
			URL:       item.HTMLURL,
			Author:    item.Owner.Login,
			Score:     item.Stargazers,
			Summary:   truncate(item.Description, summaryLimit),
			CreatedAt: created,
			FetchedAt: now,
		})
	}
	return posts, nil
}
