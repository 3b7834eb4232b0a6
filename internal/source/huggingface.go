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

const hfDefaultBaseURL = "https://huggingface.co"

// HuggingFace searches the model hub. The listing API cannot filter by
// date, so recency is client-side against createdAt.
type HuggingFace struct {
	baseURL string
	client  *http.Client
}

// NewHuggingFace builds the adapter.
func NewHuggingFace(baseURL string, timeout time.Duration) *HuggingFace {
	if baseURL == "" {
		baseURL = hfDefaultBaseURL
	}
	return &HuggingFace{baseURL: baseURL, client: defaultClient(timeout)}
}

// Name implements PostSource.
func (h *HuggingFace) Name() string { return string(model.SourceHuggingFace) }

// Source implements PostSource.
func (h *HuggingFace) Source() model.PostSource { return model.SourceHuggingFace }

// Capabilities implements PostSource.
func (h *HuggingFace) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: false, Paginated: false}
}

// Search implements PostSource with a keyword query over models.
func (h *HuggingFace) Search(ctx context.Context, query string, _ time.Time, limit int) ([]model.PostRecord, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("search", strings.ToLower(query))
	q.Set("limit", strconv.Itoa(min(limit, 50)))
	q.Set("sort", "downloads")

	var items []struct {
		ModelID   string   `json:"modelId"`
		ID        string   `json:"id"`
		Downloads int      `json:"downloads"`
		Likes     int      `json:"likes"`
		Tags      []string `json:"tags"`
		CreatedAt string   `json:"createdAt"`
	}
	if err := getJSON(ctx, h.client, h.baseURL+"/api/models?"+q.Encode(), nil, &items); err != nil {
		return nil, fmt.Errorf("huggingface search: %w", err)
	}

	now := time.Now().UTC()
	var posts []model.PostRecord
	for _, item := range items {
		modelID := item.ModelID
		if modelID == "" {
			modelID = item.ID
		}
		if modelID == "" {
			continue
		}
		author := ""
		if i := strings.Index(modelID, "/"); i > 0 {
			author = modelID[:i]
		}
		score := item.Downloads
		if score == 0 {
			score = item.Likes
		}
		channel := ""
		if len(item.Tags) > 0 {
			channel = strings.Join(item.Tags[:min(3, len(item.Tags))], ", ")
		}
		var created *time.Time
		if t, err := time.Parse(time.RFC3339, item.CreatedAt); err == nil {
			tt := t.UTC()
			created = &tt
		}
		posts = append(posts, model.PostRecord{
			ID:        "hf:" + strings.ReplaceAll(modelID, "/", "_"),
			Source:    model.SourceHuggingFace,
			Title:     modelID,
			URL:       h.baseURL + "/" + modelID,
			Author:    author,
			Score:     score,
			Channel:   channel,
			CreatedAt: created,
			FetchedAt: now,
		})
	}
	return posts, nil
}
