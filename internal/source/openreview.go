package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"researchradar/internal/model"
)

const openReviewDefaultBaseURL = "https://api2.openreview.net"

// Venue is one OpenReview conference track to pull submissions from.
type Venue struct {
	ID   string
	Name string
}

// DefaultVenues are the conferences the team tracks.
var DefaultVenues = []Venue{
	{ID: "ICLR.cc/2025/Conference", Name: "ICLR 2025 Conference"},
	{ID: "NeurIPS.cc/2025/Conference", Name: "NeurIPS 2025 Conference"},
	{ID: "thecvf.com/CVPR/2025/Conference", Name: "CVPR 2025 Conference"},
	{ID: "thecvf.com/ICCV/2025/Conference", Name: "ICCV 2025 Conference"},
}

// OpenReview pulls conference submissions from the OpenReview notes API.
// The API has no date parameter, so recency filtering is client-side.
type OpenReview struct {
	baseURL string
	client  *http.Client
	venues  []Venue
}

// NewOpenReview builds the adapter; empty baseURL targets the public API,
// nil venues uses DefaultVenues.
func NewOpenReview(baseURL string, timeout time.Duration, venues []Venue) *OpenReview {
	if baseURL == "" {
		baseURL = openReviewDefaultBaseURL
	}
	if len(venues) == 0 {
		venues = DefaultVenues
	}
	return &OpenReview{baseURL: baseURL, client: defaultClient(timeout), venues: venues}
}

// Name implements PaperSource.
func (o *OpenReview) Name() string { return string(model.SourceOpenReview) }

// Capabilities implements PaperSource.
func (o *OpenReview) Capabilities() Capabilities {
	return Capabilities{ServerSideRecency: false, Paginated: true}
}

// Venues returns the configured venue universe; the orchestrator issues one
// quota-bounded task per venue.
func (o *OpenReview) Venues() []Venue { return o.venues }

// Search implements PaperSource. The query is a venue id; an unknown venue
// still queried as-is with the id doubling as display name.
func (o *OpenReview) Search(ctx context.Context, query string, since time.Time, limit int) ([]model.PaperRecord, error) {
	venue := Venue{ID: query, Name: query}
	for _, v := range o.venues {
		if v.ID == query {
			venue = v
			break
		}
	}
	return o.searchVenue(ctx, venue, since, limit)
}

// Submissions use one of two invitation suffixes depending on the venue's
// review process; the first that yields notes wins.
var invitationSuffixes = []string{"Submission", "Blind_Submission"}

func (o *OpenReview) searchVenue(ctx context.Context, venue Venue, since time.Time, limit int) ([]model.PaperRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	var papers []model.PaperRecord
	for _, suffix := range invitationSuffixes {
		invitation := venue.ID + "/-/" + suffix
		page, err := o.fetchInvitation(ctx, invitation, venue.Name, since, limit)
		if err != nil {
			return papers, err
		}
		if len(page) > 0 {
			return page, nil
		}
	}
	return papers, nil
}

const openReviewPageSize = 100

func (o *OpenReview) fetchInvitation(ctx context.Context, invitation, venueName string, since time.Time, limit int) ([]model.PaperRecord, error) {
	var papers []model.PaperRecord
	for offset := 0; len(papers) < limit; {
		q := url.Values{}
		q.Set("invitation", invitation)
		q.Set("limit", strconv.Itoa(min(openReviewPageSize, limit-len(papers))))
		q.Set("offset", strconv.Itoa(offset))
		q.Set("sort", "tcdate:desc")

		var resp struct {
			Notes []openReviewNote `json:"notes"`
		}
		if err := getJSON(ctx, o.client, o.baseURL+"/notes?"+q.Encode(), nil, &resp); err != nil {
			return papers, fmt.Errorf("openreview %s: %w", invitation, err)
		}
		if len(resp.Notes) == 0 {
			break
		}
		for _, note := range resp.Notes {
			p, ok := note.paper(venueName)
			if !ok {
				continue
			}
			if !since.IsZero() && p.PublishedAt != nil && p.PublishedAt.Before(since) {
				continue
			}
			papers = append(papers, p)
			if len(papers) >= limit {
				break
			}
		}
		offset += len(resp.Notes)
		if len(resp.Notes) < openReviewPageSize {
			break
		}
	}
	return papers, nil
}

type openReviewNote struct {
	ID      string                     `json:"id"`
	PDate   int64                      `json:"pdate"`
	CDate   int64                      `json:"cdate"`
	Content map[string]json.RawMessage `json:"content"`
}

// contentValue unwraps an API v2 content field, which may be a bare value or
// a {"value": ...} wrapper.
func contentValue(raw json.RawMessage, out any) {
	if len(raw) == 0 {
		return
	}
	var wrapped struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Value) > 0 {
		raw = wrapped.Value
	}
	_ = json.Unmarshal(raw, out)
}

func (n openReviewNote) paper(venueName string) (model.PaperRecord, bool) {
	if n.ID == "" {
		return model.PaperRecord{}, false
	}
	var title, abstract, doi string
	var authors []string
	contentValue(n.Content["title"], &title)
	contentValue(n.Content["abstract"], &abstract)
	contentValue(n.Content["authors"], &authors)
	contentValue(n.Content["doi"], &doi)

	ms := n.PDate
	if ms == 0 {
		ms = n.CDate
	}
	var published *time.Time
	if ms > 0 {
		t := time.UnixMilli(ms).UTC()
		published = &t
	}
	forumURL := "https://openreview.net/forum?id=" + n.ID

	return model.PaperRecord{
		ID:          "openreview:" + n.ID,
		Title:       flattenText(title),
		Abstract:    flattenText(abstract),
		Authors:     strings.Join(authors, ", "),
		Categories:  venueName,
		Venue:       venueName,
		PDFURL:      "https://openreview.net/pdf?id=" + n.ID,
		PageURL:     forumURL,
		URL:         forumURL,
		PublishedAt: published,
		Source:      model.SourceOpenReview,
		DOI:         doi,
	}, true
}
