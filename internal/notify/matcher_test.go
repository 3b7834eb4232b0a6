package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchradar/internal/model"
)

func TestMatches(t *testing.T) {
	paper := model.PaperRecord{
		ID:           "arxiv:2501.00001",
		Title:        "Relightable Gaussian Avatars",
		Abstract:     "We propose a method for avatar relighting.",
		Authors:      "Bernhard Kerbl, Jane Doe",
		Affiliations: "TU Wien; Example Lab",
		Categories:   "cs.CV, cs.GR, computational geometry",
		Keywords:     "gaussian splatting",
		Source:       model.SourceArxiv,
	}

	tests := []struct {
		name string
		sub  model.Subscription
		want bool
	}{
		{"keyword in title", model.Subscription{Type: model.SubKeyword, Value: "avatars"}, true},
		{"keyword in abstract", model.Subscription{Type: model.SubKeyword, Value: "relighting"}, true},
		{"keyword in categories", model.Subscription{Type: model.SubKeyword, Value: "geometry"}, true},
		{"keyword ignores provenance keywords", model.Subscription{Type: model.SubKeyword, Value: "splatting"}, false},
		{"keyword case insensitive", model.Subscription{Type: model.SubKeyword, Value: "RELIGHTABLE"}, true},
		{"keyword absent", model.Subscription{Type: model.SubKeyword, Value: "nerf"}, false},
		{"author substring", model.Subscription{Type: model.SubAuthor, Value: "kerbl"}, true},
		{"affiliation substring", model.Subscription{Type: model.SubAffiliation, Value: "tu wien"}, true},
		{"category substring", model.Subscription{Type: model.SubCategory, Value: "cs.gr"}, true},
		{"source exact", model.Subscription{Type: model.SubSource, Value: "ArXiv"}, true},
		{"source partial does not match", model.Subscription{Type: model.SubSource, Value: "arx"}, false},
		{"empty value never matches", model.Subscription{Type: model.SubKeyword, Value: "  "}, false},
		{"unknown type never matches", model.Subscription{Type: "team", Value: "anything"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(paper, tt.sub))
		})
	}
}

func TestBuildNotifications(t *testing.T) {
	paper := model.PaperRecord{
		ID:      "arxiv:2501.00001",
		Title:   "Gaussian Splatting for Driving",
		Authors: "Alice",
		Source:  model.SourceArxiv,
	}
	subs := []model.Subscription{
		{ID: "sub-1", Type: model.SubKeyword, Value: "driving"},
		{ID: "sub-2", Type: model.SubAuthor, Value: "bob"},
		{ID: "sub-3", Type: model.SubSource, Value: "arxiv"},
	}

	got := BuildNotifications(paper, subs)
	require.Len(t, got, 2)
	assert.Equal(t, "sub-1", got[0].SubscriptionID)
	assert.Equal(t, "keyword:driving", got[0].Reason)
	assert.Equal(t, "source:arxiv", got[1].Reason)
	for _, n := range got {
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, paper.ID, n.PaperID)
		assert.False(t, n.CreatedAt.IsZero())
	}
}
