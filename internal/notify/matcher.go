// Package notify matches freshly ingested papers against operator
// subscriptions and produces notification rows. Notifications fire only on
// first insert of a paper, never on refresh.
package notify

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"researchradar/internal/model"
)

// Matches reports whether a subscription applies to a paper. Source
// subscriptions require an exact (case-insensitive) match; every other type
// is a case-insensitive substring match over its field. Keyword
// subscriptions scan title, abstract, and categories; the Keywords field is
// search provenance, not paper content, and is excluded.
func Matches(p model.PaperRecord, sub model.Subscription) bool {
	value := strings.ToLower(strings.TrimSpace(sub.Value))
	if value == "" {
		return false
	}
	switch sub.Type {
	case model.SubKeyword:
		return contains(p.Title, value) || contains(p.Abstract, value) || contains(p.Categories, value)
	case model.SubAuthor:
		return contains(p.Authors, value)
	case model.SubAffiliation:
		return contains(p.Affiliations, value)
	case model.SubCategory:
		return contains(p.Categories, value)
	case model.SubSource:
		return strings.EqualFold(string(p.Source), value)
	default:
		return false
	}
}

// BuildNotifications evaluates every subscription against a paper. The
// reason encodes the matched rule as "type:value" so readers can tell why
// they were notified.
func BuildNotifications(p model.PaperRecord, subs []model.Subscription) []model.Notification {
	var out []model.Notification
	now := time.Now().UTC()
	for _, sub := range subs {
		if !Matches(p, sub) {
			continue
		}
		out = append(out, model.Notification{
			ID:             uuid.NewString(),
			PaperID:        p.ID,
			SubscriptionID: sub.ID,
			Reason:         string(sub.Type) + ":" + sub.Value,
			CreatedAt:      now,
		})
	}
	return out
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
