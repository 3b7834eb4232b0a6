// Package canonical computes stable identities for records: normalized URLs,
// normalized titles, and within-run duplicate filtering.
package canonical

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters dropped during normalization.
var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"ref":    {},
}

// Normalize canonicalizes a URL for deduplication: lowercase scheme and
// host, trailing slash stripped (root path stays "/"), fragment dropped,
// tracking parameters removed, remaining query re-encoded in sorted order.
// Returns "" for empty, unparseable, or host-less input. Idempotent.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	q := u.Query()
	for key := range q {
		if _, drop := trackingParams[key]; drop || strings.HasPrefix(key, "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// NormalizeTitle reduces a title to its case-insensitive alphanumeric form:
// punctuation removed, whitespace collapsed, lowercased. Titles differing
// only in punctuation or spacing normalize to the same key.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	space := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}
