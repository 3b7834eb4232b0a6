package taxonomy

import (
	"strings"

	"researchradar/internal/model"
)

// matchTags returns the taxonomy tags whose keywords occur in text,
// first-match-wins per tag, preserving taxonomy iteration order.
// post widens matching to the per-tag PostKeywords.
func (t Taxonomy) matchTags(text string, post bool) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var tags []string
	for _, tag := range t.PaperTags {
		kws := tag.Keywords
		if post {
			kws = append(append([]string{}, tag.Keywords...), tag.PostKeywords...)
		}
		for _, kw := range kws {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				tags = append(tags, tag.Name)
				break
			}
		}
	}
	return tags
}

// hasCooccurrence reports whether the text contains any co-occurrence keyword.
func (t Taxonomy) hasCooccurrence(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range t.Cooccurrence {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// dropConjunctive removes conjunctive tags when the text lacks the required
// co-occurrence keyword.
func (t Taxonomy) dropConjunctive(tags []string, text string) []string {
	if t.hasCooccurrence(text) {
		return tags
	}
	out := tags[:0]
	for _, name := range tags {
		if tag, ok := t.Tag(name); ok && tag.Conjunctive {
			continue
		}
		out = append(out, name)
	}
	return out
}

// venueTags matches venue tags against the categories/venue field only.
// Free text is deliberately excluded: a paper discussing a conference is not
// a paper published at it.
func (t Taxonomy) venueTags(categories, venue string) []string {
	field := strings.ToLower(categories + " " + venue)
	var tags []string
	for _, vt := range t.VenueTags {
		for _, kw := range vt.Keywords {
			if kw != "" && strings.Contains(field, strings.ToLower(kw)) {
				tags = append(tags, vt.Name)
				break
			}
		}
	}
	return tags
}

// TagPaper classifies a paper into an ordered unique tag list: taxonomy tags
// from the combined text, venue tags from the structural fields, and the
// source tag last.
func (t Taxonomy) TagPaper(title, abstract, categories, keywords string, source model.PaperSource, venue string) []string {
	combined := title + " " + abstract + " " + categories + " " + keywords
	tags := t.matchTags(combined, false)
	tags = t.dropConjunctive(tags, combined)
	tags = append(tags, t.venueTags(categories, venue)...)
	if source != "" {
		tags = append(tags, strings.ToUpper(string(source)))
	}
	return dedupe(tags)
}

// Display names for post source tags.
var postSourceTags = map[model.PostSource]string{
	model.SourceHackerNews:  "HN",
	model.SourceReddit:      "Reddit",
	model.SourceGitHub:      "GitHub",
	model.SourceYouTube:     "YouTube",
	model.SourceHuggingFace: "Hugging Face",
}

// TagPost classifies a community post.
func (t Taxonomy) TagPost(title, summary string, source model.PostSource, channel string) []string {
	combined := title + " " + summary
	tags := t.matchTags(combined, true)
	tags = t.dropConjunctive(tags, combined)
	if name, ok := postSourceTags[source]; ok {
		tags = append(tags, name)
	}
	if channel != "" {
		tags = append(tags, channel)
	}
	return dedupe(tags)
}

// TagCompanyPost classifies a company announcement. The company name is the
// channel; its tracking direction contributes a structural tag.
func (t Taxonomy) TagCompanyPost(title, summary, company string) []string {
	combined := title + " " + summary
	tags := t.matchTags(combined, true)
	tags = t.dropConjunctive(tags, combined)
	for _, d := range t.Directions {
		if containsString(d.Companies, company) {
			tags = append(tags, d.Name)
			break
		}
	}
	if company != "" {
		tags = append(tags, company)
	}
	return dedupe(tags)
}

func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
