package taxonomy

import "strings"

// minKeywordLen filters out keywords too short to search with.
const minKeywordLen = 3

// SearchKeywords builds the default crawl keyword list by round-robin over
// the taxonomy: each round takes the next keyword from every non-exhausted
// tag, so every research direction contributes before any single tag
// dominates. Stops at max keywords or when every tag is exhausted.
func (t Taxonomy) SearchKeywords(max int) []string {
	var out []string
	seen := make(map[string]struct{})
	for idx := 0; len(out) < max; idx++ {
		added := false
		for _, tag := range t.PaperTags {
			if idx >= len(tag.Keywords) {
				continue
			}
			kw := strings.TrimSpace(tag.Keywords[idx])
			if len(kw) < minKeywordLen {
				continue
			}
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			out = append(out, kw)
			added = true
			if len(out) >= max {
				break
			}
		}
		if !added {
			break
		}
	}
	return out
}

// TagSearchKeywords returns the searchable keywords of one tag.
func (tag Tag) TagSearchKeywords() []string {
	var out []string
	for _, kw := range tag.Keywords {
		kw = strings.TrimSpace(kw)
		if len(kw) >= minKeywordLen {
			out = append(out, kw)
		}
	}
	return out
}

// RequiresCooccurrencePrefix reports whether upstream queries for this tag
// should be AND-combined with the co-occurrence keywords.
func (tag Tag) RequiresCooccurrencePrefix() bool {
	return tag.Conjunctive && !tag.SearchStandalone
}
