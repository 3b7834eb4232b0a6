// Package taxonomy holds the keyword taxonomy and the lexical tag classifier.
// The taxonomy is an immutable configuration value passed into classification
// calls, so tests can inject their own.
package taxonomy

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var embedded []byte

// Tag is one taxonomy entry: a tag name plus the keywords that trigger it.
type Tag struct {
	Name string `yaml:"name"`
	// Keywords match papers and posts alike.
	Keywords []string `yaml:"keywords"`
	// PostKeywords extend Keywords for community/company text only
	// (product names that never appear in paper abstracts).
	PostKeywords []string `yaml:"post_keywords"`
	// Conjunctive tags are dropped unless the text also contains a
	// co-occurrence keyword.
	Conjunctive bool `yaml:"conjunctive"`
	// SearchStandalone skips the co-occurrence prefix when building
	// upstream search queries; the combined query is too narrow for
	// this tag, but classification still enforces the constraint.
	SearchStandalone bool `yaml:"search_standalone"`
}

// VenueTag matches only against the structural venue/categories field.
type VenueTag struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Direction groups companies under one tracking tag.
type Direction struct {
	Name      string   `yaml:"name"`
	Companies []string `yaml:"companies"`
}

// Taxonomy is the full classification configuration.
type Taxonomy struct {
	Cooccurrence   []string          `yaml:"cooccurrence_keywords"`
	PaperTags      []Tag             `yaml:"paper_tags"`
	VenueTags      []VenueTag        `yaml:"venue_tags"`
	Directions     []Direction       `yaml:"company_directions"`
	CompanyQueries map[string]string `yaml:"company_queries"`
}

// Parse decodes a YAML taxonomy document.
func Parse(data []byte) (Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Taxonomy{}, fmt.Errorf("parse taxonomy: %w", err)
	}
	if len(t.PaperTags) == 0 {
		return Taxonomy{}, fmt.Errorf("taxonomy has no paper tags")
	}
	return t, nil
}

var (
	defaultOnce sync.Once
	defaultTax  Taxonomy
	defaultErr  error
)

// Default returns the taxonomy embedded in the binary.
func Default() (Taxonomy, error) {
	defaultOnce.Do(func() {
		defaultTax, defaultErr = Parse(embedded)
	})
	return defaultTax, defaultErr
}

// Tag looks up one taxonomy entry by name.
func (t Taxonomy) Tag(name string) (Tag, bool) {
	for _, tag := range t.PaperTags {
		if tag.Name == name {
			return tag, true
		}
	}
	return Tag{}, false
}

// BusinessTags returns the set of tags that count toward the admission
// filter: the domain taxonomy tags plus the venue tags.
func (t Taxonomy) BusinessTags() map[string]struct{} {
	set := make(map[string]struct{}, len(t.PaperTags)+len(t.VenueTags))
	for _, tag := range t.PaperTags {
		set[tag.Name] = struct{}{}
	}
	for _, v := range t.VenueTags {
		set[v.Name] = struct{}{}
	}
	return set
}

// HasBusinessTag reports whether any tag in the list is a business tag.
func (t Taxonomy) HasBusinessTag(tags []string) bool {
	set := t.BusinessTags()
	for _, tag := range tags {
		if _, ok := set[tag]; ok {
			return true
		}
	}
	return false
}

// Companies returns the deduplicated company universe across all directions,
// in direction order.
func (t Taxonomy) Companies() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range t.Directions {
		for _, c := range d.Companies {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// CompanyQuery returns the news search query for a company, falling back to
// the company name itself.
func (t Taxonomy) CompanyQuery(company string) string {
	if q, ok := t.CompanyQueries[company]; ok && q != "" {
		return q
	}
	return company
}
