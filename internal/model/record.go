// Package model defines the record types shared across the ingestion pipeline.
package model

import (
	"strings"
	"time"
)

// PaperSource identifies which academic index produced a paper.
type PaperSource string

// Paper sources. Identity strings are prefixed with these values.
const (
	SourceArxiv           PaperSource = "arxiv"
	SourceOpenReview      PaperSource = "openreview"
	SourceSemanticScholar PaperSource = "s2"
)

// PostSource identifies which community or company feed produced a post.
type PostSource string

// Post sources.
const (
	SourceHackerNews  PostSource = "hn"
	SourceReddit      PostSource = "reddit"
	SourceGitHub      PostSource = "github"
	SourceHuggingFace PostSource = "huggingface"
	SourceYouTube     PostSource = "youtube"
	SourceCompany     PostSource = "company"
)

// CodePostSources are the long-retention post sources (code and model hub).
var CodePostSources = []PostSource{SourceGitHub, SourceHuggingFace}

// CommunityPostSources are the short-retention post sources.
var CommunityPostSources = []PostSource{SourceHackerNews, SourceReddit, SourceYouTube, SourceCompany}

// PaperRecord is a canonical academic paper. ID is the source-qualified
// identity (e.g. "arxiv:2409.01234") and is immutable once stored.
type PaperRecord struct {
	ID            string
	Title         string
	Abstract      string
	Authors       string
	Categories    string
	PDFURL        string
	PageURL       string
	PublishedAt   *time.Time
	Source        PaperSource
	DOI           string
	URL           string
	Affiliations  string
	Keywords      string
	Venue         string
	CitationCount *int
	Tags          []string
	UpdatedAt     *time.Time
}

// PostRecord is a canonical community or company post. ID is the
// source-qualified identity (e.g. "hn:41234567").
type PostRecord struct {
	ID           string
	Source       PostSource
	Title        string
	URL          string
	Author       string
	Score        int
	CommentCount int
	Summary      string
	Channel      string
	Tags         []string
	CreatedAt    *time.Time
	FetchedAt    time.Time
}

// SubscriptionType selects which paper fields a subscription matches against.
type SubscriptionType string

// Subscription types.
const (
	SubKeyword     SubscriptionType = "keyword"
	SubAuthor      SubscriptionType = "author"
	SubAffiliation SubscriptionType = "affiliation"
	SubCategory    SubscriptionType = "category"
	SubSource      SubscriptionType = "source"
)

// Subscription is an operator-defined alert rule. The pipeline reads
// subscriptions but never writes them.
type Subscription struct {
	ID     string
	Type   SubscriptionType
	Value  string
	Active bool
}

// Notification records that a newly inserted paper matched a subscription.
// Only the read flag is ever mutated after creation.
type Notification struct {
	ID             string
	PaperID        string
	SubscriptionID string
	Reason         string
	Read           bool
	CreatedAt      time.Time
}

// KeywordScope narrows an operator crawl keyword to one pipeline.
type KeywordScope string

// Keyword scopes.
const (
	ScopePapers    KeywordScope = "papers"
	ScopeCommunity KeywordScope = "community"
	ScopeCompany   KeywordScope = "company"
	ScopeAll       KeywordScope = "all"
)

// CrawlKeyword is an operator-supplied search keyword that overrides the
// taxonomy-derived defaults for its scope.
type CrawlKeyword struct {
	ID      string
	Keyword string
	Scope   KeywordScope
	Active  bool
}

// JoinTags serializes a tag list for the text tags column.
func JoinTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ",")
}

// SplitTags parses a comma-separated tags column.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}
