package domain

import (
	"sort"
	"strings"
	"time"
)

// Article is a core entity describing one announcement discovered on the site.
// URL is the sole identity: two articles with the same URL are the same entity
// regardless of other field differences.
type Article struct {
	URL         string
	Title       string
	Source      string
	PublishedAt time.Time // zero value means the date could not be determined
	Content     string
	ImageURL    string
}

// HasDate reports whether a publication timestamp was extracted.
func (a Article) HasDate() bool {
	return !a.PublishedAt.IsZero()
}

// Fingerprint derives the secondary identity used for content-level
// deduplication: lowercased title plus the first 500 characters of the
// lowercased content. Catches the same announcement cross-posted under
// two distinct URLs.
func (a Article) Fingerprint() string {
	content := strings.ToLower(strings.TrimSpace(a.Content))
	if runes := []rune(content); len(runes) > 500 {
		content = string(runes[:500])
	}
	return strings.ToLower(strings.TrimSpace(a.Title)) + "\x00" + content
}

// SeenState is the persisted record of every article URL any prior run
// observed, plus the time of the last successful run.
type SeenState struct {
	SeenURLs    map[string]struct{}
	LastChecked time.Time
}

// NewSeenState builds an empty state, equivalent to a first-ever run.
func NewSeenState() *SeenState {
	return &SeenState{SeenURLs: map[string]struct{}{}}
}

// IsEmpty reports whether no URL has ever been observed.
func (s *SeenState) IsEmpty() bool {
	return len(s.SeenURLs) == 0
}

// Has reports whether the URL was observed before.
func (s *SeenState) Has(url string) bool {
	_, ok := s.SeenURLs[url]
	return ok
}

// Mark records the URL as observed. Idempotent.
func (s *SeenState) Mark(url string) {
	if s.SeenURLs == nil {
		s.SeenURLs = map[string]struct{}{}
	}
	s.SeenURLs[url] = struct{}{}
}

// SortedURLs returns the observed URLs in lexical order for stable persistence.
func (s *SeenState) SortedURLs() []string {
	urls := make([]string, 0, len(s.SeenURLs))
	for u := range s.SeenURLs {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Notification is the outbound payload derived from an article.
type Notification struct {
	Title       string
	Link        string
	Body        string
	Category    string
	PublishedAt time.Time // zero value renders as an "unknown date" placeholder
	ImageURL    string
}
