package domain

import (
	"strings"
	"testing"
)

func TestFingerprintCaseInsensitive(t *testing.T) {
	t.Parallel()

	a := Article{Title: "Распоред Испита", Content: "Текст Обавештења"}
	b := Article{Title: "распоред испита", Content: "  текст обавештења  "}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("fingerprint must ignore case and surrounding whitespace")
	}
}

func TestFingerprintTruncatesContent(t *testing.T) {
	t.Parallel()

	prefix := strings.Repeat("ш", 500)
	a := Article{Title: "т", Content: prefix + "први наставак"}
	b := Article{Title: "т", Content: prefix + "други наставак"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("content beyond 500 characters must not affect the fingerprint")
	}

	c := Article{Title: "т", Content: "ш" + prefix[:499]}
	d := Article{Title: "т", Content: "щ" + prefix[:499]}
	if c.Fingerprint() == d.Fingerprint() {
		t.Fatal("content within the first 500 characters must affect the fingerprint")
	}
}

func TestFingerprintSeparatesTitleFromContent(t *testing.T) {
	t.Parallel()

	a := Article{Title: "аб", Content: "в"}
	b := Article{Title: "а", Content: "бв"}

	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("title and content must not bleed into each other")
	}
}

func TestSeenStateSortedURLs(t *testing.T) {
	t.Parallel()

	s := NewSeenState()
	s.Mark("https://sip.example.org/article/b")
	s.Mark("https://sip.example.org/article/a")
	s.Mark("https://sip.example.org/article/a") // idempotent

	urls := s.SortedURLs()
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d", len(urls))
	}
	if urls[0] != "https://sip.example.org/article/a" || urls[1] != "https://sip.example.org/article/b" {
		t.Fatalf("urls not sorted: %v", urls)
	}
}
