package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sipwatcher/internal/domain"
	"sipwatcher/internal/ports"
	"sipwatcher/internal/scanner"
)

const articlePathMarker = "/article/"

// ListScanner discovers articles on HTML listing pages by scanning for
// anchors whose path matches the article pattern.
type ListScanner struct {
	fetcher ports.Fetcher
	logger  *slog.Logger
}

var _ scanner.Scanner = (*ListScanner)(nil)

// NewListScanner wires the shared fetcher.
func NewListScanner(fetcher ports.Fetcher, logger *slog.Logger) *ListScanner {
	return &ListScanner{fetcher: fetcher, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *ListScanner) Name() string {
	return "list"
}

// Scan fetches the listing page and extracts candidate articles. Multiple
// links resolving to the same URL collapse to one article, first title wins.
func (s *ListScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	raw, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", req.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", req.URL, err)
	}

	return ExtractArticles(doc, req.BaseURL, req.Label), nil
}

// ExtractArticles scans a parsed document for article links and derives
// best-effort titles through the fallback chain. Dates and content stay
// empty; the enricher fills them from the detail page.
func ExtractArticles(doc *goquery.Document, baseURL, label string) []domain.Article {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	var articles []domain.Article
	seen := map[string]struct{}{}

	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok || !strings.Contains(href, articlePathMarker) {
			return
		}

		absolute := resolveURL(base, href)
		if absolute == "" {
			return
		}
		if _, dup := seen[absolute]; dup {
			return
		}
		seen[absolute] = struct{}{}

		articles = append(articles, domain.Article{
			URL:    absolute,
			Title:  deriveTitle(anchor, absolute),
			Source: label,
		})
	})

	return articles
}

// resolveURL normalizes href to an absolute URL and verifies the article
// marker sits in the path, not in a query string or fragment.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return ""
	}
	if !strings.Contains(ref.Path, articlePathMarker) {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}
