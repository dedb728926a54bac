package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/mmcdole/gofeed"

	"sipwatcher/internal/domain"
	"sipwatcher/internal/ports"
	"sipwatcher/internal/scanner"
)

// FeedScanner discovers articles through an RSS/Atom feed, for sources that
// expose one alongside (or instead of) an HTML listing.
type FeedScanner struct {
	fetcher ports.Fetcher
	parser  *gofeed.Parser
	logger  *slog.Logger
}

var _ scanner.Scanner = (*FeedScanner)(nil)

// NewFeedScanner wires the shared fetcher.
func NewFeedScanner(fetcher ports.Fetcher, logger *slog.Logger) *FeedScanner {
	return &FeedScanner{fetcher: fetcher, parser: gofeed.NewParser(), logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *FeedScanner) Name() string {
	return "rss"
}

// Scan fetches and parses the feed. Items without a link are skipped; feed
// publication times are carried over so the enricher only has to fill gaps.
func (s *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	raw, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", req.URL, err)
	}

	feed, err := s.parser.ParseString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.URL, err)
	}

	base, err := url.Parse(req.BaseURL)
	if err != nil {
		base = nil
	}

	var articles []domain.Article
	seen := map[string]struct{}{}

	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}

		link := item.Link
		if base != nil {
			if ref, err := url.Parse(link); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		article := domain.Article{
			URL:    link,
			Title:  item.Title,
			Source: req.Label,
		}
		if article.Title == "" {
			article.Title = slugTitle(nil, link)
		}
		if article.Title == "" {
			article.Title = link
		}
		if item.PublishedParsed != nil {
			article.PublishedAt = item.PublishedParsed.UTC()
		}

		articles = append(articles, article)
	}

	return articles, nil
}
