package parser

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"sipwatcher/internal/config"
	"sipwatcher/internal/domain"
	"sipwatcher/internal/ports"
	"sipwatcher/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
// Sources are scanned with bounded parallelism; each failure is isolated to
// its source, and only a total failure of every source aborts discovery.
type StrategySource struct {
	registry    *scanner.Registry
	baseURL     string
	sources     []config.SourceConfig
	concurrency int
	logger      *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, site config.SiteConfig, concurrency int, log *slog.Logger) *StrategySource {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &StrategySource{
		registry:    reg,
		baseURL:     site.BaseURL,
		sources:     site.Sources,
		concurrency: concurrency,
		logger:      log,
	}
}

// Discover scans every configured source and merges the results in source
// order, collapsing duplicate URLs across sources (first source wins).
func (s *StrategySource) Discover(ctx context.Context) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	s.debug("discover", "sources", len(s.sources))

	// Each goroutine writes only its own slot; results are merged after the
	// join so discovery order stays deterministic.
	perSource := make([][]domain.Article, len(s.sources))
	failures := make([]error, len(s.sources))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for i, src := range s.sources {
		i, src := i, src
		group.Go(func() error {
			strategy, err := s.registry.Resolve(src.Scanner)
			if err != nil {
				failures[i] = fmt.Errorf("source %s: %w", src.Label, err)
				return nil
			}

			req := scanner.Request{URL: src.URL, Label: src.Label, BaseURL: s.baseURL}
			results, err := strategy.Scan(groupCtx, req)
			if err != nil {
				failures[i] = fmt.Errorf("scan source %s: %w", src.Label, err)
				return nil
			}

			perSource[i] = results
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for i, err := range failures {
		if err != nil {
			failed++
			s.warn("source failed", "source", s.sources[i].Label, "error", err)
		}
	}
	if failed == len(s.sources) {
		return nil, fmt.Errorf("all %d sources failed", failed)
	}

	var merged []domain.Article
	seen := map[string]struct{}{}
	for i, results := range perSource {
		for _, article := range results {
			if _, dup := seen[article.URL]; dup {
				continue
			}
			seen[article.URL] = struct{}{}
			merged = append(merged, article)
		}
		if failures[i] == nil {
			s.debug("source produced articles", "source", s.sources[i].Label, "count", len(results))
		}
	}

	s.debug("discover done", "total_articles", len(merged), "failed_sources", failed)
	return merged, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
