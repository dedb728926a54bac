package parser

import (
	"context"
	"errors"
	"testing"

	"sipwatcher/internal/config"
	"sipwatcher/internal/domain"
	"sipwatcher/internal/scanner"
)

type stubScanner struct {
	name    string
	results map[string][]domain.Article
	failing map[string]bool
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(_ context.Context, req scanner.Request) ([]domain.Article, error) {
	if s.failing[req.URL] {
		return nil, errors.New("unreachable")
	}
	return s.results[req.URL], nil
}

func testSite(sources ...config.SourceConfig) config.SiteConfig {
	return config.SiteConfig{BaseURL: "https://sip.example.org", Sources: sources}
}

func TestStrategySourceMergesInSourceOrder(t *testing.T) {
	t.Parallel()

	stub := &stubScanner{
		name: "list",
		results: map[string][]domain.Article{
			"https://sip.example.org/nastava": {
				{URL: "https://sip.example.org/article/1", Title: "Прва"},
				{URL: "https://sip.example.org/article/2", Title: "Друга"},
			},
			"https://sip.example.org/ispiti": {
				{URL: "https://sip.example.org/article/2", Title: "Дупликат"},
				{URL: "https://sip.example.org/article/3", Title: "Трећа"},
			},
		},
	}

	reg := scanner.NewRegistry()
	reg.Register(stub)

	source := NewStrategySource(reg, testSite(
		config.SourceConfig{URL: "https://sip.example.org/nastava", Label: "Настава", Scanner: "list"},
		config.SourceConfig{URL: "https://sip.example.org/ispiti", Label: "Испити", Scanner: "list"},
	), 2, nil)

	articles, err := source.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover error: %v", err)
	}

	wantURLs := []string{
		"https://sip.example.org/article/1",
		"https://sip.example.org/article/2",
		"https://sip.example.org/article/3",
	}
	if len(articles) != len(wantURLs) {
		t.Fatalf("expected %d articles, got %d", len(wantURLs), len(articles))
	}
	for i, want := range wantURLs {
		if articles[i].URL != want {
			t.Fatalf("position %d: got %s, want %s", i, articles[i].URL, want)
		}
	}
	// Duplicate resolved in favour of the earlier source.
	if articles[1].Title != "Друга" {
		t.Fatalf("duplicate url kept wrong article: %s", articles[1].Title)
	}
}

func TestStrategySourceIsolatesSourceFailure(t *testing.T) {
	t.Parallel()

	stub := &stubScanner{
		name: "list",
		results: map[string][]domain.Article{
			"https://sip.example.org/nastava": {
				{URL: "https://sip.example.org/article/1", Title: "Прва"},
			},
		},
		failing: map[string]bool{"https://sip.example.org/ispiti": true},
	}

	reg := scanner.NewRegistry()
	reg.Register(stub)

	source := NewStrategySource(reg, testSite(
		config.SourceConfig{URL: "https://sip.example.org/nastava", Label: "Настава", Scanner: "list"},
		config.SourceConfig{URL: "https://sip.example.org/ispiti", Label: "Испити", Scanner: "list"},
	), 1, nil)

	articles, err := source.Discover(context.Background())
	if err != nil {
		t.Fatalf("single source failure must not abort discovery: %v", err)
	}
	if len(articles) != 1 || articles[0].URL != "https://sip.example.org/article/1" {
		t.Fatalf("unexpected articles: %+v", articles)
	}
}

func TestStrategySourceAllSourcesFailed(t *testing.T) {
	t.Parallel()

	stub := &stubScanner{
		name:    "list",
		failing: map[string]bool{"https://sip.example.org/nastava": true},
	}

	reg := scanner.NewRegistry()
	reg.Register(stub)

	source := NewStrategySource(reg, testSite(
		config.SourceConfig{URL: "https://sip.example.org/nastava", Label: "Настава", Scanner: "list"},
	), 1, nil)

	if _, err := source.Discover(context.Background()); err == nil {
		t.Fatal("expected error when every source fails")
	}
}

func TestStrategySourceUnknownScanner(t *testing.T) {
	t.Parallel()

	reg := scanner.NewRegistry()
	source := NewStrategySource(reg, testSite(
		config.SourceConfig{URL: "https://sip.example.org/nastava", Label: "Настава", Scanner: "nope"},
	), 1, nil)

	if _, err := source.Discover(context.Background()); err == nil {
		t.Fatal("unresolvable strategy on the only source must fail discovery")
	}
}
