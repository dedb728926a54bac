package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"sipwatcher/internal/infrastructure/fetch"
	"sipwatcher/internal/scanner"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	return doc
}

func TestExtractArticlesLinkText(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
	<div class="card">
	  <a href="/article/raspored-ispita">Распоред испита у јануарском року</a>
	</div>`)

	articles := ExtractArticles(doc, "https://sip.example.org", "Настава")
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].URL != "https://sip.example.org/article/raspored-ispita" {
		t.Fatalf("unexpected url: %s", articles[0].URL)
	}
	if articles[0].Title != "Распоред испита у јануарском року" {
		t.Fatalf("unexpected title: %s", articles[0].Title)
	}
	if articles[0].Source != "Настава" {
		t.Fatalf("unexpected source: %s", articles[0].Source)
	}
	if articles[0].HasDate() || articles[0].Content != "" {
		t.Fatal("listing extraction must not populate date or content")
	}
}

func TestExtractArticlesPlaceholderFallsBackToCardHeading(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
	<article class="post">
	  <h3>Колоквијум из математике</h3>
	  <p>Кратак опис.</p>
	  <a href="/article/kolokvijum-matematika">Опширније</a>
	</article>`)

	articles := ExtractArticles(doc, "https://sip.example.org", "Колоквијуми")
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].Title != "Колоквијум из математике" {
		t.Fatalf("placeholder link text must yield card heading, got %q", articles[0].Title)
	}
}

func TestExtractArticlesTitledAncestor(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
	<div class="news-naslov">
	  Упис у наредну годину
	  <a href="/article/upis">Више</a>
	</div>`)

	articles := ExtractArticles(doc, "https://sip.example.org", "Упис")
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].Title != "Упис у наредну годину Више" {
		t.Fatalf("unexpected title: %q", articles[0].Title)
	}
}

func TestExtractArticlesSlugFallback(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div><a href="/article/rezultati-kolokvijuma-2025"><img src="x.png"></a></div>`)

	articles := ExtractArticles(doc, "https://sip.example.org", "Резултати")
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if articles[0].Title != "rezultati kolokvijuma 2025" {
		t.Fatalf("expected de-slugified title, got %q", articles[0].Title)
	}
}

func TestExtractArticlesNearestHeadingWins(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
	<section>
	  <h2>Далек наслов</h2>
	  <div class="card">
	    <h4>Близак наслов</h4>
	    <a href="/article/test">Опширније</a>
	  </div>
	</section>`)

	articles := ExtractArticles(doc, "https://sip.example.org", "Остало")
	if articles[0].Title != "Близак наслов" {
		t.Fatalf("nearest heading must win, got %q", articles[0].Title)
	}
}

func TestExtractArticlesCollapsesDuplicateURLs(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
	<div class="card">
	  <h3>Наслов</h3>
	  <a href="/article/jedan">Наслов</a>
	  <a href="/article/jedan">Опширније</a>
	  <a href="/article/jedan#komentari">Опширније</a>
	</div>`)

	articles := ExtractArticles(doc, "https://sip.example.org", "Насловна")
	if len(articles) != 1 {
		t.Fatalf("duplicate links must collapse, got %d articles", len(articles))
	}
	if articles[0].Title != "Наслов" {
		t.Fatalf("first title must win, got %q", articles[0].Title)
	}
}

func TestExtractArticlesIgnoresNonArticleLinks(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
	<nav>
	  <a href="/category/nastava">Настава</a>
	  <a href="/about">О нама</a>
	  <a href="/search?q=/article/">претрага</a>
	</nav>`)

	articles := ExtractArticles(doc, "https://sip.example.org", "Насловна")
	if len(articles) != 0 {
		t.Fatalf("expected no articles, got %d", len(articles))
	}
}

func TestListScannerScan(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
		<div class="card"><a href="/article/prvi">Први чланак</a></div>
		<div class="card"><a href="/article/drugi">Други чланак</a></div>`)
	}))
	defer server.Close()

	fetcher := fetch.New(server.Client(), fetch.Options{}, nil)
	sc := NewListScanner(fetcher, nil)

	articles, err := sc.Scan(context.Background(), scanner.Request{
		URL:     server.URL,
		Label:   "Насловна",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}
	if articles[0].Title != "Први чланак" || articles[1].Title != "Други чланак" {
		t.Fatalf("unexpected titles: %q, %q", articles[0].Title, articles[1].Title)
	}
}

func TestListScannerScanFetchFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := fetch.New(server.Client(), fetch.Options{MaxRetries: 1}, nil)
	sc := NewListScanner(fetcher, nil)

	_, err := sc.Scan(context.Background(), scanner.Request{URL: server.URL, Label: "x", BaseURL: server.URL})
	if err == nil {
		t.Fatal("expected error when listing fetch fails")
	}
}
