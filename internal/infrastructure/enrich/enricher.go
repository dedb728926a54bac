// Package enrich fetches article detail pages and fills in the metadata the
// listing pages do not carry: publication date, body content and image.
package enrich

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"sipwatcher/internal/domain"
	"sipwatcher/internal/ports"
	"sipwatcher/internal/serbdate"
)

const (
	minContentLength = 50

	placeholderNoContent = "(Садржај није доступан)"
	placeholderImageOnly = "(Погледајте слику испод)"
)

// Selector chains, site-specific first, generic fallbacks after. The site's
// templates are inconsistent, so every step degrades instead of failing.
var (
	titleSelectors = []string{
		".section-heading h3, .section-heading h2, .section-heading h1",
		"h1",
		"h2",
	}
	dateMetaSelector = "meta[property='article:published_time'], meta[name='date'], meta[itemprop='datePublished']"
	dateClassSelectors = []string{
		".col-lg-4.text-right",
		"[class*='date']",
		"[class*='Date']",
		"[class*='datum']",
		"[class*='published']",
	}
	contentSelectors = []string{
		".col-md-9 .col-lg-12",
		".col-lg-12",
		".col-md-9",
		"article",
		"[class*='content']",
		"[class*='article']",
		"[class*='post']",
		"main",
		".entry-content",
	}
	junkSelector = "nav, footer, aside, [class*='sidebar'], [class*='nav'], .comments, script, style, .heading-about, .section-heading"
)

// Enricher populates articles from their detail pages.
type Enricher struct {
	fetcher  ports.Fetcher
	base     *url.URL
	sanitize *bluemonday.Policy
	logger   *slog.Logger
}

var _ ports.Enricher = (*Enricher)(nil)

// New wires the shared fetcher and the site base URL used to absolutize links.
func New(fetcher ports.Fetcher, baseURL string, logger *slog.Logger) *Enricher {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()

	return &Enricher{fetcher: fetcher, base: base, sanitize: policy, logger: logger}
}

// Enrich returns a copy of the article with title, date, content and image
// filled from the detail page. Any fetch or parse failure degrades to the
// input article: a partial record is always eligible for delivery.
func (e *Enricher) Enrich(ctx context.Context, article domain.Article) domain.Article {
	raw, err := e.fetcher.Fetch(ctx, article.URL)
	if err != nil {
		e.warn("enrich fetch failed", "url", article.URL, "error", err)
		return article
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		e.warn("enrich parse failed", "url", article.URL, "error", err)
		return article
	}

	out := article

	if title := extractTitle(doc); title != "" {
		out.Title = title
	}
	if ts, ok := e.extractDate(doc); ok {
		out.PublishedAt = ts
	}
	out.ImageURL = e.extractImage(doc)
	out.Content = e.extractContent(doc)

	// Image-only announcements exist; never drop them for lacking text.
	if len([]rune(out.Content)) < minContentLength {
		if out.ImageURL != "" {
			out.Content = placeholderImageOnly
		} else if out.Content == "" {
			out.Content = placeholderNoContent
		}
	}

	return out
}

func extractTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		if heading := doc.Find(sel).First(); heading.Length() > 0 {
			if text := collapseSpaces(heading.Text()); text != "" {
				return text
			}
		}
	}
	if meta := doc.Find("meta[property='og:title'], meta[name='title']").First(); meta.Length() > 0 {
		if content, ok := meta.Attr("content"); ok {
			return collapseSpaces(content)
		}
	}
	return ""
}

// extractDate tries structured metadata first, then machine-readable time
// elements, then locale date strings in date-ish containers, then a numeric
// date near the top of the body.
func (e *Enricher) extractDate(doc *goquery.Document) (time.Time, bool) {
	var found time.Time
	ok := false

	doc.Find(dateMetaSelector).EachWithBreak(func(_ int, meta *goquery.Selection) bool {
		if content, has := meta.Attr("content"); has {
			if ts, parsed := serbdate.Parse(content); parsed {
				found, ok = ts, true
				return false
			}
		}
		return true
	})
	if ok {
		return found, true
	}

	if timeTag := doc.Find("time").First(); timeTag.Length() > 0 {
		if dt, has := timeTag.Attr("datetime"); has {
			if ts, parsed := serbdate.Parse(dt); parsed {
				return ts, true
			}
		}
		if ts, parsed := serbdate.Parse(timeTag.Text()); parsed {
			return ts, true
		}
	}

	for _, sel := range dateClassSelectors {
		candidate := doc.Find(sel).First()
		if candidate.Length() == 0 {
			continue
		}
		if ts, parsed := serbdate.Parse(candidate.Text()); parsed {
			return ts, true
		}
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		text := body.Text()
		if runes := []rune(text); len(runes) > 500 {
			text = string(runes[:500])
		}
		if ts, parsed := serbdate.Parse(text); parsed {
			return ts, true
		}
	}

	return time.Time{}, false
}

func (e *Enricher) extractImage(doc *goquery.Document) string {
	for _, sel := range contentSelectors[:3] {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		if img := container.Find("img").First(); img.Length() > 0 {
			if src, ok := img.Attr("src"); ok {
				return absolutize(e.base, src)
			}
		}
	}
	if img := doc.Find("article img, main img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok {
			return absolutize(e.base, src)
		}
	}
	return ""
}

func (e *Enricher) extractContent(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		if content := e.renderContainer(container); len([]rune(content)) >= minContentLength {
			return content
		}
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		return e.renderContainer(body)
	}
	return ""
}

// renderContainer strips navigation junk, sanitizes the remaining markup and
// renders it as markdown.
func (e *Enricher) renderContainer(container *goquery.Selection) string {
	clone := container.Clone()
	clone.Find(junkSelector).Remove()

	raw, err := goquery.OuterHtml(clone)
	if err != nil {
		return ""
	}

	cleaned, err := goquery.NewDocumentFromReader(strings.NewReader(e.sanitize.Sanitize(raw)))
	if err != nil {
		return ""
	}

	return renderMarkdown(cleaned.Find("body").First(), e.base)
}

func (e *Enricher) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
