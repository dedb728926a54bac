package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TitleStrategy derives a title for an article anchor, returning "" when the
// rule does not apply. Strategies are tried in order; the first non-empty
// result wins. The chain exists because the site's markup is inconsistent
// across page templates and no single selector covers every card.
type TitleStrategy func(anchor *goquery.Selection, href string) string

// placeholderPhrases are generic link texts that never work as titles.
var placeholderPhrases = map[string]struct{}{
	"опширније":     {},
	"opširnije":     {},
	"више":          {},
	"više":          {},
	"детаљније":     {},
	"detaljnije":    {},
	"прочитај више": {},
	"pročitaj više": {},
	"read more":     {},
}

// titleClassTerms are substrings that mark a title-bearing container; the
// site mixes Serbian and English class names.
var titleClassTerms = []string{"naslov", "title", "heading"}

var defaultTitleChain = []TitleStrategy{
	linkTextTitle,
	cardHeadingTitle,
	titledAncestorTitle,
	ancestorHeadingTitle,
	slugTitle,
}

// deriveTitle runs the fallback chain; the slug rule guarantees a non-empty
// result for any article URL.
func deriveTitle(anchor *goquery.Selection, href string) string {
	for _, strategy := range defaultTitleChain {
		if title := strategy(anchor, href); title != "" {
			return title
		}
	}
	return href
}

// linkTextTitle uses the anchor's own visible text, rejecting placeholders.
func linkTextTitle(anchor *goquery.Selection, _ string) string {
	text := normalizeTitle(anchor.Text())
	if text == "" {
		return ""
	}
	if _, generic := placeholderPhrases[strings.ToLower(text)]; generic {
		return ""
	}
	return text
}

// cardHeadingTitle finds the nearest card-like ancestor and takes its first
// heading. Nearest ancestor wins; within one ancestor, document order.
func cardHeadingTitle(anchor *goquery.Selection, _ string) string {
	for parent := anchor.Parent(); parent.Length() > 0; parent = parent.Parent() {
		if !isCardNode(parent) {
			continue
		}
		if title := firstHeadingText(parent); title != "" {
			return title
		}
		return ""
	}
	return ""
}

// titledAncestorTitle takes the text of the nearest ancestor whose class
// attribute carries a title/heading term.
func titledAncestorTitle(anchor *goquery.Selection, _ string) string {
	for parent := anchor.Parent(); parent.Length() > 0; parent = parent.Parent() {
		class, _ := parent.Attr("class")
		class = strings.ToLower(class)
		for _, term := range titleClassTerms {
			if strings.Contains(class, term) {
				return normalizeTitle(parent.Text())
			}
		}
	}
	return ""
}

// ancestorHeadingTitle walks upward and returns the first heading found in
// any ancestor, closest ancestor first.
func ancestorHeadingTitle(anchor *goquery.Selection, _ string) string {
	for parent := anchor.Parent(); parent.Length() > 0; parent = parent.Parent() {
		if title := firstHeadingText(parent); title != "" {
			return title
		}
	}
	return ""
}

// slugTitle de-slugifies the trailing path segment of the article URL.
func slugTitle(_ *goquery.Selection, href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	slug := segments[len(segments)-1]
	slug = strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return normalizeTitle(slug)
}

func isCardNode(sel *goquery.Selection) bool {
	if goquery.NodeName(sel) == "article" || goquery.NodeName(sel) == "li" {
		return true
	}
	class, _ := sel.Attr("class")
	class = strings.ToLower(class)
	for _, term := range []string{"card", "post", "item", "entry"} {
		if strings.Contains(class, term) {
			return true
		}
	}
	return false
}

func firstHeadingText(sel *goquery.Selection) string {
	heading := sel.Find("h1, h2, h3, h4, h5, h6").First()
	if heading.Length() == 0 {
		return ""
	}
	text := normalizeTitle(heading.Text())
	if _, generic := placeholderPhrases[strings.ToLower(text)]; generic {
		return ""
	}
	return text
}

func normalizeTitle(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
