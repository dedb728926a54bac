package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// skippedLinkTexts are boilerplate anchors that add nothing to the body.
var skippedLinkTexts = map[string]struct{}{
	"опширније":     {},
	"opširnije":     {},
	"više":          {},
	"detaljnije":    {},
	"pročitaj više": {},
}

// renderMarkdown converts a content container into the markdown-like
// representation used as the notification body and as the deduplication
// fingerprint basis. Headings become bold, lists become bullets, tables
// become pipe-joined rows; everything else is flattened to text.
func renderMarkdown(container *goquery.Selection, base *url.URL) string {
	var b strings.Builder
	renderBlocks(container, base, &b)
	return normalizeWhitespace(b.String())
}

func renderBlocks(sel *goquery.Selection, base *url.URL, b *strings.Builder) {
	sel.Children().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			text := strings.TrimSpace(child.Text())
			if text == "" {
				return
			}
			if _, skip := skippedLinkTexts[strings.ToLower(text)]; skip {
				return
			}
			b.WriteString("\n**" + collapseSpaces(text) + "**\n")
		case "p":
			text := strings.TrimSpace(renderInline(child, base))
			if len([]rune(text)) > 3 {
				b.WriteString(text + "\n\n")
			}
		case "ul", "ol":
			child.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
				if text := strings.TrimSpace(renderInline(li, base)); text != "" {
					b.WriteString("• " + text + "\n")
				}
			})
			b.WriteString("\n")
		case "table":
			if rows := renderTable(child); rows != "" {
				b.WriteString("\n" + rows + "\n\n")
			}
		case "br":
			b.WriteString("\n")
		default:
			// Wrapper divs and unknown blocks: descend.
			renderBlocks(child, base, b)
		}
	})
}

// renderInline flattens a paragraph-like element, preserving bold, italics
// and links in markdown form.
func renderInline(sel *goquery.Selection, base *url.URL) string {
	if len(sel.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	for c := sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		renderInlineNode(c, base, &b)
	}
	return collapseSpaces(b.String())
}

func renderInlineNode(n *html.Node, base *url.URL, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "strong", "b":
			if inner := strings.TrimSpace(inlineChildren(n, base)); inner != "" {
				b.WriteString("**" + inner + "**")
			}
		case "em", "i":
			if inner := strings.TrimSpace(inlineChildren(n, base)); inner != "" {
				b.WriteString("*" + inner + "*")
			}
		case "a":
			renderLink(n, base, b)
		case "br":
			b.WriteString("\n")
		case "script", "style":
		default:
			b.WriteString(inlineChildren(n, base))
		}
	}
}

func inlineChildren(n *html.Node, base *url.URL) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderInlineNode(c, base, &b)
	}
	return b.String()
}

func renderLink(n *html.Node, base *url.URL, b *strings.Builder) {
	text := strings.TrimSpace(inlineChildren(n, base))
	if _, skip := skippedLinkTexts[strings.ToLower(text)]; skip {
		return
	}

	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = attr.Val
			break
		}
	}

	// Self-links back to article pages are navigation noise.
	if strings.Contains(href, "/article/") && text == "" {
		return
	}

	absolute := absolutize(base, href)
	switch {
	case text != "" && absolute != "":
		b.WriteString("[" + text + "](" + absolute + ")")
	case text != "":
		b.WriteString(text)
	case absolute != "":
		b.WriteString(absolute)
	}
}

func renderTable(table *goquery.Selection) string {
	var lines []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, collapseSpaces(strings.TrimSpace(cell.Text())))
		})
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " | "))
		}
	})
	return strings.Join(lines, "\n")
}

func absolutize(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return ""
	}
	return ref.String()
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(spaceRuns.ReplaceAllString(strings.ReplaceAll(s, " ", " "), " "))
}

// normalizeWhitespace trims each line and caps blank runs at one empty line,
// preserving paragraph breaks.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	joined := strings.Join(lines, "\n")
	joined = newlineRuns.ReplaceAllString(joined, "\n\n")
	return strings.TrimSpace(joined)
}
