package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// cleanedPolicy keeps common document markup and strips scripts, styles and
// event handlers.
var cleanedPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("html", "head", "title", "body", "article", "main", "section", "header", "footer", "nav", "aside", "figure", "figcaption")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	return p
}()

// fitSelectors are tried in order when extracting the main content region.
var fitSelectors = []string{"article", "main", "#content", ".content", "#main", ".post", ".entry-content"}

// selectContent applies the content-source selector to the fetched HTML.
func selectContent(html, source string) (string, error) {
	switch source {
	case SourceRaw:
		return html, nil
	case SourceCleaned:
		return cleanedPolicy.Sanitize(html), nil
	case SourceFit:
		return fitContent(html)
	default:
		return "", fmt.Errorf("unknown content source: %s", source)
	}
}

// fitContent narrows the document to its main content region before
// sanitizing, falling back to the whole body when no region matches.
func fitContent(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	for _, selector := range fitSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		inner, err := sel.Html()
		if err != nil {
			continue
		}
		if strings.TrimSpace(sel.Text()) == "" {
			continue
		}
		return cleanedPolicy.Sanitize(inner), nil
	}
	body, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(body) == "" {
		return cleanedPolicy.Sanitize(html), nil
	}
	return cleanedPolicy.Sanitize(body), nil
}
