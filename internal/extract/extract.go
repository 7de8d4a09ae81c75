// Package extract pulls best-effort image URLs and plain text out of the
// HTML fragments that feeds embed in item content and descriptions.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockSelectors are elements whose boundaries separate words in the
// rendered text.
const blockSelectors = "p, div, li, blockquote, h1, h2, h3, h4, h5, h6, tr, figcaption"

// Image returns the first image URL found in content: an <img src> first,
// then an <enclosure url>. An empty string means nothing was found; malformed
// markup is not an error.
func Image(content string) string {
	doc := parse(content)
	if doc == nil {
		return ""
	}

	if src, ok := doc.Find("img[src]").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	if u, ok := doc.Find("enclosure[url]").First().Attr("url"); ok && strings.TrimSpace(u) != "" {
		return strings.TrimSpace(u)
	}
	return ""
}

// Text renders content as plain text with whitespace collapsed.
func Text(content string) string {
	doc := parse(content)
	if doc == nil {
		return ""
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Truncate cuts text to at most n runes, preferring a sentence boundary in
// the last third, and marks the cut with an ellipsis.
func Truncate(text string, n int) string {
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}

	cut := string(runes[:n])
	if idx := strings.LastIndex(cut, ". "); idx > len(cut)*2/3 {
		return cut[:idx+1]
	}
	return strings.TrimSpace(cut) + "..."
}

func parse(content string) *goquery.Document {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}
	return doc
}
