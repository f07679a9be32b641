package feed

import (
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// browserUserAgent is sent on scrape requests; both listing sites serve
// different (or no) markup to clients without one.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func parseHTML(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

func selectAll(n *html.Node, selector string) []*html.Node {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil
	}
	return cascadia.QueryAll(n, sel)
}

func selectFirst(n *html.Node, selector string) *html.Node {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil
	}
	return cascadia.Query(n, sel)
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapseWhitespace flattens runs of whitespace (arXiv abstracts arrive
// hard-wrapped) into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textContent collapses a node's text, trimming each fragment so that
// multi-line markup flattens to single-spaced prose.
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			trimmed := strings.TrimSpace(node.Data)
			if trimmed != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(trimmed)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
