package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// VisibleText returns the rendered text of a document with script, style and
// similar non-visible subtrees removed and whitespace collapsed. Keyword
// scoring over page text uses this rather than raw markup so that inline
// scripts never count as copy.
func VisibleText(htmlStr string) string {
	node, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil || node == nil {
		return ""
	}
	var b strings.Builder
	collectVisible(&b, node)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectVisible(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "iframe", "template":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectVisible(b, c)
	}
}
