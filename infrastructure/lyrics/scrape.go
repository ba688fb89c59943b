package lyrics

import (
	"io"
	"strings"

	"github.com/karaokeforge/pipeline/pkg/fuzzy"
	"golang.org/x/net/html"
)

// lyricContainerAttr is the data attribute marking a lyric-text container
// on the scraped page, the only site-specific knowledge this package
// hardcodes (everything else about the provider is treated as an
// external, logical-only contract).
const lyricContainerAttr = "data-lyrics-container"

// ScrapeLyrics walks an HTML document, extracts every element carrying
// the lyric-container attribute, converts <br> tags to newlines, strips
// bracketed section headers and known junk markers, dedupes repeated
// large fragments, and returns one cleaned string.
func ScrapeLyrics(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var fragments []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasAttr(n, lyricContainerAttr) {
			fragments = append(fragments, extractText(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return cleanFragments(fragments), nil
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

// extractText renders a lyric-container node to text, turning <br>
// elements into newlines so line breaks survive the DOM-to-text flattening.
func extractText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "br" {
				b.WriteString("\n")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "div" || n.Data == "p") {
			b.WriteString("\n")
		}
	}
	walk(n)
	return b.String()
}

func cleanFragments(fragments []string) string {
	var lines []string
	seen := make(map[string]struct{})
	for _, frag := range fragments {
		for _, rawLine := range strings.Split(frag, "\n") {
			cleaned := fuzzy.CleanLyricLine(rawLine)
			if cleaned == "" {
				continue
			}
			// Dedupe large repeated fragments (e.g. a chorus rendered
			// twice by the page's own markup) while still allowing short,
			// naturally-repeating lines like "la la la".
			if len(cleaned) > 40 {
				if _, dup := seen[cleaned]; dup {
					continue
				}
				seen[cleaned] = struct{}{}
			}
			lines = append(lines, cleaned)
		}
	}
	return strings.Join(lines, "\n")
}
