package transform

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/net/html"
)

var xmlNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// HTMLToXML parses tolerant HTML and re-serializes it as well-formed XML so the
// XPath transformers can be applied to scraped pages.
func HTMLToXML(r io.Reader) (*xmlquery.Node, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var buf bytes.Buffer
	writeXML(&buf, root)

	doc, err := xmlquery.Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("parsing normalized html: %w", err)
	}
	return doc, nil
}

func writeXML(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeXML(buf, c)
		}
	case html.ElementNode:
		if !xmlNamePattern.MatchString(n.Data) {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				writeXML(buf, c)
			}
			return
		}
		buf.WriteByte('<')
		buf.WriteString(n.Data)
		seen := make(map[string]bool, len(n.Attr))
		for _, attr := range n.Attr {
			// namespace declarations and prefixed names would need declared prefixes
			if attr.Namespace != "" || attr.Key == "xmlns" || !xmlNamePattern.MatchString(attr.Key) || seen[attr.Key] {
				continue
			}
			seen[attr.Key] = true
			buf.WriteByte(' ')
			buf.WriteString(attr.Key)
			buf.WriteString(`="`)
			_ = xml.EscapeText(buf, []byte(attr.Val))
			buf.WriteByte('"')
		}
		buf.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeXML(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(n.Data)
		buf.WriteByte('>')
	case html.TextNode:
		_ = xml.EscapeText(buf, []byte(n.Data))
	}
}

// InnerText concatenates the text of every descendant text node of either an
// *html.Node or an *xmlquery.Node. Other values yield "".
func InnerText(node any) string {
	switch n := node.(type) {
	case *xmlquery.Node:
		if n == nil {
			return ""
		}
		return n.InnerText()
	case *html.Node:
		if n == nil {
			return ""
		}
		var sb strings.Builder
		collectText(&sb, n)
		return sb.String()
	default:
		return ""
	}
}

func collectText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
}
