package protocol

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/lepinkainen/shelf/internal/query"
	"github.com/lepinkainen/shelf/internal/transform"
)

var opdsSchema = transform.Schema{
	Name: "opds",
	Directives: []transform.Directive{
		{Path: "title", Field: "title"},
		{Path: "dcterms:identifier", Field: "isbn", Nth: 1},
		{Path: "author/name", Field: "author", Array: true},
		{Path: "dcterms:language", Field: "language"},
		{Path: "dcterms:publisher", Field: "publisher"},
		{Path: "dcterms:extent", Field: "pages"},
		{Path: "category/@label", Field: "genre", Array: true},
		{Path: "link[starts-with(@type, 'image/')]/@href", Field: "cover", Nth: 1},
		{Path: "id", Field: "opdsLink"},
		{Path: "summary", Field: "description"},
		{Path: "published", Field: "publicationDate"},
	},
}

// OPDSParser turns Atom/OPDS acquisition feeds into results, one per entry.
type OPDSParser struct {
	group transform.Group
}

// NewOPDSParser creates an OPDSParser with the standard entry schema.
func NewOPDSParser() OPDSParser {
	return OPDSParser{group: opdsSchema.XPath()}
}

// Parse extracts one result per entry of the feed in body.
func (p OPDSParser) Parse(terms query.Terms, body []byte) ([]*query.Result, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(StripDefaultNamespaces(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing opds feed: %w", err)
	}

	entries := xmlquery.Find(doc, "//entry")
	results := make([]*query.Result, 0, len(entries))
	for _, entry := range entries {
		fields := p.group.Apply(entry)
		if isbn, ok := fields["isbn"].(string); ok {
			fields["isbn"] = trimURN(isbn)
		}
		fields.CoerceInt("pages")
		fields.CoerceDate("publicationDate", parseISODate)
		results = append(results, query.NewResult(terms, entry, fields))
	}
	return results, nil
}

func parseISODate(value string) (time.Time, bool) {
	return transform.ParseDate(value)
}

// trimURN turns "urn:isbn:978..." identifiers into bare ISBNs.
func trimURN(id string) string {
	const prefix = "urn:isbn:"
	if len(id) > len(prefix) && strings.EqualFold(id[:len(prefix)], prefix) {
		return id[len(prefix):]
	}
	return id
}
