package protocol

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/antchfx/xmlquery"

	"github.com/lepinkainen/shelf/internal/query"
	"github.com/lepinkainen/shelf/internal/transform"
)

var defaultNamespacePattern = regexp.MustCompile(`\sxmlns="[^"]*"`)

// StripDefaultNamespaces removes default namespace declarations so plain
// XPath expressions match without registering prefixes.
func StripDefaultNamespaces(body []byte) []byte {
	return defaultNamespacePattern.ReplaceAll(body, nil)
}

var modsSchema = transform.Schema{
	Name: "mods",
	Directives: []transform.Directive{
		{Path: "titleInfo/title", Field: "title", Nth: 1},
		{Path: "titleInfo/subTitle", Field: "subtitle", Nth: 1},
		{Path: "originInfo[@eventType='publisher']/publisher", Field: "publisher"},
		{Path: "name/namePart", Field: "author", Array: true},
		{Path: "physicalDescription/form", Field: "format"},
		{Path: "identifier[@type='isbn']", Field: "isbn", Nth: 1},
		{Path: "language/languageTerm", Field: "language"},
		{Path: "genre", Field: "genre", Array: true},
		{Path: "abstract", Field: "description"},
		{Path: "originInfo[@eventType='publisher']/dateIssued", Field: "publicationDate", Nth: 1},
	},
}

// SRUParser turns SRU searchRetrieve responses carrying MODS records into results.
type SRUParser struct {
	group transform.Group
}

// NewSRUParser creates an SRUParser with the standard MODS schema.
func NewSRUParser() SRUParser {
	return SRUParser{group: modsSchema.XPath()}
}

// Parse extracts one result per MODS record in body.
func (p SRUParser) Parse(terms query.Terms, body []byte) ([]*query.Result, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(StripDefaultNamespaces(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing sru response: %w", err)
	}

	records := xmlquery.Find(doc, "//*[local-name()='mods']")
	results := make([]*query.Result, 0, len(records))
	for _, record := range records {
		fields := p.group.Apply(record)
		fields.CoerceDate("publicationDate", transform.ParseYear)
		results = append(results, query.NewResult(terms, record, fields))
	}
	return results, nil
}
