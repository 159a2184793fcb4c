package providers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lepinkainen/shelf/internal/protocol"
	"github.com/lepinkainen/shelf/internal/query"
)

const (
	// BnFCode identifies the Bibliothèque nationale de France provider.
	BnFCode           = "bnf"
	bnfLabel          = "Bibliothèque nationale de France"
	bnfBaseURL        = "https://catalogue.bnf.fr/api/SRU"
	bnfDefaultRecords = 10
)

var bnfFields = []string{"isbn", "ean", "title", "author", "publisher"}

// bnfIndexes maps search fields to SRU CQL indexes.
var bnfIndexes = map[string]string{
	"isbn":      "bib.isbn",
	"ean":       "bib.ean",
	"title":     "bib.title",
	"author":    "bib.author",
	"publisher": "bib.publisher",
}

// BnF queries the national library catalogue over SRU and reads MODS records.
type BnF struct {
	query.Base
	baseURL    string
	maxRecords int
	fetcher    protocol.Fetcher
	parser     protocol.SRUParser
}

// NewBnF creates the BnF provider.
func NewBnF(cfg query.Configuration) (*BnF, error) {
	maxRecords := bnfDefaultRecords
	if v := cfg.Param("max_records", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%s: invalid max_records %q", BnFCode, v)
		}
		maxRecords = n
	}
	return &BnF{
		Base:       query.NewBase(BnFCode, bnfLabel, bnfFields...),
		baseURL:    cfg.Param("base_url", bnfBaseURL),
		maxRecords: maxRecords,
		fetcher:    newClient(BnFCode, protocol.WithRateLimit(2)),
		parser:     protocol.NewSRUParser(),
	}, nil
}

// Search implements query.Provider.
func (p *BnF) Search(ctx context.Context, field, value string) ([]*query.Result, error) {
	if !p.CanSearch(field) {
		return nil, p.Unsupported(field)
	}
	return p.search(ctx, query.Single(field, value))
}

// SearchComposite joins the supported terms with CQL "and".
func (p *BnF) SearchComposite(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	return query.Composite(ctx, p, terms, p.search)
}

func (p *BnF) search(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	cql := p.cql(terms)
	if cql == "" {
		return nil, p.Unsupported(terms.Fields()...)
	}

	params := url.Values{}
	params.Set("version", "1.2")
	params.Set("operation", "searchRetrieve")
	params.Set("recordSchema", "mods")
	params.Set("maximumRecords", strconv.Itoa(p.maxRecords))
	params.Set("query", cql)

	body, err := fetch(ctx, p.fetcher, endpoint(p.baseURL, "", params))
	if err != nil || body == nil {
		return nil, err
	}
	return p.parser.Parse(terms, body)
}

func (p *BnF) cql(terms query.Terms) string {
	var clauses []string
	for _, t := range terms.All() {
		index, ok := bnfIndexes[t.Field]
		if !ok {
			continue
		}
		value := t.Value
		if isISBNField(t.Field) {
			value = normalizeISBN(value)
		}
		value = strings.ReplaceAll(value, `"`, `\"`)
		clauses = append(clauses, fmt.Sprintf(`%s all "%s"`, index, value))
	}
	return strings.Join(clauses, " and ")
}
