package providers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/lepinkainen/shelf/internal/protocol"
	"github.com/lepinkainen/shelf/internal/query"
	"github.com/lepinkainen/shelf/internal/transform"
)

const (
	// ISBNdbCode identifies the ISBNdb provider.
	ISBNdbCode    = "isbndb"
	isbndbLabel   = "ISBNdb"
	isbndbBaseURL = "https://api2.isbndb.com"
)

var isbndbSchema = transform.Schema{
	Name: ISBNdbCode,
	Directives: []transform.Directive{
		{Path: "book.title", Field: "title"},
		{Path: "book.authors", Field: "author", Array: true},
		{Path: "book.publisher", Field: "publisher"},
		{Path: "book.language", Field: "language"},
		{Path: "book.date_published", Field: "publicationDate"},
		{Path: "book.pages", Field: "pages"},
		{Path: "book.isbn13", Field: "isbn"},
		{Path: "book.binding", Field: "format"},
		{Path: "book.image_original", Field: "cover"},
		{Path: "book.overview", Field: "description"},
		// synopsis wins over overview when both exist
		{Path: "book.synopsis", Field: "description"},
		{Path: `book.subjects.#(!%"Subjects")#`, Field: "genre", Array: true},
	},
}

// ISBNdb looks books up by ISBN on the ISBNdb API. It needs an API key.
type ISBNdb struct {
	query.Base
	baseURL string
	fetcher protocol.Fetcher
	group   transform.Group
}

// NewISBNdb creates the ISBNdb provider. The api_key parameter is required.
func NewISBNdb(cfg query.Configuration) (*ISBNdb, error) {
	apiKey, err := cfg.Require("api_key")
	if err != nil {
		return nil, err
	}
	return &ISBNdb{
		Base:    query.NewBase(ISBNdbCode, isbndbLabel, query.ISBNFields...),
		baseURL: cfg.Param("base_url", isbndbBaseURL),
		// Free tier: 1 request per second
		fetcher: newClient(ISBNdbCode,
			protocol.WithRateLimit(1),
			protocol.WithHeader("Authorization", apiKey),
		),
		group: isbndbSchema.JSON(),
	}, nil
}

// Search implements query.Provider.
func (p *ISBNdb) Search(ctx context.Context, field, value string) ([]*query.Result, error) {
	if !p.CanSearch(field) {
		return nil, p.Unsupported(field)
	}

	terms := query.Single(field, value)
	body, err := fetch(ctx, p.fetcher, endpoint(p.baseURL, "/book/"+url.PathEscape(normalizeISBN(value)), nil))
	if err != nil || body == nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: invalid JSON response", ISBNdbCode)
	}

	book := gjson.GetBytes(body, "book")
	if !book.Exists() {
		return nil, nil
	}
	fields := p.group.Apply(transform.JSON(body))
	if len(fields) == 0 {
		return nil, nil
	}
	fields.CoerceInt("pages")
	fields.CoerceDate("publicationDate", parseDate)
	return []*query.Result{query.NewResult(terms, book.Raw, fields)}, nil
}

// SearchComposite uses the first identifier term.
func (p *ISBNdb) SearchComposite(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	return query.FirstTerm(ctx, p, terms)
}
