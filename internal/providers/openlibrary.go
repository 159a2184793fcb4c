package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lepinkainen/shelf/internal/protocol"
	"github.com/lepinkainen/shelf/internal/query"
	"github.com/lepinkainen/shelf/internal/transform"
)

const (
	// OpenLibraryCode identifies the Open Library provider.
	OpenLibraryCode    = "openlibrary"
	openLibraryLabel   = "Open Library"
	openLibraryBaseURL = "https://openlibrary.org"
	openLibraryCovers  = "https://covers.openlibrary.org/b/id/%s-L.jpg"
	openLibraryLimit   = "10"
)

var openLibraryFields = []string{"isbn", "ean", "title", "author"}

var openLibrarySchema = transform.Schema{
	Name: OpenLibraryCode,
	Directives: []transform.Directive{
		{Path: "title", Field: "title"},
		{Path: "subtitle", Field: "subtitle"},
		{Path: "author_name", Field: "author", Array: true},
		{Path: "publisher", Field: "publisher", Nth: 1},
		{Path: "isbn", Field: "isbn", Nth: 1},
		{Path: "language", Field: "language", Array: true},
		{Path: "subject", Field: "genre", Array: true},
		{Path: "number_of_pages_median", Field: "pages"},
		{Path: "first_publish_year", Field: "publicationDate"},
		{Path: "cover_i", Field: "cover"},
		{Path: "key", Field: "link"},
	},
}

// OpenLibrary searches the Open Library catalogue through its search API.
type OpenLibrary struct {
	query.Base
	baseURL string
	fetcher protocol.Fetcher
	group   transform.Group
}

// NewOpenLibrary creates the Open Library provider.
func NewOpenLibrary(cfg query.Configuration) (*OpenLibrary, error) {
	return &OpenLibrary{
		Base:    query.NewBase(OpenLibraryCode, openLibraryLabel, openLibraryFields...),
		baseURL: cfg.Param("base_url", openLibraryBaseURL),
		fetcher: newClient(OpenLibraryCode, protocol.WithRateLimit(1)),
		group:   openLibrarySchema.JSON(),
	}, nil
}

// Search implements query.Provider.
func (p *OpenLibrary) Search(ctx context.Context, field, value string) ([]*query.Result, error) {
	if !p.CanSearch(field) {
		return nil, p.Unsupported(field)
	}
	return p.search(ctx, query.Single(field, value))
}

// SearchComposite sends every supported term in a single query.
func (p *OpenLibrary) SearchComposite(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	return query.Composite(ctx, p, terms, p.search)
}

func (p *OpenLibrary) search(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	params := url.Values{}
	for _, t := range terms.All() {
		switch {
		case !p.CanSearch(t.Field):
			continue
		case isISBNField(t.Field):
			params.Set("q", "isbn:"+normalizeISBN(t.Value))
		default:
			params.Set(t.Field, t.Value)
		}
	}
	if len(params) == 0 {
		return nil, p.Unsupported(terms.Fields()...)
	}
	params.Set("limit", openLibraryLimit)

	body, err := fetch(ctx, p.fetcher, endpoint(p.baseURL, "/search.json", params))
	if err != nil || body == nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: invalid JSON response", OpenLibraryCode)
	}

	docs := gjson.GetBytes(body, "docs").Array()
	results := make([]*query.Result, 0, len(docs))
	for _, doc := range docs {
		fields := p.group.Apply(doc)
		if len(fields) == 0 {
			continue
		}
		fields.CoerceInt("pages")
		fields.CoerceDate("publicationDate", transform.ParseYear)
		if id, ok := fields["cover"].(string); ok {
			fields["cover"] = fmt.Sprintf(openLibraryCovers, id)
		}
		if key, ok := fields["link"].(string); ok {
			fields["link"] = strings.TrimRight(p.baseURL, "/") + key
		}
		results = append(results, query.NewResult(terms, doc.Raw, fields))
	}
	return results, nil
}
