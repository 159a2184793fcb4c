package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lepinkainen/shelf/internal/protocol"
	"github.com/lepinkainen/shelf/internal/query"
	"github.com/lepinkainen/shelf/internal/transform"
)

const (
	// GoogleBooksCode identifies the Google Books provider.
	GoogleBooksCode    = "googlebooks"
	googleBooksLabel   = "Google Books"
	googleBooksBaseURL = "https://www.googleapis.com/books/v1"
)

var googleBooksFields = []string{"isbn", "ean", "title", "author", "publisher"}

// googleBooksQualifiers maps search fields to volume query qualifiers.
var googleBooksQualifiers = map[string]string{
	"isbn":      "isbn",
	"ean":       "isbn",
	"title":     "intitle",
	"author":    "inauthor",
	"publisher": "inpublisher",
}

var googleBooksSchema = transform.Schema{
	Name: GoogleBooksCode,
	Directives: []transform.Directive{
		{Path: "volumeInfo.title", Field: "title"},
		{Path: "volumeInfo.subtitle", Field: "subtitle"},
		{Path: "volumeInfo.authors", Field: "author", Array: true},
		{Path: "volumeInfo.publisher", Field: "publisher"},
		{Path: "volumeInfo.publishedDate", Field: "publicationDate"},
		{Path: "volumeInfo.description", Field: "description"},
		{Path: "volumeInfo.pageCount", Field: "pages"},
		{Path: "volumeInfo.categories", Field: "genre", Array: true},
		{Path: "volumeInfo.language", Field: "language"},
		{Path: `volumeInfo.industryIdentifiers.#(type=="ISBN_13").identifier`, Field: "isbn"},
		{Path: "volumeInfo.imageLinks.thumbnail", Field: "cover"},
		{Path: "volumeInfo.printType", Field: "format"},
		{Path: "volumeInfo.infoLink", Field: "link"},
	},
}

// GoogleBooks searches the Google Books volumes API. The API key is optional.
type GoogleBooks struct {
	query.Base
	baseURL string
	apiKey  string
	fetcher protocol.Fetcher
	group   transform.Group
}

// NewGoogleBooks creates the Google Books provider.
func NewGoogleBooks(cfg query.Configuration) (*GoogleBooks, error) {
	return &GoogleBooks{
		Base:    query.NewBase(GoogleBooksCode, googleBooksLabel, googleBooksFields...),
		baseURL: cfg.Param("base_url", googleBooksBaseURL),
		apiKey:  cfg.Param("api_key", ""),
		fetcher: newClient(GoogleBooksCode, protocol.WithRateLimit(1)),
		group:   googleBooksSchema.JSON(),
	}, nil
}

// Search implements query.Provider.
func (p *GoogleBooks) Search(ctx context.Context, field, value string) ([]*query.Result, error) {
	if !p.CanSearch(field) {
		return nil, p.Unsupported(field)
	}
	return p.search(ctx, query.Single(field, value))
}

// SearchComposite combines all supported terms with volume query qualifiers.
func (p *GoogleBooks) SearchComposite(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	return query.Composite(ctx, p, terms, p.search)
}

func (p *GoogleBooks) search(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	var parts []string
	for _, t := range terms.All() {
		qualifier, ok := googleBooksQualifiers[t.Field]
		if !ok {
			continue
		}
		value := t.Value
		if isISBNField(t.Field) {
			value = normalizeISBN(value)
		}
		parts = append(parts, qualifier+":"+value)
	}
	if len(parts) == 0 {
		return nil, p.Unsupported(terms.Fields()...)
	}

	params := url.Values{}
	params.Set("q", strings.Join(parts, " "))
	if p.apiKey != "" {
		params.Set("key", p.apiKey)
	}

	body, err := fetch(ctx, p.fetcher, endpoint(p.baseURL, "/volumes", params))
	if err != nil || body == nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: invalid JSON response", GoogleBooksCode)
	}

	items := gjson.GetBytes(body, "items").Array()
	results := make([]*query.Result, 0, len(items))
	for _, item := range items {
		fields := p.group.Apply(item)
		if len(fields) == 0 {
			continue
		}
		fields.CoerceInt("pages")
		fields.CoerceDate("publicationDate", parseDate)
		if cover, ok := fields["cover"].(string); ok {
			fields["cover"] = strings.Replace(cover, "zoom=1", "zoom=0", 1)
		}
		results = append(results, query.NewResult(terms, item.Raw, fields))
	}
	return results, nil
}

func parseDate(value string) (time.Time, bool) {
	return transform.ParseDate(value)
}
