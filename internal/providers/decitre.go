package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lepinkainen/shelf/internal/automation"
	"github.com/lepinkainen/shelf/internal/protocol"
	"github.com/lepinkainen/shelf/internal/query"
	"github.com/lepinkainen/shelf/internal/transform"
)

const (
	// DecitreCode identifies the Decitre bookshop provider.
	DecitreCode    = "decitre"
	decitreLabel   = "Decitre"
	decitreBaseURL = "https://www.decitre.fr"

	renderHTTP    = "http"
	renderBrowser = "browser"
)

// decitreSchema reads the schema.org microdata of a product page.
var decitreSchema = transform.Schema{
	Name: DecitreCode,
	Directives: []transform.Directive{
		{Path: "//h1[@itemprop='name']", Field: "title", Nth: 1},
		{Path: "//*[@itemprop='author']", Field: "author", Array: true},
		{Path: "//*[@itemprop='publisher']", Field: "publisher", Nth: 1},
		{Path: "//*[@itemprop='isbn']", Field: "isbn", Nth: 1},
		{Path: "//*[@itemprop='numberOfPages']", Field: "pages", Nth: 1},
		{Path: "//*[@itemprop='datePublished']", Field: "publicationDate", Nth: 1},
		{Path: "//*[@itemprop='bookFormat']", Field: "format", Nth: 1},
		{Path: "//*[@itemprop='inLanguage']", Field: "language", Nth: 1},
		{Path: "//*[@itemprop='genre']", Field: "genre", Array: true},
		{Path: "//*[@itemprop='description']", Field: "description", Nth: 1},
		{Path: "//img[@itemprop='image']/@src", Field: "cover", Nth: 1},
		{Path: "//link[@rel='canonical']/@href", Field: "link", Nth: 1},
	},
}

// Decitre scrapes product pages of the Decitre bookshop by ISBN.
type Decitre struct {
	query.Base
	baseURL string
	pages   protocol.HTMLGetter
	group   transform.Group
}

// NewDecitre creates the Decitre provider. render=browser fetches pages
// through headless Chrome; headless=false shows the browser window.
func NewDecitre(cfg query.Configuration) (*Decitre, error) {
	var fetcher protocol.Fetcher
	switch render := strings.ToLower(cfg.Param("render", renderHTTP)); render {
	case renderHTTP:
		fetcher = newClient(DecitreCode, protocol.WithRateLimit(1))
	case renderBrowser:
		fetcher = protocol.NewBrowserFetcher(automation.AutomationOptions{
			Headless:     cfg.Param("headless", "") == "" || cfg.Bool("headless"),
			WaitSelector: "h1",
		})
	default:
		return nil, fmt.Errorf("%s: unknown render mode %q", DecitreCode, render)
	}

	return &Decitre{
		Base:    query.NewBase(DecitreCode, decitreLabel, query.ISBNFields...),
		baseURL: cfg.Param("base_url", decitreBaseURL),
		pages:   protocol.HTMLGetter{Fetcher: fetcher},
		group:   decitreSchema.XPath(),
	}, nil
}

// Search implements query.Provider.
func (p *Decitre) Search(ctx context.Context, field, value string) ([]*query.Result, error) {
	if !p.CanSearch(field) {
		return nil, p.Unsupported(field)
	}

	params := url.Values{}
	params.Set("q", normalizeISBN(value))
	doc, err := p.pages.Document(ctx, endpoint(p.baseURL, "/rechercher/result", params))
	if err != nil {
		return nil, ignoreNotFound(err)
	}

	fields := p.group.Apply(doc)
	if _, ok := fields["title"]; !ok {
		return nil, nil
	}
	fields.CoerceInt("pages")
	fields.CoerceDate("publicationDate", parseFrenchDate)
	return []*query.Result{query.NewResult(query.Single(field, value), doc, fields)}, nil
}

// SearchComposite uses the first identifier term.
func (p *Decitre) SearchComposite(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	return query.FirstTerm(ctx, p, terms)
}

func parseFrenchDate(value string) (time.Time, bool) {
	return transform.ParseDate(value, "02/01/2006", "2006-01-02")
}
