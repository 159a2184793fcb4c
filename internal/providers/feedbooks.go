package providers

import (
	"context"
	"net/url"
	"time"

	"github.com/lepinkainen/shelf/internal/protocol"
	"github.com/lepinkainen/shelf/internal/query"
)

const (
	// FeedbooksCode identifies the Feedbooks provider.
	FeedbooksCode    = "feedbooks"
	feedbooksLabel   = "Feedbooks"
	feedbooksBaseURL = "https://catalog.feedbooks.com"
)

var feedbooksFields = []string{"title", "author", "isbn"}

// Feedbooks searches the Feedbooks OPDS catalogue. The catalogue has a single
// free-text query, so composite searches run one term at a time.
type Feedbooks struct {
	query.Base
	baseURL string
	delay   time.Duration
	fetcher protocol.Fetcher
	parser  protocol.OPDSParser
}

// NewFeedbooks creates the Feedbooks provider. The delay parameter sets the
// pause between the calls of a composite search.
func NewFeedbooks(cfg query.Configuration) (*Feedbooks, error) {
	delay, err := cfg.Duration("delay", query.DefaultSequentialDelay)
	if err != nil {
		return nil, err
	}
	return &Feedbooks{
		Base:    query.NewBase(FeedbooksCode, feedbooksLabel, feedbooksFields...),
		baseURL: cfg.Param("base_url", feedbooksBaseURL),
		delay:   delay,
		fetcher: newClient(FeedbooksCode),
		parser:  protocol.NewOPDSParser(),
	}, nil
}

// Search implements query.Provider.
func (p *Feedbooks) Search(ctx context.Context, field, value string) ([]*query.Result, error) {
	if !p.CanSearch(field) {
		return nil, p.Unsupported(field)
	}
	if isISBNField(field) {
		value = normalizeISBN(value)
	}

	params := url.Values{}
	params.Set("query", value)
	body, err := fetch(ctx, p.fetcher, endpoint(p.baseURL, "/search.atom", params))
	if err != nil || body == nil {
		return nil, err
	}
	return p.parser.Parse(query.Single(field, value), body)
}

// SearchComposite runs each supported term in turn, pausing between calls.
func (p *Feedbooks) SearchComposite(ctx context.Context, terms query.Terms) ([]*query.Result, error) {
	return query.Composite(ctx, p, terms, query.Sequential(p, p.delay))
}
