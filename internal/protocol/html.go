package protocol

import (
	"bytes"
	"context"
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/lepinkainen/shelf/internal/transform"
)

// HTMLGetter fetches HTML pages and normalizes them into XPath-queryable trees.
type HTMLGetter struct {
	Fetcher Fetcher
}

// Document fetches url and returns it as a well-formed XML tree.
func (g HTMLGetter) Document(ctx context.Context, url string) (*xmlquery.Node, error) {
	body, err := g.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := transform.HTMLToXML(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("normalizing %s: %w", url, err)
	}
	return doc, nil
}
