// Package providers contains the concrete book metadata sources.
package providers

import (
	"context"
	stdErrors "errors"
	"net/url"
	"strings"

	"github.com/lepinkainen/shelf/internal/cache"
	"github.com/lepinkainen/shelf/internal/config"
	"github.com/lepinkainen/shelf/internal/protocol"
	"github.com/lepinkainen/shelf/internal/query"
)

// Registry returns a registry holding every built-in provider.
func Registry() *query.Registry {
	return query.NewRegistry(
		query.Registration{Code: OpenLibraryCode, Label: openLibraryLabel, Fields: openLibraryFields, New: factory(NewOpenLibrary)},
		query.Registration{Code: GoogleBooksCode, Label: googleBooksLabel, Fields: googleBooksFields, New: factory(NewGoogleBooks)},
		query.Registration{Code: ISBNdbCode, Label: isbndbLabel, Fields: query.ISBNFields, New: factory(NewISBNdb)},
		query.Registration{Code: BnFCode, Label: bnfLabel, Fields: bnfFields, New: factory(NewBnF)},
		query.Registration{Code: FeedbooksCode, Label: feedbooksLabel, Fields: feedbooksFields, New: factory(NewFeedbooks)},
		query.Registration{Code: DecitreCode, Label: decitreLabel, Fields: query.ISBNFields, New: factory(NewDecitre)},
	)
}

func factory[P query.Provider](fn func(query.Configuration) (P, error)) query.Factory {
	return func(cfg query.Configuration) (query.Provider, error) {
		p, err := fn(cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// newClient builds the HTTP client for a provider, caching responses in the
// provider's table when the cache is enabled.
func newClient(code string, opts ...protocol.ClientOption) *protocol.Client {
	if config.CacheEnabled {
		opts = append(opts, protocol.WithCache(cache.TableName(code)))
	}
	return protocol.NewClient(code, opts...)
}

// fetch returns the document at u, or nil when the upstream has no such resource.
func fetch(ctx context.Context, f protocol.Fetcher, u string) ([]byte, error) {
	body, err := f.Fetch(ctx, u)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return body, nil
}

func ignoreNotFound(err error) error {
	if stdErrors.Is(err, protocol.ErrNotFound) {
		return nil
	}
	return err
}

func endpoint(base, path string, params url.Values) string {
	u := strings.TrimRight(base, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// normalizeISBN strips hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	normalized := strings.ReplaceAll(isbn, "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	return normalized
}

func isISBNField(field string) bool {
	for _, f := range query.ISBNFields {
		if strings.EqualFold(f, field) {
			return true
		}
	}
	return false
}
