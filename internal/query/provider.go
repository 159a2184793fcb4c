// Package query defines the provider contract, search terms, the result
// envelope and the pool that fans a search out across active providers.
package query

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/shelf/internal/errors"
)

// Provider is one external book metadata source.
type Provider interface {
	// Code is the stable machine identifier of the provider.
	Code() string
	// Label is the human readable provider name.
	Label() string
	// CanSearch reports whether the provider can be searched by field.
	CanSearch(field string) bool
	// Search runs a single-field lookup.
	Search(ctx context.Context, field, value string) ([]*Result, error)
	// SearchComposite runs a lookup over several fields at once.
	SearchComposite(ctx context.Context, terms Terms) ([]*Result, error)
}

// Base implements the identity half of Provider and is meant to be embedded.
type Base struct {
	code   string
	label  string
	fields []string
}

// NewBase creates a Base for a provider searchable by fields.
func NewBase(code, label string, fields ...string) Base {
	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = strings.ToLower(f)
	}
	return Base{code: code, label: label, fields: normalized}
}

// Code returns the provider code.
func (b Base) Code() string { return b.code }

// Label returns the provider label.
func (b Base) Label() string { return b.label }

// SearchFields returns the declared searchable fields.
func (b Base) SearchFields() []string {
	return append([]string(nil), b.fields...)
}

// CanSearch compares field case-insensitively against the declared fields.
func (b Base) CanSearch(field string) bool {
	for _, f := range b.fields {
		if strings.EqualFold(f, field) {
			return true
		}
	}
	return false
}

// Unsupported returns the error a provider should return for a field it
// cannot search by.
func (b Base) Unsupported(fields ...string) error {
	return errors.NewUnsupportedSearchError(b.code, fields)
}

// ISBNFields are the only searchable fields of identifier-only providers.
var ISBNFields = []string{"isbn", "ean"}

// DefaultSequentialDelay is the pause between calls of a Sequential search.
const DefaultSequentialDelay = time.Second

// MultiSearch runs a provider specific query over two or more usable terms.
type MultiSearch func(ctx context.Context, terms Terms) ([]*Result, error)

// Composite implements the standard composite search dispatch: terms are
// filtered to those p can search, zero remaining fails with
// UnsupportedSearchError, one is delegated to p.Search and more go to multi.
// Results of multi are stamped with the original request terms.
func Composite(ctx context.Context, p Provider, terms Terms, multi MultiSearch) ([]*Result, error) {
	usable := terms.Filter(p.CanSearch)
	switch usable.Len() {
	case 0:
		return nil, errors.NewUnsupportedSearchError(p.Code(), terms.Fields())
	case 1:
		t := usable.At(0)
		return p.Search(ctx, t.Field, t.Value)
	}

	results, err := multi(ctx, usable)
	if err != nil {
		return nil, err
	}
	stamped := make([]*Result, len(results))
	for i, r := range results {
		stamped[i] = r.withTerms(terms)
	}
	return stamped, nil
}

// FirstTerm is the composite strategy of identifier-only providers. The first
// usable term wins and every other term is ignored, so a request carrying both
// isbn and ean searches by whichever was given first.
func FirstTerm(ctx context.Context, p Provider, terms Terms) ([]*Result, error) {
	usable := terms.Filter(p.CanSearch)
	if usable.Len() == 0 {
		return nil, errors.NewUnsupportedSearchError(p.Code(), terms.Fields())
	}
	t := usable.At(0)
	return p.Search(ctx, t.Field, t.Value)
}

// Sequential returns a MultiSearch for providers without a native multi-field
// query. Each term is searched on its own, strictly in order, with delay
// between consecutive calls. A failed call is logged and skipped. Cancelling
// ctx during a pause stops the sequence and returns what was collected.
func Sequential(p Provider, delay time.Duration) MultiSearch {
	return func(ctx context.Context, terms Terms) ([]*Result, error) {
		var results []*Result
		for i := 0; i < terms.Len(); i++ {
			if i > 0 {
				if err := sleep(ctx, delay); err != nil {
					return results, err
				}
			}
			t := terms.At(i)
			found, err := p.Search(ctx, t.Field, t.Value)
			if err != nil {
				slog.Debug("Sequential search step failed", "provider", p.Code(), "field", t.Field, "error", err)
				continue
			}
			results = append(results, found...)
		}
		return results, nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
