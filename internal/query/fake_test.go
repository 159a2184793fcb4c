package query

import (
	"context"
	"sync"

	"github.com/lepinkainen/shelf/internal/transform"
)

// fakeProvider records calls and answers from a canned function.
type fakeProvider struct {
	Base
	mu     sync.Mutex
	calls  []Term
	answer func(ctx context.Context, field, value string) ([]*Result, error)
	multi  func(p *fakeProvider) MultiSearch
}

func newFake(code string, fields ...string) *fakeProvider {
	f := &fakeProvider{Base: NewBase(code, "Fake "+code, fields...)}
	f.answer = func(_ context.Context, field, value string) ([]*Result, error) {
		return []*Result{NewResult(Single(field, value), nil, transform.Fields{"title": code + ":" + value})}, nil
	}
	return f
}

func (f *fakeProvider) Search(ctx context.Context, field, value string) ([]*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Term{Field: field, Value: value})
	f.mu.Unlock()
	return f.answer(ctx, field, value)
}

func (f *fakeProvider) SearchComposite(ctx context.Context, terms Terms) ([]*Result, error) {
	if f.multi == nil {
		return FirstTerm(ctx, f, terms)
	}
	return Composite(ctx, f, terms, f.multi(f))
}

func (f *fakeProvider) Calls() []Term {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Term(nil), f.calls...)
}
