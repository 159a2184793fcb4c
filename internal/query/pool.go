package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lepinkainen/shelf/internal/errors"
)

// DefaultTimeout bounds each provider call made by a Pool.
const DefaultTimeout = 30 * time.Second

// Pool holds the active, configured providers and dispatches searches to them.
// A Pool is the error boundary for provider failures: callers only ever see
// providers that produced results.
type Pool struct {
	providers   []Provider
	observers   observers
	parallelism int
	timeout     time.Duration
}

// Option configures a Pool.
type Option func(*Pool)

// WithObserver adds a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(p *Pool) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// WithParallelism caps concurrent provider calls. 1 searches providers one
// after another; 0 or less removes the cap.
func WithParallelism(n int) Option {
	return func(p *Pool) {
		p.parallelism = n
	}
}

// WithTimeout sets the per-provider call timeout. 0 disables it.
func WithTimeout(d time.Duration) Option {
	return func(p *Pool) {
		p.timeout = d
	}
}

// NewPool builds the providers of every active configuration in source.
// Providers that fail to build are logged and left out.
func NewPool(ctx context.Context, registry *Registry, source ConfigSource, opts ...Option) (*Pool, error) {
	configs, err := source.Configurations()
	if err != nil {
		return nil, fmt.Errorf("loading provider configurations: %w", err)
	}

	var providers []Provider
	for _, cfg := range configs {
		if !cfg.Active {
			slog.DebugContext(ctx, "Skipping inactive provider", "provider", cfg.Code)
			continue
		}
		provider, err := registry.Build(cfg)
		if errors.IsMissingParameterError(err) {
			slog.InfoContext(ctx, "Provider needs configuration", "provider", cfg.Code, "error", err)
			continue
		}
		if err != nil {
			slog.WarnContext(ctx, "Provider not available", "provider", cfg.Code, "error", err)
			continue
		}
		providers = append(providers, provider)
	}

	return NewPoolFromProviders(providers, opts...), nil
}

// NewPoolFromProviders creates a pool over already constructed providers.
func NewPoolFromProviders(providers []Provider, opts ...Option) *Pool {
	p := &Pool{
		providers: providers,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Providers returns the providers in the pool.
func (p *Pool) Providers() []Provider {
	return append([]Provider(nil), p.providers...)
}

// Codes returns the codes of the providers in the pool.
func (p *Pool) Codes() []string {
	codes := make([]string, len(p.providers))
	for i, provider := range p.providers {
		codes[i] = provider.Code()
	}
	return codes
}

// Len returns the number of providers in the pool.
func (p *Pool) Len() int {
	return len(p.providers)
}

// Select narrows the pool to the given provider codes. When codes is empty or
// matches no provider the full pool is returned.
func (p *Pool) Select(codes ...string) *Pool {
	wanted := make(map[string]bool, len(codes))
	for _, code := range codes {
		if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
			wanted[code] = true
		}
	}

	var selected []Provider
	for _, provider := range p.providers {
		if wanted[strings.ToLower(provider.Code())] {
			selected = append(selected, provider)
		}
	}
	if len(selected) == 0 {
		if len(wanted) > 0 {
			slog.Debug("Provider selection matched nothing, using all providers", "codes", codes)
		}
		return p
	}

	narrowed := *p
	narrowed.providers = selected
	return &narrowed
}

// Search runs a single-field search on every provider that can search field.
func (p *Pool) Search(ctx context.Context, field, value string) map[string][]*Result {
	terms := Single(field, value)
	return p.dispatch(ctx, terms,
		func(provider Provider) bool { return provider.CanSearch(field) },
		func(ctx context.Context, provider Provider) ([]*Result, error) {
			return provider.Search(ctx, field, value)
		})
}

// SearchComposite runs a composite search on every provider. Providers decide
// applicability themselves; an UnsupportedSearchError counts as no results.
func (p *Pool) SearchComposite(ctx context.Context, terms Terms) map[string][]*Result {
	return p.dispatch(ctx, terms,
		func(Provider) bool { return true },
		func(ctx context.Context, provider Provider) ([]*Result, error) {
			return provider.SearchComposite(ctx, terms)
		})
}

type providerCall func(ctx context.Context, provider Provider) ([]*Result, error)

func (p *Pool) dispatch(ctx context.Context, terms Terms, eligible func(Provider) bool, call providerCall) map[string][]*Result {
	var (
		mu      sync.Mutex
		results = make(map[string][]*Result)
		g       errgroup.Group
	)
	if p.parallelism > 0 {
		g.SetLimit(p.parallelism)
	}

	for _, provider := range p.providers {
		if !eligible(provider) {
			continue
		}
		g.Go(func() error {
			found := p.invoke(ctx, provider, terms, call)
			if len(found) == 0 {
				return nil
			}
			mu.Lock()
			results[provider.Code()] = found
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// invoke calls one provider with lifecycle events, a timeout and panic recovery.
func (p *Pool) invoke(ctx context.Context, provider Provider, terms Terms, call providerCall) []*Result {
	started := &StartedEvent{Provider: provider, Terms: terms}
	p.observers.SearchStarted(started)
	if started.Vetoed() {
		slog.DebugContext(ctx, "Provider search vetoed", "provider", provider.Code())
		return nil
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := safeCall(callCtx, provider, call)
	results = compactResults(results)

	finished := &FinishedEvent{
		Provider: provider,
		Terms:    terms,
		Results:  results,
		Err:      err,
		Elapsed:  time.Since(start),
	}

	switch {
	case err == nil:
	case errors.IsRateLimitError(err):
		slog.WarnContext(ctx, "Provider rate limited", "provider", provider.Code(), "error", err)
		finished.Results, results = nil, nil
	case errors.IsUnsupportedSearchError(err):
		slog.DebugContext(ctx, "Provider cannot search these terms", "provider", provider.Code(), "field", strings.Join(terms.Fields(), ","), "error", err)
		finished.Results, results = nil, nil
	default:
		slog.WarnContext(ctx, "Provider search failed", "provider", provider.Code(), "field", strings.Join(terms.Fields(), ","), "error", err)
		finished.Results, results = nil, nil
	}

	p.observers.SearchFinished(finished)
	return results
}

func safeCall(ctx context.Context, provider Provider, call providerCall) (results []*Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("provider %s panicked: %v", provider.Code(), r)
		}
	}()
	return call(ctx, provider)
}

func compactResults(results []*Result) []*Result {
	out := results[:0:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
