// Package search implements the search command: fan a book lookup out to the
// configured providers and report, merge or store what they found.
package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lepinkainen/shelf/internal/config"
	"github.com/lepinkainen/shelf/internal/datastore"
	"github.com/lepinkainen/shelf/internal/errors"
	"github.com/lepinkainen/shelf/internal/fileutil"
	"github.com/lepinkainen/shelf/internal/providers"
	"github.com/lepinkainen/shelf/internal/query"
	"github.com/lepinkainen/shelf/internal/tui"
)

// Options configures a search run.
type Options struct {
	// Terms are field=value pairs.
	Terms []string
	// Providers restricts the search to these provider codes.
	Providers []string
	// Exclude skips these provider codes.
	Exclude []string
	// ProviderFile reads provider configurations from a YAML file instead of config.yaml.
	ProviderFile string
	// Sequential calls providers one at a time.
	Sequential bool
	// Timeout bounds each provider call.
	Timeout time.Duration
	// Format is json, yaml or text.
	Format string
	// Merge folds all results into a single record.
	Merge bool
	// Interactive lets the user pick one result.
	Interactive bool
	// Store writes the results to the configured datastore.
	Store bool
	// CoversDir downloads result covers into this directory.
	CoversDir string
	// Output writes the report to a file instead of the writer.
	Output string
	// Overwrite replaces an existing output file.
	Overwrite bool
}

var (
	newRegistry     = providers.Registry
	selectCandidate = tui.Select
	openStore       = datastore.FromConfig
)

// Run executes the search described by opts and writes the report to w.
func Run(ctx context.Context, opts Options, w io.Writer) error {
	terms, err := query.ParseTerms(opts.Terms)
	if err != nil {
		return err
	}
	if terms.Len() == 0 {
		return fmt.Errorf("at least one field=value term is required")
	}

	pool, err := buildPool(ctx, opts)
	if err != nil {
		return err
	}

	report, err := searchOne(ctx, pool, terms, opts)
	if err != nil {
		return err
	}
	return write(report, opts, w)
}

// searchOne runs one search and applies the selection, merge, store and cover
// steps requested in opts.
func searchOne(ctx context.Context, pool *query.Pool, terms query.Terms, opts Options) (*Report, error) {
	slog.Info("Searching", "terms", terms.String(), "providers", pool.Codes())
	var found map[string][]*query.Result
	if terms.Len() == 1 {
		t := terms.At(0)
		found = pool.Search(ctx, t.Field, t.Value)
	} else {
		found = pool.SearchComposite(ctx, terms)
	}

	report := newReport(terms, pool, found)
	if len(report.Results) == 0 {
		slog.Info("No results found", "terms", terms.String())
	}

	if opts.Interactive && len(report.Results) > 0 {
		var err error
		if report, err = pick(report); err != nil {
			return nil, err
		}
	}

	if opts.Merge {
		report.merge()
	}

	if opts.Store {
		if err := store(report); err != nil {
			return nil, err
		}
	}

	if opts.CoversDir != "" {
		downloadCovers(ctx, report, opts.CoversDir)
	}

	return report, nil
}

func buildPool(ctx context.Context, opts Options) (*query.Pool, error) {
	var source query.ConfigSource = config.NewViperSource(nil)
	if opts.ProviderFile != "" {
		source = config.FileSource{Path: opts.ProviderFile}
	}

	poolOpts := []query.Option{query.WithObserver(logObserver())}
	if opts.Timeout > 0 {
		poolOpts = append(poolOpts, query.WithTimeout(opts.Timeout))
	}
	if len(opts.Exclude) > 0 {
		poolOpts = append(poolOpts, query.WithObserver(excludeObserver(opts.Exclude)))
	}
	if opts.Sequential {
		poolOpts = append(poolOpts, query.WithParallelism(1))
	}

	pool, err := query.NewPool(ctx, newRegistry(), source, poolOpts...)
	if err != nil {
		return nil, err
	}
	if len(opts.Providers) > 0 {
		pool = pool.Select(opts.Providers...)
	}
	if pool.Len() == 0 {
		return nil, fmt.Errorf("no active providers configured")
	}
	return pool, nil
}

// pick narrows the report to the result chosen in the selection UI.
func pick(r *Report) (*Report, error) {
	var candidates []tui.Candidate
	for _, pr := range r.Results {
		for _, res := range pr.results {
			candidates = append(candidates, tui.Candidate{Provider: pr.Provider, Label: pr.Label, Result: res})
		}
	}

	sel, err := selectCandidate(r.Terms, candidates)
	if err != nil {
		return nil, fmt.Errorf("selection failed: %w", err)
	}
	switch sel.Action {
	case tui.ActionSelected:
		return r.only(sel.Selection.Provider, sel.Selection.Result), nil
	case tui.ActionStopped:
		return nil, errors.NewStopProcessingError("search cancelled by user")
	default:
		slog.Info("Selection skipped")
		return r.only("", nil), nil
	}
}

func store(r *Report) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	if err := s.Connect(); err != nil {
		return fmt.Errorf("connecting to datastore: %w", err)
	}
	defer func() { _ = s.Close() }()

	sink := datastore.NewSink(s)
	if err := sink.Init(); err != nil {
		return err
	}

	batch := sink.Begin(r.terms)
	for _, pr := range r.Results {
		if err := batch.AddResults(pr.Provider, pr.results); err != nil {
			return err
		}
	}
	if len(r.Merged) > 0 {
		if err := batch.Add(datastore.MergedProvider, 0, r.Merged); err != nil {
			return err
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("storing results: %w", err)
	}
	slog.Info("Stored search results", "search_id", batch.SearchID(), "providers", len(r.Results))
	return nil
}

func downloadCovers(ctx context.Context, r *Report, dir string) {
	for _, pr := range r.Results {
		for _, res := range pr.results {
			url, _ := res.Get("cover")
			coverURL, ok := url.(string)
			if !ok || coverURL == "" {
				continue
			}
			title, _ := res.Get("title")
			titleStr, _ := title.(string)

			_, err := fileutil.DownloadCover(ctx, fileutil.CoverDownloadOptions{
				URL:       coverURL,
				OutputDir: dir,
				Filename:  fileutil.BuildCoverFilename(titleStr, pr.Provider),
			})
			if err != nil {
				slog.Warn("Cover download failed", "provider", pr.Provider, "url", coverURL, "error", err)
			}
		}
	}
}

func logObserver() query.Observer {
	return query.ObserverFuncs{
		Started: func(e *query.StartedEvent) {
			slog.Debug("Provider search started", "provider", e.Provider.Code(), "terms", e.Terms.String())
		},
		Finished: func(e *query.FinishedEvent) {
			if e.Err != nil {
				slog.Debug("Provider search finished with error", "provider", e.Provider.Code(), "error", e.Err, "elapsed", e.Elapsed)
				return
			}
			slog.Debug("Provider search finished", "provider", e.Provider.Code(), "results", len(e.Results), "elapsed", e.Elapsed)
		},
	}
}

func excludeObserver(codes []string) query.Observer {
	return query.ObserverFuncs{
		Started: func(e *query.StartedEvent) {
			for _, code := range codes {
				if code == e.Provider.Code() {
					slog.Debug("Provider excluded", "provider", code)
					e.Veto()
					return
				}
			}
		},
	}
}
