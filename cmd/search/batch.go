package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lepinkainen/shelf/internal/csvutil"
	"github.com/lepinkainen/shelf/internal/errors"
	"github.com/lepinkainen/shelf/internal/query"
)

// ReadTerms reads one search per CSV row. The header names the fields; blank
// cells are left out and rows without any value are skipped.
func ReadTerms(path string) ([]query.Terms, error) {
	return csvutil.ProcessFile(path, func(row csvutil.Row) (query.Terms, error) {
		var terms []query.Term
		for _, field := range row.Header {
			if field == "" {
				continue
			}
			if v := row.Get(field); v != "" {
				terms = append(terms, query.Term{Field: field, Value: v})
			}
		}
		if len(terms) == 0 {
			return query.Terms{}, fmt.Errorf("no search values")
		}
		return query.NewTerms(terms...), nil
	}, csvutil.ProcessorOptions{SkipInvalid: true})
}

// RunBatch runs one search per row of the CSV file at path and writes all
// reports at once. Options.Terms is ignored.
func RunBatch(ctx context.Context, path string, opts Options, w io.Writer) error {
	rows, err := ReadTerms(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no searches in %s", path)
	}

	pool, err := buildPool(ctx, opts)
	if err != nil {
		return err
	}

	reports := make([]*Report, 0, len(rows))
	for i, terms := range rows {
		if err := ctx.Err(); err != nil {
			slog.Warn("Batch interrupted", "completed", i, "total", len(rows))
			break
		}

		report, err := searchOne(ctx, pool, terms, opts)
		if errors.IsStopProcessingError(err) {
			slog.Info("Batch stopped by user", "completed", i, "total", len(rows))
			break
		}
		if err != nil {
			return fmt.Errorf("search %s: %w", terms.String(), err)
		}
		reports = append(reports, report)

		if (i+1)%10 == 0 {
			slog.Info("Processing searches",
				"processed", i+1,
				"total", len(rows),
				"percentage", fmt.Sprintf("%.1f%%", float64(i+1)/float64(len(rows))*100))
		}
	}

	texts := make([]string, len(reports))
	for i, r := range reports {
		texts[i] = formatText(r)
	}
	data, err := encode(reports, strings.Join(texts, "\n"), opts.Format)
	if err != nil {
		return err
	}
	return output(data, opts, w)
}
