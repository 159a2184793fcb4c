// Package csvutil reads header-keyed CSV files row by row.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ProcessorOptions configures CSV processing behavior.
type ProcessorOptions struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// SkipInvalid skips records the parser rejects instead of failing.
	SkipInvalid bool
}

// Row is one CSV record keyed by the normalized header names.
type Row struct {
	// Line is the 1-based line number of the record, header included.
	Line   int
	Header []string
	Values []string
}

// Get returns the trimmed value of column name.
func (r Row) Get(name string) string {
	for i, h := range r.Header {
		if h == name && i < len(r.Values) {
			return strings.TrimSpace(r.Values[i])
		}
	}
	return ""
}

// Process reads CSV from r and converts every record after the header with parser.
func Process[T any](r io.Reader, parser func(Row) (T, error), opts ProcessorOptions) ([]T, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var items []T
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Error reading record", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		item, err := parser(Row{Line: line, Header: header, Values: record})
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("Skipping invalid record", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("invalid record on line %d: %w", line, err)
		}
		items = append(items, item)
	}

	return items, nil
}

// ProcessFile opens filename and runs Process over it.
func ProcessFile[T any](filename string, parser func(Row) (T, error), opts ProcessorOptions) ([]T, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Process(f, parser, opts)
}
