package search

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/shelf/internal/fields"
	"github.com/lepinkainen/shelf/internal/fileutil"
	"github.com/lepinkainen/shelf/internal/query"
	"gopkg.in/yaml.v3"
)

// Report is the serialisable outcome of a search.
type Report struct {
	Terms   string           `json:"terms" yaml:"terms"`
	Results []ProviderResult `json:"results" yaml:"results"`
	Merged  []fields.Shaped  `json:"merged,omitempty" yaml:"merged,omitempty"`

	terms query.Terms
}

// ProviderResult groups the shaped records of one provider.
type ProviderResult struct {
	Provider string            `json:"provider" yaml:"provider"`
	Label    string            `json:"label" yaml:"label"`
	Records  [][]fields.Shaped `json:"records" yaml:"records"`

	results []*query.Result
}

// newReport orders provider results the way the pool lists its providers.
// Providers without results are left out.
func newReport(terms query.Terms, pool *query.Pool, found map[string][]*query.Result) *Report {
	r := &Report{Terms: terms.String(), terms: terms}
	for _, p := range pool.Providers() {
		results := found[p.Code()]
		if len(results) == 0 {
			continue
		}
		r.Results = append(r.Results, newProviderResult(p.Code(), p.Label(), results))
	}
	return r
}

func newProviderResult(code, label string, results []*query.Result) ProviderResult {
	pr := ProviderResult{Provider: code, Label: label, results: results}
	for _, res := range results {
		pr.Records = append(pr.Records, fields.Shape(res.Fields()))
	}
	return pr
}

// only keeps a single result. An empty provider clears the report.
func (r *Report) only(provider string, result *query.Result) *Report {
	out := &Report{Terms: r.Terms, terms: r.terms}
	if provider == "" || result == nil {
		return out
	}
	for _, pr := range r.Results {
		if pr.Provider == provider {
			out.Results = []ProviderResult{newProviderResult(pr.Provider, pr.Label, []*query.Result{result})}
			break
		}
	}
	return out
}

// merge folds every record into one, in report order.
func (r *Report) merge() {
	record := fields.Record{}
	for _, pr := range r.Results {
		for _, shaped := range pr.Records {
			record.Apply(shaped...)
		}
	}
	r.Merged = record.Shape()
}

func write(r *Report, opts Options, w io.Writer) error {
	data, err := encode(r, formatText(r), opts.Format)
	if err != nil {
		return err
	}
	return output(data, opts, w)
}

func output(data []byte, opts Options, w io.Writer) error {
	if opts.Output == "" {
		_, err := w.Write(data)
		return err
	}

	written, err := fileutil.WriteFileWithOverwrite(opts.Output, data, 0o644, opts.Overwrite)
	if err != nil {
		return fmt.Errorf("writing %s: %w", opts.Output, err)
	}
	if !written {
		slog.Warn("Output file exists, use --overwrite to replace it", "path", opts.Output)
	}
	return nil
}

// encode renders v in format; text is used verbatim for the text format.
func encode(v any, text, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		return data, nil
	case "text":
		return []byte(text), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func formatText(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search: %s\n", r.Terms)
	if len(r.Results) == 0 {
		b.WriteString("\nNo results.\n")
	}
	for _, pr := range r.Results {
		fmt.Fprintf(&b, "\n== %s (%d) ==\n", pr.Label, len(pr.Records))
		for i, record := range pr.Records {
			if i > 0 {
				b.WriteString("  --\n")
			}
			writeRecord(&b, record)
		}
	}
	if len(r.Merged) > 0 {
		b.WriteString("\n== Merged ==\n")
		writeRecord(&b, r.Merged)
	}
	return b.String()
}

func writeRecord(b *strings.Builder, record []fields.Shaped) {
	for _, f := range record {
		fmt.Fprintf(b, "  %s: %s\n", f.Label, formatValue(f.Value))
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return fmt.Sprint(val)
	}
}
