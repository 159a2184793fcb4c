package query

import (
	"github.com/lepinkainen/shelf/internal/transform"
)

// Result is one normalized match returned by a provider. It records the terms
// that produced it, the parsed source document and the normalized fields.
// A Result is not modified after construction.
type Result struct {
	terms  Terms
	raw    any
	fields transform.Fields
}

// NewResult builds a result, dropping nil, empty string and empty list values
// from fields. fields is copied.
func NewResult(terms Terms, raw any, fields transform.Fields) *Result {
	clean := make(transform.Fields, len(fields))
	for k, v := range fields {
		if isEmpty(v) {
			continue
		}
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		clean[k] = v
	}
	return &Result{terms: terms, raw: raw, fields: clean}
}

// Terms returns the search terms that produced this result.
func (r *Result) Terms() Terms {
	return r.terms
}

// Raw returns the provider document the result was extracted from.
func (r *Result) Raw() any {
	return r.raw
}

// Fields returns a copy of the normalized fields.
func (r *Result) Fields() transform.Fields {
	return r.fields.Clone()
}

// Get returns one normalized field.
func (r *Result) Get(field string) (any, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Len returns the number of normalized fields.
func (r *Result) Len() int {
	return len(r.fields)
}

// FieldsWithEmpties returns the normalized fields with an empty string
// placeholder for every name in names that was not found.
func (r *Result) FieldsWithEmpties(names ...string) transform.Fields {
	out := r.Fields()
	for _, name := range names {
		if _, ok := out[name]; !ok {
			out[name] = ""
		}
	}
	return out
}

// withTerms returns a copy of r stamped with different search terms.
func (r *Result) withTerms(terms Terms) *Result {
	return &Result{terms: terms, raw: r.raw, fields: r.fields}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}
