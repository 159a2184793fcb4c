// Package transform extracts values from structured provider documents (JSON
// trees and XPath-navigable XML) into flat field maps.
//
// Transformers are deliberately inert: a transformer handed a document type it
// does not understand returns its output untouched, so one schema can be probed
// against responses from several protocol families.
package transform

import (
	"strings"
)

// Fields is a flat map of normalized field values. Values are string,
// []string, int or time.Time and are never nil.
type Fields map[string]any

// Clone returns a shallow copy of f with list values copied.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		if list, ok := v.([]string); ok {
			v = append([]string(nil), list...)
		}
		out[k] = v
	}
	return out
}

// Directive describes one path-based extraction rule.
type Directive struct {
	// Path is the JSON path or XPath expression evaluated against the source.
	Path string
	// Field is the output field name.
	Field string
	// Array emits every match as a list instead of a ", "-joined string.
	Array bool
	// Nth keeps only the nth match (1-based). Zero keeps all matches.
	Nth int
}

// Transformer writes the values it extracts from src into out and returns the
// resulting map. Unsupported source types leave out unchanged.
type Transformer interface {
	Transform(src any, out Fields) Fields
}

// Group applies transformers in order against one source. Later transformers
// overwrite earlier ones when they write the same field.
type Group []Transformer

// Apply runs the group against src and returns a fresh output map.
func (g Group) Apply(src any) Fields {
	return g.ApplyTo(src, Fields{})
}

// ApplyTo runs the group against src, folding results into out.
func (g Group) ApplyTo(src any, out Fields) Fields {
	for _, t := range g {
		out = t.Transform(src, out)
	}
	return out
}

// Schema is a named, reusable list of directives for one provider or protocol family.
type Schema struct {
	Name       string
	Directives []Directive
}

// JSON builds a JSON-path transformer group from the schema.
func (s Schema) JSON() Group {
	group := make(Group, 0, len(s.Directives))
	for _, d := range s.Directives {
		group = append(group, NewJSONPath(d))
	}
	return group
}

// XPath builds an XPath transformer group from the schema.
func (s Schema) XPath() Group {
	group := make(Group, 0, len(s.Directives))
	for _, d := range s.Directives {
		group = append(group, NewXPath(d))
	}
	return group
}

// emit writes the matched values according to the directive's shape rules.
func (d Directive) emit(values []string, out Fields) Fields {
	values = compact(values)
	if d.Nth > 0 {
		if d.Nth > len(values) {
			return out
		}
		values = values[d.Nth-1 : d.Nth]
	}
	if len(values) == 0 {
		return out
	}
	if out == nil {
		out = Fields{}
	}
	if d.Array {
		out[d.Field] = values
	} else {
		out[d.Field] = strings.Join(values, ", ")
	}
	return out
}

// compact collapses whitespace runs and drops blank values.
func compact(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.Join(strings.Fields(v), " ")
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
