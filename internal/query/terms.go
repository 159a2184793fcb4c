package query

import (
	"fmt"
	"strings"
)

// Term is one (field, value) search criterion, e.g. ("isbn", "9782298023831").
type Term struct {
	Field string
	Value string
}

func (t Term) String() string {
	return t.Field + "=" + t.Value
}

// Terms is an ordered set of search terms with unique field names.
// The zero value is an empty set. Terms is immutable once built.
type Terms struct {
	items []Term
}

// NewTerms builds a term set. Field names are lower-cased and trimmed; a
// repeated field keeps its first position and takes the last value. Terms
// with an empty field or value are dropped.
func NewTerms(terms ...Term) Terms {
	items := make([]Term, 0, len(terms))
	index := make(map[string]int, len(terms))
	for _, t := range terms {
		field := strings.ToLower(strings.TrimSpace(t.Field))
		value := strings.TrimSpace(t.Value)
		if field == "" || value == "" {
			continue
		}
		if i, ok := index[field]; ok {
			items[i].Value = value
			continue
		}
		index[field] = len(items)
		items = append(items, Term{Field: field, Value: value})
	}
	return Terms{items: items}
}

// Single is shorthand for a one-term set.
func Single(field, value string) Terms {
	return NewTerms(Term{Field: field, Value: value})
}

// ParseTerms parses "field=value" arguments as typed on the command line.
func ParseTerms(args []string) (Terms, error) {
	terms := make([]Term, 0, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return Terms{}, fmt.Errorf("invalid search term %q, expected field=value", arg)
		}
		terms = append(terms, Term{Field: field, Value: value})
	}
	return NewTerms(terms...), nil
}

// Len returns the number of terms.
func (t Terms) Len() int {
	return len(t.items)
}

// At returns the ith term.
func (t Terms) At(i int) Term {
	return t.items[i]
}

// Get returns the value searched for field.
func (t Terms) Get(field string) (string, bool) {
	field = strings.ToLower(field)
	for _, item := range t.items {
		if item.Field == field {
			return item.Value, true
		}
	}
	return "", false
}

// Fields returns the field names in order.
func (t Terms) Fields() []string {
	fields := make([]string, len(t.items))
	for i, item := range t.items {
		fields[i] = item.Field
	}
	return fields
}

// Filter returns the terms whose field satisfies keep, preserving order.
func (t Terms) Filter(keep func(field string) bool) Terms {
	items := make([]Term, 0, len(t.items))
	for _, item := range t.items {
		if keep(item.Field) {
			items = append(items, item)
		}
	}
	return Terms{items: items}
}

// All returns a copy of the terms as a slice.
func (t Terms) All() []Term {
	return append([]Term(nil), t.items...)
}

func (t Terms) String() string {
	parts := make([]string, len(t.items))
	for i, item := range t.items {
		parts[i] = item.String()
	}
	return strings.Join(parts, " ")
}
