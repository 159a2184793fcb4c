// Package fields describes the normalized book fields produced by providers:
// their display labels, value types and how a new value fuses with an
// existing one on a target record.
package fields

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Type is the presentation type of a field value.
type Type string

const (
	TypeText    Type = "text"
	TypeNumber  Type = "number"
	TypeDate    Type = "date"
	TypeArray   Type = "array"
	TypeImage   Type = "image"
	TypeBarcode Type = "barcode"
	TypeDynamic Type = "dynamic"
)

// Fusion tells a consumer how to combine a new value with an existing one.
type Fusion string

const (
	// Replace overwrites the old value.
	Replace Fusion = "replace"
	// Concat joins old and new with the field separator when old is non-empty.
	Concat Fusion = "concat"
	// Push appends new items to the old list, dropping duplicates.
	Push Fusion = "push"
)

// DefaultSeparator is used by Concat when a Spec does not set one.
const DefaultSeparator = ", "

// Spec is the static description of one field.
type Spec struct {
	Key       string
	Type      Type
	Label     string
	Fusion    Fusion
	Separator string
}

var catalog = []Spec{
	{Key: "title", Type: TypeText, Label: "Title", Fusion: Replace},
	{Key: "subtitle", Type: TypeText, Label: "Subtitle", Fusion: Replace},
	{Key: "isbn", Type: TypeBarcode, Label: "ISBN", Fusion: Replace},
	{Key: "ean", Type: TypeBarcode, Label: "EAN", Fusion: Replace},
	{Key: "author", Type: TypeArray, Label: "Authors", Fusion: Push},
	{Key: "publisher", Type: TypeText, Label: "Publisher", Fusion: Replace},
	{Key: "publicationDate", Type: TypeDate, Label: "Publication date", Fusion: Replace},
	{Key: "pages", Type: TypeNumber, Label: "Pages", Fusion: Replace},
	{Key: "cover", Type: TypeImage, Label: "Cover", Fusion: Replace},
	{Key: "genre", Type: TypeArray, Label: "Genres", Fusion: Push},
	{Key: "language", Type: TypeText, Label: "Language", Fusion: Replace},
	{Key: "description", Type: TypeText, Label: "Description", Fusion: Concat, Separator: "\n\n"},
	{Key: "format", Type: TypeText, Label: "Format", Fusion: Replace},
	{Key: "link", Type: TypeText, Label: "Link", Fusion: Replace},
	{Key: "opdsLink", Type: TypeText, Label: "OPDS link", Fusion: Replace},
}

var (
	overridesMu sync.RWMutex
	overrides   map[string]string
)

// SetLabelOverrides replaces the label translation table. Keys are matched
// case-insensitively since viper lower-cases map keys.
func SetLabelOverrides(labels map[string]string) {
	m := make(map[string]string, len(labels))
	for k, v := range labels {
		if v = strings.TrimSpace(v); v != "" {
			m[strings.ToLower(k)] = v
		}
	}
	overridesMu.Lock()
	overrides = m
	overridesMu.Unlock()
}

func labelOverride(key string) (string, bool) {
	overridesMu.RLock()
	defer overridesMu.RUnlock()
	l, ok := overrides[strings.ToLower(key)]
	return l, ok
}

// Catalog returns the known field specs in display order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the field description for key. Unknown keys are dynamic, pushed, and
// labelled with the key itself.
func Lookup(key string) Spec {
	spec, ok := known(key)
	if !ok {
		spec = Spec{Key: key, Type: TypeDynamic, Label: key, Fusion: Push}
	}
	if l, ok := labelOverride(key); ok {
		spec.Label = l
	}
	return spec
}

func known(key string) (Spec, bool) {
	for _, s := range catalog {
		if strings.EqualFold(s.Key, key) {
			return s, true
		}
	}
	return Spec{}, false
}

// Shaped is one presentation-ready field.
type Shaped struct {
	Key    string `json:"key" yaml:"key"`
	Label  string `json:"label" yaml:"label"`
	Value  any    `json:"value" yaml:"value"`
	Type   Type   `json:"type" yaml:"type"`
	Fusion Fusion `json:"fusion" yaml:"fusion"`
}

// Spec returns the field description the tuple was shaped with.
func (s Shaped) Spec() Spec {
	spec := Lookup(s.Key)
	spec.Label = s.Label
	return spec
}

// Shape turns a normalized field map into an ordered list. Catalog fields
// come first in catalog order, unknown keys follow sorted by name. Empty
// values are dropped.
func Shape(values map[string]any) []Shaped {
	out := make([]Shaped, 0, len(values))
	seen := make(map[string]bool, len(values))

	for _, s := range catalog {
		v, ok := values[s.Key]
		if !ok {
			continue
		}
		seen[s.Key] = true
		if isEmpty(v) {
			continue
		}
		out = append(out, shape(s.Key, v))
	}

	var extra []string
	for k := range values {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if v := values[k]; !isEmpty(v) {
			out = append(out, shape(k, v))
		}
	}
	return out
}

func shape(key string, v any) Shaped {
	spec := Lookup(key)
	return Shaped{Key: key, Label: spec.Label, Value: v, Type: spec.Type, Fusion: spec.Fusion}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	case time.Time:
		return x.IsZero()
	}
	return false
}
