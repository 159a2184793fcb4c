package fields

import (
	"fmt"
	"strings"
	"time"
)

// Merge combines a newly found value with an existing one according to the
// spec's fusion directive.
func Merge(old, next any, spec Spec) any {
	switch spec.Fusion {
	case Concat:
		if isEmpty(old) {
			return next
		}
		if isEmpty(next) {
			return old
		}
		sep := spec.Separator
		if sep == "" {
			sep = DefaultSeparator
		}
		o, n := text(old, sep), text(next, sep)
		if o == n {
			return o
		}
		return o + sep + n
	case Push:
		merged := mergeStringSlices(list(old), list(next))
		if len(merged) == 0 {
			return nil
		}
		return merged
	default:
		return next
	}
}

// mergeStringSlices merges two string slices, removing duplicates.
func mergeStringSlices(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	return result
}

func list(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := scalar(v); s != "" {
		return []string{s}
	}
	return nil
}

func text(v any, sep string) string {
	switch x := v.(type) {
	case []string:
		return strings.Join(x, sep)
	case []any:
		return strings.Join(list(x), sep)
	}
	return scalar(v)
}

func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format("2006-01-02")
	}
	return fmt.Sprint(v)
}

// Record is a consumer-side book record built by folding shaped results from
// several providers.
type Record map[string]any

// Apply merges every shaped tuple into the record using its fusion directive.
func (r Record) Apply(shaped ...Shaped) {
	for _, s := range shaped {
		if isEmpty(s.Value) {
			continue
		}
		old, ok := r[s.Key]
		if !ok {
			r[s.Key] = Merge(nil, s.Value, s.Spec())
			continue
		}
		if v := Merge(old, s.Value, s.Spec()); v != nil {
			r[s.Key] = v
		}
	}
}

// Shape returns the record as presentation tuples.
func (r Record) Shape() []Shaped {
	return Shape(r)
}
