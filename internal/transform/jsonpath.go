package transform

import (
	"github.com/tidwall/gjson"
)

// JSON is a raw JSON document as returned by a REST provider.
type JSON []byte

// JSONPath extracts values using gjson path syntax, e.g. "items.#.volumeInfo.title".
type JSONPath struct {
	Directive
}

// NewJSONPath creates a JSON-path transformer for the directive.
func NewJSONPath(d Directive) JSONPath {
	return JSONPath{Directive: d}
}

// Transform implements Transformer. Sources other than JSON or gjson.Result are ignored.
func (t JSONPath) Transform(src any, out Fields) Fields {
	var doc gjson.Result
	switch v := src.(type) {
	case JSON:
		if !gjson.ValidBytes(v) {
			return out
		}
		doc = gjson.ParseBytes(v)
	case gjson.Result:
		doc = v
	default:
		return out
	}

	res := doc.Get(t.Path)
	if !res.Exists() {
		return out
	}
	return t.emit(flattenJSON(res, nil), out)
}

func flattenJSON(res gjson.Result, acc []string) []string {
	switch {
	case res.IsArray():
		for _, item := range res.Array() {
			acc = flattenJSON(item, acc)
		}
	case res.Type == gjson.Null:
	default:
		acc = append(acc, res.String())
	}
	return acc
}
