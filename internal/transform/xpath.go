package transform

import (
	"log/slog"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// XPath extracts the text of every node matched by an XPath expression.
// Attribute selections (…/@href) yield the attribute value.
type XPath struct {
	Directive
	expr *xpath.Expr
}

// NewXPath compiles the directive's path. An invalid expression produces a
// transformer that never matches.
func NewXPath(d Directive) XPath {
	expr, err := xpath.Compile(d.Path)
	if err != nil {
		slog.Debug("Invalid XPath expression", "path", d.Path, "field", d.Field, "error", err)
		expr = nil
	}
	return XPath{Directive: d, expr: expr}
}

// Transform implements Transformer. Sources other than *xmlquery.Node are ignored.
func (t XPath) Transform(src any, out Fields) Fields {
	node, ok := src.(*xmlquery.Node)
	if !ok || node == nil || t.expr == nil {
		return out
	}

	nodes := xmlquery.QuerySelectorAll(node, t.expr)
	if len(nodes) == 0 {
		return out
	}

	values := make([]string, 0, len(nodes))
	for _, n := range nodes {
		values = append(values, n.InnerText())
	}
	return t.emit(values, out)
}
