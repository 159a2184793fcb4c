package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelf/internal/transform"
)

func TestNewTerms(t *testing.T) {
	terms := NewTerms(
		Term{Field: "ISBN", Value: " 9780141439518 "},
		Term{Field: "title", Value: "Pride"},
		Term{Field: "isbn", Value: "9780141439519"},
		Term{Field: "author", Value: ""},
	)

	require.Equal(t, 2, terms.Len())
	assert.Equal(t, []string{"isbn", "title"}, terms.Fields())
	assert.Equal(t, Term{Field: "isbn", Value: "9780141439519"}, terms.At(0))

	v, ok := terms.Get("Title")
	assert.True(t, ok)
	assert.Equal(t, "Pride", v)

	_, ok = terms.Get("author")
	assert.False(t, ok)

	assert.Equal(t, "isbn=9780141439519 title=Pride", terms.String())
}

func TestParseTerms(t *testing.T) {
	terms, err := ParseTerms([]string{"title=Dune", "author=Frank Herbert"})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "author"}, terms.Fields())

	_, err = ParseTerms([]string{"Dune"})
	assert.Error(t, err)

	_, err = ParseTerms([]string{"=Dune"})
	assert.Error(t, err)
}

func TestTermsFilter(t *testing.T) {
	terms := NewTerms(Term{"title", "Dune"}, Term{"isbn", "1"}, Term{"ean", "2"})
	filtered := terms.Filter(func(f string) bool { return f != "title" })
	assert.Equal(t, []string{"isbn", "ean"}, filtered.Fields())
	assert.Equal(t, 3, terms.Len())
}

func TestNewResultDropsEmpties(t *testing.T) {
	fields := transform.Fields{
		"title":  "Dune",
		"blank":  "",
		"none":   nil,
		"list":   []string{},
		"author": []string{"Frank Herbert"},
		"pages":  0,
	}
	r := NewResult(Single("isbn", "1"), "raw", fields)

	assert.Equal(t, transform.Fields{"title": "Dune", "author": []string{"Frank Herbert"}, "pages": 0}, r.Fields())
	assert.Equal(t, "raw", r.Raw())
	assert.Equal(t, []string{"isbn"}, r.Terms().Fields())

	// the envelope owns its data
	fields["title"] = "Changed"
	fields["author"].([]string)[0] = "Someone"
	got := r.Fields()
	got["title"] = "Mutated"

	title, _ := r.Get("title")
	assert.Equal(t, "Dune", title)
	author, _ := r.Get("author")
	assert.Equal(t, []string{"Frank Herbert"}, author)
}

func TestFieldsWithEmpties(t *testing.T) {
	r := NewResult(Terms{}, nil, transform.Fields{"title": "Dune"})
	out := r.FieldsWithEmpties("title", "isbn")
	assert.Equal(t, transform.Fields{"title": "Dune", "isbn": ""}, out)
	assert.Equal(t, 1, r.Len())
}
