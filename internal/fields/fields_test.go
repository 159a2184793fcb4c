package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownAndDynamic(t *testing.T) {
	spec := Lookup("author")
	assert.Equal(t, TypeArray, spec.Type)
	assert.Equal(t, Push, spec.Fusion)
	assert.Equal(t, "Authors", spec.Label)

	spec = Lookup("PublicationDate")
	assert.Equal(t, TypeDate, spec.Type)

	spec = Lookup("shelfmark")
	assert.Equal(t, TypeDynamic, spec.Type)
	assert.Equal(t, Push, spec.Fusion)
	assert.Equal(t, "shelfmark", spec.Label)
}

func TestLabelOverrides(t *testing.T) {
	t.Cleanup(func() { SetLabelOverrides(nil) })

	SetLabelOverrides(map[string]string{"opdslink": "Catalogue entry", "shelfmark": "Cote", "title": "  "})

	assert.Equal(t, "Catalogue entry", Lookup("opdsLink").Label)
	assert.Equal(t, "Cote", Lookup("shelfmark").Label)
	assert.Equal(t, TypeDynamic, Lookup("shelfmark").Type)
	assert.Equal(t, "Title", Lookup("title").Label, "blank override is ignored")
}

func TestShapeOrderAndEmpties(t *testing.T) {
	published := time.Date(1965, 1, 1, 0, 0, 0, 0, time.UTC)
	shaped := Shape(map[string]any{
		"zeta":            "z",
		"genre":           []string{},
		"title":           "Dune",
		"alpha":           []string{"a"},
		"publicationDate": published,
		"publisher":       "",
		"author":          []string{"Frank Herbert"},
		"missing":         nil,
	})

	require.Len(t, shaped, 5)
	keys := make([]string, len(shaped))
	for i, s := range shaped {
		keys[i] = s.Key
	}
	assert.Equal(t, []string{"title", "author", "publicationDate", "alpha", "zeta"}, keys)

	assert.Equal(t, Shaped{Key: "title", Label: "Title", Value: "Dune", Type: TypeText, Fusion: Replace}, shaped[0])
	assert.Equal(t, TypeDynamic, shaped[3].Type)
	assert.Equal(t, published, shaped[2].Value)
}

func TestShapeEmptyInput(t *testing.T) {
	assert.Empty(t, Shape(nil))
	assert.Empty(t, Shape(map[string]any{"title": " ", "genre": []any{}}))
}

func TestCatalogIsCopy(t *testing.T) {
	c := Catalog()
	c[0].Label = "changed"
	assert.Equal(t, "Title", Lookup("title").Label)
}
