package providers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelf/internal/query"
)

const openLibraryResponse = `{
  "numFound": 2,
  "docs": [
    {
      "key": "/works/OL893415W",
      "title": "Dune",
      "author_name": ["Frank Herbert"],
      "publisher": ["Ace Books", "Chilton"],
      "isbn": ["9780441013593", "0441013597"],
      "language": ["eng", "fre"],
      "subject": ["Science fiction", "Arrakis"],
      "number_of_pages_median": 412,
      "first_publish_year": 1965,
      "cover_i": 11481354
    },
    {"title": "", "author_name": null},
    {"key": "/works/OL1W", "title": "Dune Messiah"}
  ]
}`

func TestOpenLibrarySearchByISBN(t *testing.T) {
	srv := newRecorder(t, http.StatusOK, "application/json", openLibraryResponse)
	p, err := NewOpenLibrary(cfg(OpenLibraryCode, map[string]string{"base_url": srv.URL}))
	require.NoError(t, err)

	results, err := p.Search(context.Background(), "ISBN", "978-0-441-01359-3")
	require.NoError(t, err)
	require.Len(t, results, 2)

	req := srv.last(t)
	assert.Equal(t, "/search.json", req.URL.Path)
	assert.Equal(t, "isbn:9780441013593", req.URL.Query().Get("q"))
	assert.Equal(t, "10", req.URL.Query().Get("limit"))

	f := results[0].Fields()
	assert.Equal(t, "Dune", f["title"])
	assert.Equal(t, []string{"Frank Herbert"}, f["author"])
	assert.Equal(t, "Ace Books", f["publisher"])
	assert.Equal(t, "9780441013593", f["isbn"])
	assert.Equal(t, []string{"eng", "fre"}, f["language"])
	assert.Equal(t, 412, f["pages"])
	assert.Equal(t, time.Date(1965, 1, 1, 0, 0, 0, 0, time.UTC), f["publicationDate"])
	assert.Equal(t, "https://covers.openlibrary.org/b/id/11481354-L.jpg", f["cover"])
	assert.Equal(t, srv.URL+"/works/OL893415W", f["link"])

	assert.Equal(t, "Dune Messiah", results[1].Fields()["title"])
}

func TestOpenLibraryCompositeIsNative(t *testing.T) {
	srv := newRecorder(t, http.StatusOK, "application/json", openLibraryResponse)
	p, err := NewOpenLibrary(cfg(OpenLibraryCode, map[string]string{"base_url": srv.URL}))
	require.NoError(t, err)

	terms := query.NewTerms(
		query.Term{Field: "title", Value: "Dune"},
		query.Term{Field: "author", Value: "Frank Herbert"},
		query.Term{Field: "genre", Value: "sf"},
	)
	results, err := p.SearchComposite(context.Background(), terms)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, 1, srv.count())
	q := srv.last(t).URL.Query()
	assert.Equal(t, "Dune", q.Get("title"))
	assert.Equal(t, "Frank Herbert", q.Get("author"))
	assert.Empty(t, q.Get("genre"))
	assert.Equal(t, terms, results[0].Terms())
}

func TestOpenLibraryInvalidJSON(t *testing.T) {
	srv := newRecorder(t, http.StatusOK, "application/json", `{"docs": [`)
	p, err := NewOpenLibrary(cfg(OpenLibraryCode, map[string]string{"base_url": srv.URL}))
	require.NoError(t, err)

	_, err = p.Search(context.Background(), "title", "Dune")
	assert.Error(t, err)
}

const googleBooksResponse = `{
  "totalItems": 1,
  "items": [{
    "volumeInfo": {
      "title": "Dune",
      "subtitle": "Deluxe Edition",
      "authors": ["Frank Herbert"],
      "publisher": "Penguin",
      "publishedDate": "2019-10-01",
      "description": "Set on the desert planet Arrakis.",
      "industryIdentifiers": [
        {"type": "ISBN_10", "identifier": "0593099324"},
        {"type": "ISBN_13", "identifier": "9780593099322"}
      ],
      "pageCount": 688,
      "printType": "BOOK",
      "categories": ["Fiction"],
      "imageLinks": {"thumbnail": "http://books.google.com/books/content?id=B1hSG45JCX4C&zoom=1"},
      "language": "en",
      "infoLink": "http://books.google.com/books?id=B1hSG45JCX4C"
    }
  }]
}`

func TestGoogleBooksComposite(t *testing.T) {
	srv := newRecorder(t, http.StatusOK, "application/json", googleBooksResponse)
	p, err := NewGoogleBooks(cfg(GoogleBooksCode, map[string]string{"base_url": srv.URL, "api_key": "secret"}))
	require.NoError(t, err)

	terms := query.NewTerms(
		query.Term{Field: "title", Value: "Dune"},
		query.Term{Field: "author", Value: "Herbert"},
	)
	results, err := p.SearchComposite(context.Background(), terms)
	require.NoError(t, err)
	require.Len(t, results, 1)

	req := srv.last(t)
	assert.Equal(t, "/volumes", req.URL.Path)
	assert.Equal(t, "intitle:Dune inauthor:Herbert", req.URL.Query().Get("q"))
	assert.Equal(t, "secret", req.URL.Query().Get("key"))

	f := results[0].Fields()
	assert.Equal(t, "Dune", f["title"])
	assert.Equal(t, "Deluxe Edition", f["subtitle"])
	assert.Equal(t, "9780593099322", f["isbn"])
	assert.Equal(t, 688, f["pages"])
	assert.Equal(t, []string{"Fiction"}, f["genre"])
	assert.Equal(t, "BOOK", f["format"])
	assert.Equal(t, time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC), f["publicationDate"])
	assert.Equal(t, "http://books.google.com/books/content?id=B1hSG45JCX4C&zoom=0", f["cover"])
}

func TestGoogleBooksWithoutKey(t *testing.T) {
	srv := newRecorder(t, http.StatusOK, "application/json", `{"totalItems": 0}`)
	p, err := NewGoogleBooks(cfg(GoogleBooksCode, map[string]string{"base_url": srv.URL}))
	require.NoError(t, err)

	results, err := p.Search(context.Background(), "ean", "978-0593099322")
	require.NoError(t, err)
	assert.Empty(t, results)

	q := srv.last(t).URL.Query()
	assert.Equal(t, "isbn:9780593099322", q.Get("q"))
	assert.False(t, q.Has("key"))
}

const isbndbResponse = `{
  "book": {
    "title": "Dune",
    "isbn13": "9780441013593",
    "authors": ["Herbert, Frank"],
    "publisher": "Ace",
    "language": "en",
    "date_published": "2005-08-02",
    "binding": "Paperback",
    "pages": 528,
    "overview": "Short overview.",
    "synopsis": "Long synopsis.",
    "image_original": "https://images.isbndb.com/covers/35/93/9780441013593.jpg",
    "subjects": ["Subjects", "Science Fiction"]
  }
}`

func TestISBNdbSearch(t *testing.T) {
	srv := newRecorder(t, http.StatusOK, "application/json", isbndbResponse)
	p, err := NewISBNdb(cfg(ISBNdbCode, map[string]string{"base_url": srv.URL, "api_key": "secret"}))
	require.NoError(t, err)

	results, err := p.Search(context.Background(), "isbn", "978-0441013593")
	require.NoError(t, err)
	require.Len(t, results, 1)

	req := srv.last(t)
	assert.Equal(t, "/book/9780441013593", req.URL.Path)
	assert.Equal(t, "secret", req.Header.Get("Authorization"))

	f := results[0].Fields()
	assert.Equal(t, "Dune", f["title"])
	assert.Equal(t, []string{"Herbert, Frank"}, f["author"])
	assert.Equal(t, "Long synopsis.", f["description"])
	assert.Equal(t, []string{"Science Fiction"}, f["genre"])
	assert.Equal(t, 528, f["pages"])
	assert.Equal(t, "Paperback", f["format"])
}

func TestISBNdbCompositeUsesFirstIdentifier(t *testing.T) {
	srv := newRecorder(t, http.StatusOK, "application/json", isbndbResponse)
	p, err := NewISBNdb(cfg(ISBNdbCode, map[string]string{"base_url": srv.URL, "api_key": "secret"}))
	require.NoError(t, err)

	terms := query.NewTerms(
		query.Term{Field: "title", Value: "Dune"},
		query.Term{Field: "ean", Value: "9780441013593"},
		query.Term{Field: "isbn", Value: "0441013597"},
	)
	results, err := p.SearchComposite(context.Background(), terms)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 1, srv.count())
	assert.Equal(t, "/book/9780441013593", srv.last(t).URL.Path)
}

func TestISBNdbRequiresKey(t *testing.T) {
	_, err := NewISBNdb(cfg(ISBNdbCode, map[string]string{"api_key": "  "}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}
