package datastore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelf/internal/fields"
	"github.com/lepinkainen/shelf/internal/query"
	"github.com/lepinkainen/shelf/internal/testutil"
	"github.com/lepinkainen/shelf/internal/transform"
)

func newTestSink(t *testing.T) (*Sink, *SQLiteStore) {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "shelf.db"))
	require.NoError(t, store.Connect())
	t.Cleanup(func() { _ = store.Close() })

	sink := NewSink(store)
	n := 0
	sink.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	sink.now = func() time.Time { return time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, sink.Init())
	require.NoError(t, sink.Init(), "init is idempotent")
	return sink, store
}

func TestSinkStoresShapedResults(t *testing.T) {
	sink, store := newTestSink(t)
	terms := query.Single("isbn", "9780441013593")

	batch := sink.Begin(terms)
	assert.Equal(t, "id-1", batch.SearchID())
	require.NoError(t, batch.AddResults("openlibrary", []*query.Result{
		query.NewResult(terms, nil, transform.Fields{"title": "Dune", "author": []string{"Frank Herbert"}, "pages": 412}),
		query.NewResult(terms, nil, transform.Fields{"title": "Dune Messiah"}),
	}))
	require.NoError(t, batch.Add(MergedProvider, 0, fields.Shape(map[string]any{"title": "Dune"})))
	require.NoError(t, batch.Commit())

	var termsCol, created string
	require.NoError(t, store.db.QueryRow("SELECT terms, created_at FROM searches WHERE id = 'id-1'").Scan(&termsCol, &created))
	assert.Equal(t, "isbn=9780441013593", termsCol)
	assert.Equal(t, "2026-10-16T12:00:00Z", created)

	var results int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM results WHERE search_id = 'id-1'").Scan(&results))
	assert.Equal(t, 3, results)

	var encoded string
	require.NoError(t, store.db.QueryRow("SELECT fields FROM results WHERE provider = 'openlibrary' AND position = 0").Scan(&encoded))
	var shaped []fields.Shaped
	require.NoError(t, json.Unmarshal([]byte(encoded), &shaped))
	require.Len(t, shaped, 3)
	assert.Equal(t, "title", shaped[0].Key)

	var label, typ, fusion, value string
	require.NoError(t, store.db.QueryRow(
		"SELECT label, type, fusion, value FROM result_fields WHERE key = 'author'",
	).Scan(&label, &typ, &fusion, &value))
	assert.Equal(t, "Authors", label)
	assert.Equal(t, "array", typ)
	assert.Equal(t, "push", fusion)
	assert.JSONEq(t, `["Frank Herbert"]`, value)
}

func TestFromConfig(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	testutil.SetupDatastore(t, env)

	store, err := FromConfig()
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)

	testutil.SetViperValue(t, "datastore.mode", "remote")
	testutil.SetViperValue(t, "datastore.remote_url", "https://datasette.example.org")
	store, err = FromConfig()
	require.NoError(t, err)
	assert.IsType(t, &DatasetteClient{}, store)

	testutil.SetViperValue(t, "datastore.mode", "carrier-pigeon")
	_, err = FromConfig()
	assert.Error(t, err)
}
