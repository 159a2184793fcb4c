package datastore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetteClient_BatchInsert_Success(t *testing.T) {
	var got struct {
		Rows []map[string]any `json:"rows"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/-/insert/shelf/results", r.URL.Path)
		assert.Equal(t, "Bearer testtoken", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := NewDatasetteClient(ts.URL, "testtoken")
	require.NoError(t, client.Connect())

	records := []map[string]any{{"provider": "bnf"}}
	require.NoError(t, client.BatchInsert(Database, "results", records))
	assert.Equal(t, records, got.Rows)
}

func TestDatasetteClient_BatchInsert_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "forbidden"})
	}))
	defer ts.Close()

	client := NewDatasetteClient(ts.URL, "testtoken")
	require.NoError(t, client.Connect())

	err := client.BatchInsert(Database, "results", []map[string]any{{"foo": "bar"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestDatasetteClient_ConnectInvalidURL(t *testing.T) {
	assert.Error(t, NewDatasetteClient("not a url", "").Connect())
}
