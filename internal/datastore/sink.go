package datastore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lepinkainen/shelf/internal/fields"
	"github.com/lepinkainen/shelf/internal/query"
)

const (
	searchesTable = "searches"
	resultsTable  = "results"
	fieldsTable   = "result_fields"

	// MergedProvider is the provider column of a fused record.
	MergedProvider = "merged"
)

var sinkSchemas = []string{
	`CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		terms TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		search_id TEXT NOT NULL REFERENCES searches(id),
		provider TEXT NOT NULL,
		position INTEGER NOT NULL,
		fields TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS result_fields (
		result_id TEXT NOT NULL REFERENCES results(id),
		key TEXT NOT NULL,
		label TEXT NOT NULL,
		type TEXT NOT NULL,
		fusion TEXT NOT NULL,
		value TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_search ON results(search_id)`,
}

// Sink writes shaped search results into a Store.
type Sink struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewSink creates a Sink on top of a connected store.
func NewSink(store Store) *Sink {
	return &Sink{store: store, now: time.Now, newID: uuid.NewString}
}

// Init creates the result tables.
func (s *Sink) Init() error {
	for _, schema := range sinkSchemas {
		if err := s.store.CreateTable(schema); err != nil {
			return err
		}
	}
	return nil
}

// Batch accumulates the rows of one search before they are written.
type Batch struct {
	sink     *Sink
	searchID string
	searches []map[string]any
	results  []map[string]any
	fields   []map[string]any
}

// Begin starts a batch for a search with the given terms.
func (s *Sink) Begin(terms query.Terms) *Batch {
	id := s.newID()
	return &Batch{
		sink:     s,
		searchID: id,
		searches: []map[string]any{{
			"id":         id,
			"terms":      terms.String(),
			"created_at": s.now().UTC().Format(time.RFC3339),
		}},
	}
}

// SearchID returns the id the batch's search row is stored under.
func (b *Batch) SearchID() string {
	return b.searchID
}

// Add records the shaped fields of one result.
func (b *Batch) Add(provider string, position int, shaped []fields.Shaped) error {
	encoded, err := json.Marshal(shaped)
	if err != nil {
		return fmt.Errorf("encoding %s result: %w", provider, err)
	}

	resultID := b.sink.newID()
	b.results = append(b.results, map[string]any{
		"id":        resultID,
		"search_id": b.searchID,
		"provider":  provider,
		"position":  position,
		"fields":    string(encoded),
	})

	for _, f := range shaped {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return fmt.Errorf("encoding %s field %s: %w", provider, f.Key, err)
		}
		b.fields = append(b.fields, map[string]any{
			"result_id": resultID,
			"key":       f.Key,
			"label":     f.Label,
			"type":      string(f.Type),
			"fusion":    string(f.Fusion),
			"value":     string(value),
		})
	}
	return nil
}

// AddResults records every result of a provider in order.
func (b *Batch) AddResults(provider string, results []*query.Result) error {
	for i, r := range results {
		if err := b.Add(provider, i, fields.Shape(r.Fields())); err != nil {
			return err
		}
	}
	return nil
}

// Commit writes the batch to the store.
func (b *Batch) Commit() error {
	for _, t := range []struct {
		table   string
		records []map[string]any
	}{
		{searchesTable, b.searches},
		{resultsTable, b.results},
		{fieldsTable, b.fields},
	} {
		if err := b.sink.store.BatchInsert(Database, t.table, t.records); err != nil {
			return err
		}
	}
	return nil
}
