// Package datastore persists search results into a local SQLite database or
// a remote Datasette instance.
package datastore

import (
	"fmt"

	"github.com/spf13/viper"
)

// Database is the logical database name used for remote inserts.
const Database = "shelf"

// Store defines the interface for result storage backends
type Store interface {
	// Connect establishes a connection to the data store
	Connect() error

	// CreateTable creates a new table with the given schema if it doesn't exist
	CreateTable(schema string) error

	// BatchInsert inserts multiple records into the specified table
	BatchInsert(database string, table string, records []map[string]any) error

	// Close closes the connection to the data store
	Close() error
}

// FromConfig returns the store selected by datastore.mode: "local" writes to
// datastore.dbfile, "remote" posts to datastore.remote_url.
func FromConfig() (Store, error) {
	switch mode := viper.GetString("datastore.mode"); mode {
	case "", "local":
		return NewSQLiteStore(viper.GetString("datastore.dbfile")), nil
	case "remote":
		return NewDatasetteClient(
			viper.GetString("datastore.remote_url"),
			viper.GetString("datastore.api_token"),
		), nil
	default:
		return nil, fmt.Errorf("invalid datastore mode: %s", mode)
	}
}
