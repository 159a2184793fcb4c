package cache

import "fmt"

// SQL schema for provider response cache tables.
// All cache tables use "cache_key" as the primary key column and carry their
// own expiry so negative entries can live shorter than positive ones.
const tableSchemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_expires_at ON %[1]s(expires_at);
`

// ProviderSources lists the providers with a response cache table.
var ProviderSources = []string{
	"openlibrary",
	"googlebooks",
	"isbndb",
	"bnf",
	"feedbooks",
	"decitre",
}

// ValidCacheTableNames is the whitelist of allowed cache table names.
// Used to prevent SQL injection when interpolating table names.
var ValidCacheTableNames = func() map[string]bool {
	names := make(map[string]bool, len(ProviderSources))
	for _, source := range ProviderSources {
		names[TableName(source)] = true
	}
	return names
}()

// TableName returns the cache table of a provider source.
func TableName(source string) string {
	return source + "_cache"
}

// Schema returns the CREATE statements of a cache table.
func Schema(tableName string) string {
	return fmt.Sprintf(tableSchemaTemplate, tableName)
}
