package cache

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source  string `arg:"" help:"Provider whose response cache is cleared (openlibrary, googlebooks, isbndb, bnf, feedbooks, decitre)" required:""`
	Expired bool   `help:"Only remove expired entries"`
}

func (i *InvalidateCacheCmd) Run() error {
	cacheDB := viper.GetString("cache.dbfile")

	slog.Info("Invalidating cache", "source", i.Source, "database", cacheDB)

	if !slices.Contains(ProviderSources, i.Source) {
		return fmt.Errorf("invalid cache source '%s'; valid sources are: %s", i.Source, strings.Join(ProviderSources, ", "))
	}

	cacheInstance, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	tableName := TableName(i.Source)
	var rowsDeleted int64
	if i.Expired {
		rowsDeleted, err = cacheInstance.ClearExpired(tableName)
	} else {
		rowsDeleted, err = cacheInstance.InvalidateSource(tableName)
	}
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	slog.Info("Cache invalidated", "source", i.Source, "rows_deleted", rowsDeleted)
	return nil
}
