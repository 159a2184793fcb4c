package cache

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelf/internal/testutil"
)

type TestData struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func setupTestCache(t *testing.T) *CacheDB {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	// Register test_cache as a valid table name for tests
	ValidCacheTableNames["test_cache"] = true
	t.Cleanup(func() {
		delete(ValidCacheTableNames, "test_cache")
	})

	env := testutil.NewTestEnv(t)
	cache, err := NewCacheDB(filepath.Join(env.RootDir(), "test_cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	require.NoError(t, cache.CreateTable("test_cache"))
	viper.Set("cache.ttl", "1h")

	return cache
}

func withGlobalCache(t *testing.T, cache *CacheDB) {
	t.Helper()

	oldCache := globalCache
	globalCache = cache
	globalCacheOnce = sync.Once{}
	globalCacheOnce.Do(func() {})

	t.Cleanup(func() {
		globalCache = oldCache
		globalCacheOnce = sync.Once{}
	})
}

func setExpiresAt(t *testing.T, cache *CacheDB, tableName, key string, at time.Time) {
	t.Helper()

	_, err := cache.db.Exec("UPDATE "+tableName+" SET expires_at = ? WHERE cache_key = ?", at.UTC(), key)
	require.NoError(t, err)
}

func TestGetOrFetch_CacheHit(t *testing.T) {
	cache := setupTestCache(t)
	require.NoError(t, cache.Set("test_cache", "test-key", `{"id":1,"name":"Test"}`, time.Hour))
	withGlobalCache(t, cache)

	fetchCalled := false
	result, fromCache, err := GetOrFetch("test_cache", "test-key", func() (TestData, error) {
		fetchCalled = true
		return TestData{}, nil
	})

	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.False(t, fetchCalled)
	assert.Equal(t, TestData{ID: 1, Name: "Test"}, result)
}

func TestGetOrFetch_CacheMiss(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	calls := 0
	fetch := func() (TestData, error) {
		calls++
		return TestData{ID: 42, Name: "Fetched"}, nil
	}

	result, fromCache, err := GetOrFetch("test_cache", "miss", fetch)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 42, result.ID)
	assert.True(t, cache.CacheExists("test_cache", "miss"))

	result, fromCache, err = GetOrFetch("test_cache", "miss", fetch)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, "Fetched", result.Name)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetch_RespectsExpiry(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	calls := 0
	fetch := func() (TestData, error) {
		calls++
		return TestData{ID: calls}, nil
	}

	_, _, err := GetOrFetch("test_cache", "expiring", fetch)
	require.NoError(t, err)
	setExpiresAt(t, cache, "test_cache", "expiring", time.Now().Add(-time.Minute))

	result, fromCache, err := GetOrFetch("test_cache", "expiring", fetch)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, result.ID)
}

func TestGetOrFetch_FetchError(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	boom := errors.New("upstream unavailable")
	_, fromCache, err := GetOrFetch("test_cache", "err", func() (TestData, error) {
		return TestData{}, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, fromCache)
	assert.False(t, cache.CacheExists("test_cache", "err"))
}

func TestGetOrFetchWithTTL_NegativeCaching(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	type cachedBook struct {
		Title    string
		NotFound bool
	}
	selector := SelectNegativeCacheTTL(func(r cachedBook) bool { return r.NotFound })

	_, _, err := GetOrFetchWithTTL("test_cache", "missing-book", func() (cachedBook, error) {
		return cachedBook{NotFound: true}, nil
	}, selector)
	require.NoError(t, err)

	_, _, err = GetOrFetchWithTTL("test_cache", "found-book", func() (cachedBook, error) {
		return cachedBook{Title: "Dune"}, nil
	}, selector)
	require.NoError(t, err)

	var negative, positive time.Time
	require.NoError(t, cache.db.QueryRow("SELECT expires_at FROM test_cache WHERE cache_key = ?", "missing-book").Scan(&negative))
	require.NoError(t, cache.db.QueryRow("SELECT expires_at FROM test_cache WHERE cache_key = ?", "found-book").Scan(&positive))

	assert.WithinDuration(t, time.Now().Add(NegativeCacheTTL), negative, time.Minute)
	assert.WithinDuration(t, time.Now().Add(time.Hour), positive, time.Minute)

	result, fromCache, err := GetOrFetchWithTTL("test_cache", "missing-book", func() (cachedBook, error) {
		t.Fatal("negative entry should be served from cache")
		return cachedBook{}, nil
	}, selector)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.True(t, result.NotFound)
}

func TestSelectNegativeCacheTTL(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	selector := SelectNegativeCacheTTL(func(found bool) bool { return !found })
	assert.Equal(t, NegativeCacheTTL, selector(false))
	assert.Equal(t, DefaultCacheTTL, selector(true))

	viper.Set("cache.ttl", "bogus")
	assert.Equal(t, DefaultCacheTTL, selector(true))
}

func TestCacheDB_ClearExpired(t *testing.T) {
	cache := setupTestCache(t)

	require.NoError(t, cache.Set("test_cache", "old", "{}", time.Hour))
	require.NoError(t, cache.Set("test_cache", "fresh", "{}", time.Hour))
	setExpiresAt(t, cache, "test_cache", "old", time.Now().Add(-time.Hour))

	rows, err := cache.ClearExpired("test_cache")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	assert.False(t, cache.CacheExists("test_cache", "old"))
	assert.True(t, cache.CacheExists("test_cache", "fresh"))
}

func TestCacheDB_InvalidateSource(t *testing.T) {
	cache := setupTestCache(t)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set("test_cache", key, "{}", time.Hour))
	}

	rows, err := cache.InvalidateSource("test_cache")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)

	rows, err = cache.InvalidateSource("test_cache")
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestCacheDB_InvalidTable(t *testing.T) {
	cache := setupTestCache(t)

	_, err := cache.InvalidateSource("books; DROP TABLE test_cache")
	assert.ErrorContains(t, err, "invalid cache table name")

	_, _, err = cache.Get("nope_cache", "k")
	assert.Error(t, err)
	assert.Error(t, cache.Set("nope_cache", "k", "{}", time.Hour))
	assert.Error(t, cache.CreateTable("nope_cache"))
	assert.False(t, cache.CacheExists("nope_cache", "k"))
}

func TestProviderTables(t *testing.T) {
	for _, source := range ProviderSources {
		assert.True(t, ValidCacheTableNames[TableName(source)], source)
	}
	assert.Contains(t, Schema("bnf_cache"), "CREATE TABLE IF NOT EXISTS bnf_cache")
}

func TestGetGlobalCache_CreatesProviderTables(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	env := testutil.NewTestEnv(t)
	viper.Set("cache.dbfile", env.Path("global.db"))

	require.NoError(t, ResetGlobalCache())
	t.Cleanup(func() { _ = ResetGlobalCache() })

	cache, err := GetGlobalCache()
	require.NoError(t, err)
	assert.Equal(t, env.Path("global.db"), cache.Path())

	require.NoError(t, cache.Set("openlibrary_cache", "isbn:1", "{}", time.Hour))
	assert.True(t, cache.CacheExists("openlibrary_cache", "isbn:1"))
}

func TestInvalidateCacheCmd(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	env := testutil.NewTestEnv(t)
	viper.Set("cache.dbfile", env.Path("cmd.db"))

	require.NoError(t, ResetGlobalCache())
	t.Cleanup(func() { _ = ResetGlobalCache() })

	cache, err := GetGlobalCache()
	require.NoError(t, err)
	require.NoError(t, cache.Set("isbndb_cache", "k", "{}", time.Hour))

	require.NoError(t, (&InvalidateCacheCmd{Source: "isbndb"}).Run())
	assert.False(t, cache.CacheExists("isbndb_cache", "k"))

	assert.ErrorContains(t, (&InvalidateCacheCmd{Source: "steam"}).Run(), "invalid cache source")
}
