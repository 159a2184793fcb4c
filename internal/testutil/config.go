package testutil

import (
	"maps"
	"testing"

	"github.com/lepinkainen/shelf/internal/config"
	"github.com/spf13/viper"
)

// ConfigState holds the state of the config package variables.
type ConfigState struct {
	Verbose        bool
	CacheEnabled   bool
	LabelOverrides map[string]string
}

// SaveConfigState captures the current state of config package variables.
func SaveConfigState() ConfigState {
	return ConfigState{
		Verbose:        config.Verbose,
		CacheEnabled:   config.CacheEnabled,
		LabelOverrides: maps.Clone(config.LabelOverrides),
	}
}

// RestoreConfigState restores the config package variables to a saved state.
func RestoreConfigState(state ConfigState) {
	config.Verbose = state.Verbose
	config.CacheEnabled = state.CacheEnabled
	config.LabelOverrides = state.LabelOverrides
}

// ResetConfig saves the current config state and schedules restoration
// when the test completes. It also resets viper and disables response caching.
func ResetConfig(t *testing.T) {
	t.Helper()

	state := SaveConfigState()
	viper.Reset()
	config.CacheEnabled = false
	config.LabelOverrides = nil

	t.Cleanup(func() {
		RestoreConfigState(state)
		viper.Reset()
	})
}

// SetViperValue sets a viper configuration value and schedules cleanup.
func SetViperValue(t *testing.T, key string, value any) {
	t.Helper()

	oldValue := viper.Get(key)
	hadValue := viper.IsSet(key)

	viper.Set(key, value)

	t.Cleanup(func() {
		if hadValue {
			viper.Set(key, oldValue)
		}
		// viper has no Unset, so a previously unset key keeps the test value
		// until the next viper.Reset.
	})
}

// SetupTestCache configures viper for test caching with a temporary directory
// and enables response caching for the duration of the test.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	cacheDir := env.Path("cache")
	env.MkdirAll("cache")

	SetViperValue(t, "cache.dbfile", env.Path("cache", "test-cache.db"))
	SetViperValue(t, "cache.ttl", "24h")

	enabled := config.CacheEnabled
	config.CacheEnabled = true
	t.Cleanup(func() { config.CacheEnabled = enabled })

	return cacheDir
}

// SetupDatastore points the result sink at a database file inside env.
// Returns the database path.
func SetupDatastore(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("shelf.db")
	SetViperValue(t, "datastore.dbfile", dbPath)
	return dbPath
}
