package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/shelf/internal/query"
)

func TestInitConfig(t *testing.T) {
	origVerbose, origCache, origLabels := Verbose, CacheEnabled, LabelOverrides
	viper.Reset()
	t.Cleanup(func() {
		Verbose, CacheEnabled, LabelOverrides = origVerbose, origCache, origLabels
		viper.Reset()
	})

	viper.Set("labels", map[string]any{"opdsLink": "Catalogue entry"})
	InitConfig()

	assert.True(t, CacheEnabled)
	assert.False(t, Verbose)
	assert.Equal(t, "Catalogue entry", LabelOverrides["opdslink"])

	SetVerbose(true)
	SetCacheEnabled(false)
	assert.True(t, Verbose)
	assert.False(t, CacheEnabled)
}

const providersYAML = `
providers:
  - code: openlibrary
    active: true
  - code: isbndb
    active: true
    parameters:
      api_key: ${SHELF_TEST_ISBNDB_KEY}
  - code: bnf
    active: false
    parameters:
      max_records: 5
`

func TestViperSource(t *testing.T) {
	t.Setenv("SHELF_TEST_ISBNDB_KEY", "secret")

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(providersYAML)))

	configs, err := NewViperSource(v).Configurations()
	require.NoError(t, err)
	require.Len(t, configs, 3)

	assert.Equal(t, query.Configuration{Code: "openlibrary", Active: true, Parameters: map[string]string{}}, configs[0])
	assert.Equal(t, "secret", configs[1].Param("api_key", ""))
	assert.False(t, configs[2].Active)
	assert.Equal(t, "5", configs[2].Param("max_records", ""))
}

func TestViperSourceDefaults(t *testing.T) {
	v := viper.New()
	v.SetDefault("providers", DefaultProviders())

	configs, err := NewViperSource(v).Configurations()
	require.NoError(t, err)

	codes := make([]string, len(configs))
	for i, c := range configs {
		codes[i] = c.Code
	}
	assert.Equal(t, []string{"openlibrary", "googlebooks", "bnf", "feedbooks", "isbndb", "decitre"}, codes)
}

func TestFileSource(t *testing.T) {
	t.Setenv("SHELF_TEST_ISBNDB_KEY", "from-env")
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(providersYAML), 0o644))

	configs, err := FileSource{Path: path}.Configurations()
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, "from-env", configs[1].Param("api_key", ""))
	assert.Equal(t, "5", configs[2].Param("max_records", ""))

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.yaml")}.Configurations()
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("providers: [:"), 0o644))
	_, err = FileSource{Path: bad}.Configurations()
	assert.Error(t, err)
}
