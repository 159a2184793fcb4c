package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/shelf/internal/query"
)

// DefaultProviders is the provider list written to a fresh config.yaml.
// Providers that need credentials start inactive.
func DefaultProviders() []map[string]any {
	return []map[string]any{
		{"code": "openlibrary", "active": true},
		{"code": "googlebooks", "active": true, "parameters": map[string]string{"api_key": "${GOOGLE_BOOKS_API_KEY}"}},
		{"code": "bnf", "active": true, "parameters": map[string]string{"max_records": "10"}},
		{"code": "feedbooks", "active": true, "parameters": map[string]string{"delay": "1000"}},
		{"code": "isbndb", "active": false, "parameters": map[string]string{"api_key": "${ISBNDB_API_KEY}"}},
		{"code": "decitre", "active": false, "parameters": map[string]string{"render": "http", "headless": "true"}},
	}
}

// ViperSource reads provider configurations from the "providers" list of the
// viper configuration. Parameter values may reference environment variables
// as ${NAME}.
type ViperSource struct {
	v *viper.Viper
}

// NewViperSource creates a ViperSource over v, or the global viper when v is nil.
func NewViperSource(v *viper.Viper) ViperSource {
	if v == nil {
		v = viper.GetViper()
	}
	return ViperSource{v: v}
}

// Configurations implements query.ConfigSource.
func (s ViperSource) Configurations() ([]query.Configuration, error) {
	var configs []query.Configuration
	if err := s.v.UnmarshalKey("providers", &configs); err != nil {
		return nil, fmt.Errorf("reading providers from config: %w", err)
	}
	return expandAll(configs), nil
}

// FileSource reads provider configurations from a standalone YAML file of the
// form "providers: [{code, active, parameters}]".
type FileSource struct {
	Path string
}

type providerFile struct {
	Providers []query.Configuration `yaml:"providers"`
}

// Configurations implements query.ConfigSource.
func (s FileSource) Configurations() ([]query.Configuration, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading provider file: %w", err)
	}

	var file providerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing provider file %s: %w", s.Path, err)
	}
	return expandAll(file.Providers), nil
}

func expandAll(configs []query.Configuration) []query.Configuration {
	for i := range configs {
		expanded := make(map[string]string, len(configs[i].Parameters))
		for k, v := range configs[i].Parameters {
			expanded[k] = os.ExpandEnv(v)
		}
		configs[i].Parameters = expanded
	}
	return configs
}
