// Package config holds global settings and the viper/YAML backed provider
// configuration sources.
package config

import (
	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// Verbose enables debug logging
	Verbose bool
	// CacheEnabled controls whether provider responses are cached in SQLite
	CacheEnabled bool
	// LabelOverrides maps field keys to display labels
	LabelOverrides map[string]string
)

// InitConfig initializes the global configuration
func InitConfig() {
	viper.SetDefault("cache.enabled", true)

	Verbose = viper.GetBool("verbose")
	CacheEnabled = viper.GetBool("cache.enabled")
	LabelOverrides = viper.GetStringMapString("labels")
}

// SetVerbose sets the Verbose flag
func SetVerbose(verbose bool) {
	Verbose = verbose
}

// SetCacheEnabled sets the CacheEnabled flag
func SetCacheEnabled(enabled bool) {
	CacheEnabled = enabled
}
