package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/shelf/internal/errors"
)

// Configuration is the persisted setup of one provider: whether it is active
// and the parameters (API keys, endpoints) it is constructed with.
type Configuration struct {
	Code       string            `yaml:"code" mapstructure:"code"`
	Active     bool              `yaml:"active" mapstructure:"active"`
	Parameters map[string]string `yaml:"parameters" mapstructure:"parameters"`
}

// Param returns a parameter value, or def when it is unset or blank.
func (c Configuration) Param(key, def string) string {
	if v := strings.TrimSpace(c.Parameters[key]); v != "" {
		return v
	}
	return def
}

// Require returns a parameter value or a MissingParameterError.
func (c Configuration) Require(key string) (string, error) {
	v := c.Param(key, "")
	if v == "" {
		return "", errors.NewMissingParameterError(c.Code, key)
	}
	return v, nil
}

// Duration parses a duration parameter. Bare integers are milliseconds.
func (c Configuration) Duration(key string, def time.Duration) (time.Duration, error) {
	v := c.Param(key, "")
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("provider %s parameter %s: %w", c.Code, key, err)
	}
	return d, nil
}

// Bool reports whether a parameter is set to a true-ish value.
func (c Configuration) Bool(key string) bool {
	switch strings.ToLower(c.Param(key, "")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ConfigSource yields the provider configurations known to the application.
type ConfigSource interface {
	Configurations() ([]Configuration, error)
}

// StaticSource is a fixed in-memory ConfigSource.
type StaticSource []Configuration

// Configurations implements ConfigSource.
func (s StaticSource) Configurations() ([]Configuration, error) {
	return append([]Configuration(nil), s...), nil
}
