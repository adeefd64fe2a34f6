package wiring

import (
	"os"
	"strconv"
)

// EnvConfig loads configuration from environment variables, grounded on
// evalgo-org-eve/config/config.go's EnvConfig (GetString/GetInt with
// defaults); only string, int and comma-separated string-slice accessors
// are carried over, not the bool/duration helpers.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a config loader; every key is looked up as
// prefix+key.
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (c *EnvConfig) buildKey(key string) string { return c.prefix + key }

// GetString reads a string env var, or defaultValue if unset.
func (c *EnvConfig) GetString(key, defaultValue string) string {
	if v := os.Getenv(c.buildKey(key)); v != "" {
		return v
	}
	return defaultValue
}

// GetInt reads an int env var, or defaultValue if unset or unparsable.
func (c *EnvConfig) GetInt(key string, defaultValue int) int {
	v := os.Getenv(c.buildKey(key))
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// GetStringSlice reads a comma-separated env var, or defaultValue if
// unset.
func (c *EnvConfig) GetStringSlice(key string, defaultValue []string) []string {
	v := os.Getenv(c.buildKey(key))
	if v == "" {
		return defaultValue
	}
	var result []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				result = append(result, v[start:i])
			}
			start = i + 1
		}
	}
	return result
}
