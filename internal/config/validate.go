package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration values that cannot be repaired by normalize.
func (c *Config) Validate() error {
	var problems []string

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level: unsupported value %q", c.Logging.Level))
	}

	switch c.Embeddings.Provider {
	case "local":
	case "openai":
		if c.Embeddings.APIKey == "" {
			problems = append(problems, "embeddings.api_key: required when embeddings.provider is \"openai\"")
		}
	default:
		problems = append(problems, fmt.Sprintf("embeddings.provider: unsupported value %q", c.Embeddings.Provider))
	}

	if !strings.Contains(c.Paths.APIBind, ":") {
		problems = append(problems, fmt.Sprintf("paths.api_bind: %q is not a host:port address", c.Paths.APIBind))
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
