package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variable names before they are
// mapped onto configuration keys (e.g. MEMCORE_STORE_DATA_DIR -> store.data_dir).
const envPrefix = "MEMCORE_"

// Load builds a Config from defaults, an optional YAML file, and
// environment variables, in that order of increasing precedence.
//
// configPath may be empty, in which case only defaults and the
// environment are consulted.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envTransformer maps MEMCORE_SECTION_FIELD_NAME to section.field_name.
//
// Examples:
//
//	MEMCORE_STORE_DATA_DIR     -> store.data_dir
//	MEMCORE_VECTOR_DIMENSION   -> vector.dimension
//	MEMCORE_QUEUE_BATCH_SIZE   -> queue.batch_size
func envTransformer(s string) string {
	trimmed := strings.TrimPrefix(s, envPrefix)
	lower := strings.ToLower(trimmed)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
