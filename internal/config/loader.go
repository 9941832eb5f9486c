package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// and parses it into a Config struct. Expansion happens on the raw bytes
// before parsing so secrets like ${KNOWD_API_TOKEN} can appear anywhere,
// module sections included.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns. A variable with
// neither an environment value nor a default is an error; all unresolved
// names are reported together rather than one at a time.
func expandEnv(raw []byte) ([]byte, error) {
	var unresolved []error

	expanded := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envPattern.FindSubmatch(match)
		name := string(groups[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if groups[2] != nil {
			return groups[2]
		}

		unresolved = append(unresolved, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return expanded, errors.Join(unresolved...)
}
