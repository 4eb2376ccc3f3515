package secrets

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileLoader returns a Loader that reads a flat YAML map of secrets from path.
// Unlike process environment variables, the file can be rewritten and picked
// up by Reload.
func FileLoader(path string) Loader {
	return func() (map[string]string, error) {
		data, err := os.ReadFile(path) //nolint:gosec // path from trusted config
		if err != nil {
			return nil, fmt.Errorf("read secrets file: %w", err)
		}
		vals := make(map[string]string)
		if err := yaml.Unmarshal(data, &vals); err != nil {
			return nil, fmt.Errorf("parse secrets file: %w", err)
		}
		return vals, nil
	}
}

// Chain merges several loaders; later loaders override earlier ones.
func Chain(loaders ...Loader) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string)
		for _, l := range loaders {
			m, err := l()
			if err != nil {
				return nil, err
			}
			for k, v := range m {
				vals[k] = v
			}
		}
		return vals, nil
	}
}
