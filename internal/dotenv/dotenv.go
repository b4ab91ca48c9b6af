// Package dotenv reads a .env file into the process environment for
// local development. Real environment variables always win.
package dotenv

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Load applies KEY=VALUE lines from path. A missing file is not an
// error; comments, blank lines and malformed lines are skipped.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("dotenv: read %q: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}

		value = strings.TrimSpace(value)
		value = unquote(value)
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("dotenv: set %q: %w", key, err)
		}
	}
	return nil
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}
