// Package config loads optional configuration sources that are applied
// before command line flags: .env files and a YAML config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadEnv loads each existing .env file into the process environment.
// Variables already set are not overridden and missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// YAML returns a kong resolver reading flag values from a YAML document. It
// has the kong.ConfigurationLoader signature.
// Top level keys match global flags; a mapping named after a command holds
// that command's flags. Keys may use dashes or underscores.
//
//	debug: true
//	backend: file
//	serve:
//	  listen: 127.0.0.1:8080
//	  cors_origins: [https://localhost]
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}

	var resolver kong.ResolverFunc = func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		if parent != nil && parent.Command != nil {
			if section, ok := values[parent.Command.Name].(map[string]any); ok {
				if v, ok := lookup(section, flag.Name); ok {
					return v, nil
				}
			}
		}

		if v, ok := lookup(values, flag.Name); ok {
			return v, nil
		}
		return nil, nil
	}

	return resolver, nil
}

func lookup(values map[string]any, name string) (any, bool) {
	for _, key := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		v, ok := values[key]
		if !ok {
			continue
		}

		// sections are never flag values
		if _, isMap := v.(map[string]any); isMap {
			return nil, false
		}

		// lists are handed to kong in its separator form
		if list, isList := v.([]any); isList {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, fmt.Sprint(item))
			}
			return strings.Join(parts, ","), true
		}

		return v, true
	}
	return nil, false
}
