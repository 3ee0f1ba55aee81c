package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies a configuration file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the format from a file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatYAML
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads a configuration file, choosing the format from its extension.
func Load(path string) (*Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

// Parse decodes configuration data. Environment variables are expanded
// before decoding, and the result is validated with [Normalize].
func Parse(data []byte, format Format) (*Root, error) {
	expanded, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	var root Root
	switch format {
	case FormatJSON:
		err = json.Unmarshal([]byte(expanded), &root)
	case FormatYAML:
		err = yaml.Unmarshal([]byte(expanded), &root)
	case FormatTOML:
		_, err = toml.Decode(expanded, &root)
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalid, format, err)
	}

	if _, err := Normalize(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// FromArgs builds a configuration from command-line arguments (without the
// program name):
//
//   - no arguments: minimal configuration
//   - "DEV" (any case): dev mode, optionally followed by a JSON object
//   - anything else: the first argument is a JSON configuration
func FromArgs(args []string) (*Root, error) {
	if len(args) == 0 {
		return Minimal(nil), nil
	}

	if strings.EqualFold(args[0], "DEV") {
		root := Minimal(nil)
		if len(args) > 1 && strings.HasPrefix(args[1], "{") {
			var err error
			if root, err = parseJSONArg(args[1]); err != nil {
				return nil, err
			}
		}
		root.DevMode = true
		return root, nil
	}

	return parseJSONArg(args[0])
}

func parseJSONArg(arg string) (*Root, error) {
	var root Root
	if err := json.Unmarshal([]byte(arg), &root); err != nil {
		return nil, fmt.Errorf("%w: could not parse config as JSON: %w", ErrInvalid, err)
	}
	return Minimal(&root), nil
}
