// FILE: confweave/source.go
package confweave

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Format identifies the structured-data syntax of a config source.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ConfigSource is one resolved, format-tagged file reference contributing
// to the merged tree.
type ConfigSource struct {
	Path   string
	Format Format
}

// ResolveSources expands each pattern into config sources, in order. A
// pattern naming an existing file is emitted as-is; anything else is
// treated as a glob (doublestar syntax, so "config/**/*.yml" works) whose
// matches are emitted in lexical order. An empty match set is logged and
// skipped, never an error; the caller simply gets fewer sources.
func ResolveSources(patterns []string, logger *slog.Logger) ([]ConfigSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var sources []ConfigSource
	for _, pattern := range patterns {
		files, err := expandPattern(pattern)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			logger.Debug("config pattern matched no files", "pattern", pattern)
			continue
		}
		for _, file := range files {
			format, err := detectFormat(file)
			if err != nil {
				return nil, err
			}
			sources = append(sources, ConfigSource{Path: file, Format: format})
		}
	}
	return sources, nil
}

// expandPattern resolves one literal-path-or-glob pattern into file paths.
// Shared by the source resolver and the function loader.
func expandPattern(pattern string) ([]string, error) {
	if isRegularFile(pattern) {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// detectFormat determines the config format from the file extension.
func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml", ".tml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .yml, .yaml, .json or .toml)", ErrUnsupportedConfigFormat, path)
	}
}

// FormatFromName maps a user-supplied format name (the --stdin-format
// values) to a Format.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "yml", "yaml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q (expected json, yml, yaml or toml)", ErrUnsupportedConfigFormat, name)
	}
}
