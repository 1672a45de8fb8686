// FILE: confweave/env.go
package confweave

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Source identifies one category of variable assignments, used to define
// collection precedence.
type Source string

const (
	// SourceFile represents assignments read from KEY=VALUE files passed
	// via --env.
	SourceFile Source = "file"
	// SourceEnv represents assignments imported from the ambient
	// environment via --prefix.
	SourceEnv Source = "env"
	// SourceCLI represents direct KEY=VALUE assignments passed via --env.
	SourceCLI Source = "cli"
)

// CollectOptions configures how the variable map is assembled.
type CollectOptions struct {
	// Order lists the categories lowest-precedence first; assignments are
	// applied in this order and the last write wins.
	Order []Source

	// Environ is the ambient environment snapshot consulted for prefix
	// imports, in the "KEY=VALUE" form of os.Environ. Collection never
	// reads the live process environment.
	Environ []string
}

// DefaultCollectOptions returns the standard precedence: env files, then
// prefix imports, then direct KEY=VALUE entries.
func DefaultCollectOptions(environ []string) CollectOptions {
	return CollectOptions{
		Order:   []Source{SourceFile, SourceEnv, SourceCLI},
		Environ: environ,
	}
}

// assignment is a single ordered KEY=VALUE binding.
type assignment struct {
	key   string
	value string
}

// CollectVars expands entries (each an existing file path or a direct
// KEY=VALUE string) and prefixes into a single variable map. Within each
// category assignments keep the caller-given order, categories are applied
// in opts.Order, and the final rule is last write wins across the fully
// expanded list.
func CollectVars(entries, prefixes []string, opts CollectOptions) (map[string]string, error) {
	if len(opts.Order) == 0 {
		opts.Order = []Source{SourceFile, SourceEnv, SourceCLI}
	}

	byCategory := map[Source][]assignment{}

	for _, entry := range entries {
		if isRegularFile(entry) {
			fileVars, err := godotenv.Read(entry)
			if err != nil {
				return nil, fmt.Errorf("reading env file %q: %w", entry, err)
			}
			for _, key := range sortedKeys(fileVars) {
				byCategory[SourceFile] = append(byCategory[SourceFile], assignment{key, fileVars[key]})
			}
			continue
		}

		key, value, err := parseVarEntry(entry)
		if err != nil {
			return nil, err
		}
		byCategory[SourceCLI] = append(byCategory[SourceCLI], assignment{key, value})
	}

	for _, prefix := range prefixes {
		for _, kv := range opts.Environ {
			name, value, ok := strings.Cut(kv, "=")
			if !ok {
				continue
			}
			if len(name) <= len(prefix) {
				continue
			}
			if !strings.HasPrefix(strings.ToLower(name), strings.ToLower(prefix)) {
				continue
			}
			key := strings.ToLower(name[len(prefix):])
			byCategory[SourceEnv] = append(byCategory[SourceEnv], assignment{key, value})
		}
	}

	vars := make(map[string]string)
	for _, source := range opts.Order {
		for _, a := range byCategory[source] {
			vars[a.key] = a.value
		}
	}
	return vars, nil
}

// parseVarEntry splits a direct KEY=VALUE entry, stripping one level of
// matching single or double quotes from the value.
func parseVarEntry(entry string) (string, string, error) {
	key, value, ok := strings.Cut(entry, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("%w: %q is not an existing file and does not match KEY=VALUE", ErrMalformedVariableEntry, entry)
	}
	return strings.TrimSpace(key), unquote(value), nil
}

// unquote strips matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// sortedKeys gives env-file assignments a deterministic order; keys are
// unique per file so line order carries no meaning.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
