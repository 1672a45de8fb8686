// FILE: confweave/output.go
package confweave

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
)

// Output sink names. Anything else is treated as a file path.
const (
	SinkStdout     = "stdout"
	SinkConfigJSON = "config-json"
	SinkConfigYAML = "config-yaml"
	SinkConfigYML  = "config-yml"
)

// isDebugSink reports whether the output short-circuits rendering and
// emits the merged tree instead.
func isDebugSink(output string) bool {
	return output == SinkConfigJSON || output == SinkConfigYAML || output == SinkConfigYML
}

// MarshalMerged serializes the merged tree for a debug sink.
func MarshalMerged(tree Tree, sink string) ([]byte, error) {
	switch sink {
	case SinkConfigJSON:
		data, err := json.MarshalIndent(map[string]any(tree), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("serializing merged config as JSON: %w", err)
		}
		return append(data, '\n'), nil
	case SinkConfigYAML, SinkConfigYML:
		data, err := yaml.Marshal(yamlReady(map[string]any(tree)))
		if err != nil {
			return nil, fmt.Errorf("serializing merged config as YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown debug sink %q", sink)
	}
}

// yamlReady rewrites json.Number leaves into native numbers so the YAML
// encoder emits them unquoted.
func yamlReady(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = yamlReady(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = yamlReady(item)
		}
		return out
	default:
		return v
	}
}

// writeOutput delivers rendered content to the selected sink.
func writeOutput(stdout io.Writer, output, content string) error {
	if output == SinkStdout {
		_, err := fmt.Fprintln(stdout, content)
		return err
	}
	return atomicWriteFile(output, []byte(content))
}

// textDiff returns a patch-format difference between the rendered output
// and the expected text, or "" when they are identical.
func textDiff(rendered, expected string) string {
	if rendered == expected {
		return ""
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(rendered, expected, false)
	return dmp.PatchToText(dmp.PatchMake(rendered, diffs))
}

// atomicWriteFile writes data via a temp file in the target directory and
// renames it into place.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
