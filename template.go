// FILE: confweave/template.go
package confweave

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
)

// Engine renders templates under strict-undefined semantics: any
// reference to a name absent from the context is a hard error. The
// function vocabulary is sprig plus the custom registry; a value can be
// guarded against absence explicitly, e.g. {{ dig "key" "fallback" . }}.
type Engine struct {
	funcs template.FuncMap
}

// NewEngine builds an engine exposing sprig's function map merged with
// the registry's filters and tests. Registry entries shadow sprig ones.
func NewEngine(registry *Registry) *Engine {
	funcs := sprig.TxtFuncMap()
	if registry != nil {
		for name, fn := range registry.funcMap() {
			funcs[name] = fn
		}
	}
	return &Engine{funcs: funcs}
}

// missingKeyPattern matches text/template's strict-mode lookup failure.
var missingKeyPattern = regexp.MustCompile(`map has no entry for key "([^"]+)"`)

// Render executes text as a template against context. name is used in
// error messages only (typically the source file path).
func (e *Engine) Render(name, text string, context any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(e.funcs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		if m := missingKeyPattern.FindStringSubmatch(err.Error()); m != nil {
			return "", fmt.Errorf("%w: %q is not defined (referenced in %s)", ErrUndefinedVariable, m[1], name)
		}
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// TemplateConfigSource reads one config source, renders its raw text as a
// template with vars as the namespace, and parses the result according to
// the source's format. Each source is templated independently; nothing
// rendered here becomes visible to another source's pass.
func TemplateConfigSource(source ConfigSource, vars map[string]string, engine *Engine) (any, error) {
	raw, err := os.ReadFile(source.Path)
	if err != nil {
		return nil, fmt.Errorf("reading config source %q: %w", source.Path, err)
	}

	context := make(map[string]any, len(vars))
	for k, v := range vars {
		context[k] = v
	}

	rendered, err := engine.Render(source.Path, string(raw), context)
	if err != nil {
		return nil, err
	}

	tree, err := ParseData([]byte(rendered), source.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrConfigParse, source.Path, err)
	}
	return normalizeTree(tree), nil
}

// ParseData parses structured data in the given format. JSON numbers keep
// full precision via json.Number.
func ParseData(data []byte, format Format) (any, error) {
	switch format {
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		var v any
		if err := decoder.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case FormatTOML:
		v := make(map[string]any)
		if err := toml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedConfigFormat, format)
	}
}

// RenderTemplate renders the target template text with the merged tree as
// the root namespace, under the same strict-undefined semantics and with
// the same functions as per-source templating.
func RenderTemplate(name, text string, context Tree, engine *Engine) (string, error) {
	return engine.Render(name, text, map[string]any(context))
}
