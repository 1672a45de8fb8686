// FILE: confweave/functions.go
package confweave

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"go.starlark.net/starlark"
)

const (
	filterPrefix = "filter_"
	testPrefix   = "test_"
)

// FilterFunc transforms template values. When used in a pipeline the piped
// value arrives as the final argument.
type FilterFunc func(args ...any) (any, error)

// TestFunc answers a yes/no question about template values.
type TestFunc func(args ...any) (bool, error)

// Registry holds the custom filters and tests available to both
// templating stages. It is built once and read-only afterwards; the
// templating code depends only on this type, not on how functions are
// loaded.
type Registry struct {
	filters map[string]FilterFunc
	tests   map[string]TestFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		filters: make(map[string]FilterFunc),
		tests:   make(map[string]TestFunc),
	}
}

// RegisterFilter adds or replaces a filter.
func (r *Registry) RegisterFilter(name string, fn FilterFunc) {
	r.filters[name] = fn
}

// RegisterTest adds or replaces a test.
func (r *Registry) RegisterTest(name string, fn TestFunc) {
	r.tests[name] = fn
}

// FilterNames returns the registered filter names, sorted.
func (r *Registry) FilterNames() []string {
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TestNames returns the registered test names, sorted.
func (r *Registry) TestNames() []string {
	names := make([]string, 0, len(r.tests))
	for name := range r.tests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// funcMap exposes filters and tests as template functions. Tests are
// registered after filters, so a test wins a name collision.
func (r *Registry) funcMap() template.FuncMap {
	fm := make(template.FuncMap, len(r.filters)+len(r.tests))
	for name, fn := range r.filters {
		fm[name] = fn
	}
	for name, fn := range r.tests {
		fm[name] = fn
	}
	return fm
}

// LoadFunctions resolves each pattern (literal path or glob, same rule as
// config sources) to Starlark script files and executes them. Every
// top-level callable named filter_* registers as a filter and test_* as a
// test, keyed by the remainder of the name. A later-loaded file wins name
// collisions, the same ordering discipline as config merging.
func LoadFunctions(patterns []string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := NewRegistry()

	for _, pattern := range patterns {
		files, err := expandPattern(pattern)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			logger.Debug("function pattern matched no files", "pattern", pattern)
		}
		for _, file := range files {
			if err := loadFunctionFile(registry, file, logger); err != nil {
				return nil, err
			}
		}
	}
	return registry, nil
}

func loadFunctionFile(registry *Registry, path string, logger *slog.Logger) error {
	globals, err := execModule(path)
	if err != nil {
		return fmt.Errorf("loading function file %q: %w", path, err)
	}

	for _, name := range globals.Keys() {
		callable, ok := globals[name].(starlark.Callable)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(name, filterPrefix):
			short := strings.TrimPrefix(name, filterPrefix)
			registry.RegisterFilter(short, wrapFilter(callable))
			logger.Debug("registered filter", "name", short, "file", path)
		case strings.HasPrefix(name, testPrefix):
			short := strings.TrimPrefix(name, testPrefix)
			registry.RegisterTest(short, wrapTest(callable))
			logger.Debug("registered test", "name", short, "file", path)
		}
	}
	return nil
}

// execModule executes a Starlark file and returns its global bindings.
func execModule(path string) (starlark.StringDict, error) {
	thread := &starlark.Thread{Name: "confweave:" + path}
	return starlark.ExecFile(thread, path, nil, nil)
}

func wrapFilter(fn starlark.Callable) FilterFunc {
	return func(args ...any) (any, error) {
		result, err := callStarlark(fn, args)
		if err != nil {
			return nil, err
		}
		return starlarkToGo(result)
	}
}

func wrapTest(fn starlark.Callable) TestFunc {
	return func(args ...any) (bool, error) {
		result, err := callStarlark(fn, args)
		if err != nil {
			return false, err
		}
		value, err := starlarkToGo(result)
		if err != nil {
			return false, err
		}
		b, ok := value.(bool)
		if !ok {
			return false, fmt.Errorf("test %q returned %T, want bool", fn.Name(), value)
		}
		return b, nil
	}
}

func callStarlark(fn starlark.Callable, args []any) (starlark.Value, error) {
	tuple := make(starlark.Tuple, len(args))
	for i, arg := range args {
		v, err := goToStarlark(arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %q: %w", i, fn.Name(), err)
		}
		tuple[i] = v
	}

	thread := &starlark.Thread{Name: "confweave:call:" + fn.Name()}
	result, err := starlark.Call(thread, fn, tuple, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %q: %w", fn.Name(), err)
	}
	return result, nil
}

// goToStarlark converts a config-tree value into its Starlark equivalent.
func goToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(val), nil
	case string:
		return starlark.String(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case uint64:
		return starlark.MakeUint64(val), nil
	case float32:
		return starlark.Float(val), nil
	case float64:
		return starlark.Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return starlark.MakeInt64(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return starlark.Float(f), nil
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := goToStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for _, key := range sortedAnyKeys(val) {
			sv, err := goToStarlark(val[key])
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(key), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case Tree:
		return goToStarlark(map[string]any(val))
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// starlarkToGo converts a Starlark value back into a config-tree value.
func starlarkToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.String:
		return string(val), nil
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i, nil
		}
		return val.String(), nil
	case starlark.Float:
		return float64(val), nil
	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := starlarkToGo(val.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, len(val))
		for i, item := range val {
			converted, err := starlarkToGo(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, pair := range val.Items() {
			key, ok := starlark.AsString(pair[0])
			if !ok {
				key = pair[0].String()
			}
			item, err := starlarkToGo(pair[1])
			if err != nil {
				return nil, err
			}
			out[key] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported return type %s", v.Type())
	}
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
