// FILE: confweave/tree.go
package confweave

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Tree is one parsed configuration tree: objects are map[string]any,
// sequences are []any, leaves are scalars (string, number, bool, nil).
// The merged result of the whole pipeline is a Tree.
type Tree map[string]any

// Lookup traverses the tree using a dot-notation path and reports whether
// the path exists.
func (t Tree) Lookup(path string) (any, bool) {
	if path == "" {
		return map[string]any(t), true
	}

	current := any(map[string]any(t))
	for _, segment := range strings.Split(path, ".") {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, exists := currentMap[segment]
		if !exists {
			return nil, false
		}
		current = value
	}
	return current, true
}

// String retrieves a string value at path, converting common scalar types.
func (t Tree) String(path string) (string, error) {
	val, found := t.Lookup(path)
	if !found {
		return "", fmt.Errorf("path not present: %s", path)
	}
	if val == nil {
		return "", nil
	}

	switch v := val.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(val).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(val).Uint(), 10), nil
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("cannot convert type %T to string for path %s", val, path)
	}
}

// Int64 retrieves an integer value at path, converting numeric types and
// parsable strings.
func (t Tree) Int64(path string) (int64, error) {
	val, found := t.Lookup(path)
	if !found {
		return 0, fmt.Errorf("path not present: %s", path)
	}
	if n, ok := val.(json.Number); ok {
		return n.Int64()
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return int64(v.Float()), nil
	case reflect.String:
		return strconv.ParseInt(v.String(), 0, 64)
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert type %T to int64 for path %s", val, path)
}

// Bool retrieves a boolean value at path, converting parsable strings and
// numeric types (0 = false).
func (t Tree) Bool(path string) (bool, error) {
	val, found := t.Lookup(path)
	if !found {
		return false, fmt.Errorf("path not present: %s", path)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return strconv.ParseBool(v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0, nil
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0, nil
	}
	return false, fmt.Errorf("cannot convert type %T to bool for path %s", val, path)
}

// Flatten converts the tree into a flat map with dot-notation paths.
// Sequences and scalars become leaves.
func (t Tree) Flatten() map[string]any {
	return flattenTree(map[string]any(t), "")
}

func flattenTree(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for key, value := range nested {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if sub, isMap := value.(map[string]any); isMap {
			for subPath, subValue := range flattenTree(sub, path) {
				flat[subPath] = subValue
			}
		} else {
			flat[path] = value
		}
	}
	return flat
}

// normalizeTree rewrites a freshly parsed value so that every object is a
// map[string]any and every sequence is a []any, whatever the decoder
// produced (BurntSushi/toml emits []map[string]any for array-of-tables,
// yaml.v3 can emit map[any]any for non-string keys).
func normalizeTree(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeTree(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalizeTree(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeTree(item)
		}
		return out
	}

	// Catch remaining typed slices ([]map[string]any, []string, ...).
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalizeTree(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
