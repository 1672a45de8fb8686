// FILE: confweave/schema.go
package confweave

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// SchemaRef is a parsed --schema reference: either a structural schema
// document path, or a "module-path::ClassName" model reference. The
// variant is resolved once here; validation code never re-inspects the
// reference string.
type SchemaRef struct {
	Path  string
	Class string // empty for structural mode
}

// IsModel reports whether the reference selects model-based validation.
func (r SchemaRef) IsModel() bool {
	return r.Class != ""
}

// ParseSchemaRef parses a schema reference string. A "::" separator
// selects model mode; anything malformed around it fails with
// ErrSchemaFormatInvalid.
func ParseSchemaRef(s string) (SchemaRef, error) {
	if !strings.Contains(s, "::") {
		if strings.TrimSpace(s) == "" {
			return SchemaRef{}, fmt.Errorf("%w: empty reference", ErrSchemaFormatInvalid)
		}
		return SchemaRef{Path: s}, nil
	}

	path, class, _ := strings.Cut(s, "::")
	if strings.TrimSpace(path) == "" || strings.TrimSpace(class) == "" || strings.Contains(class, "::") {
		return SchemaRef{}, fmt.Errorf("%w: %q (want path or path::ClassName)", ErrSchemaFormatInvalid, s)
	}
	return SchemaRef{Path: path, Class: class}, nil
}

// Validator checks a merged tree and reports every violated constraint.
// An empty slice means the tree passed.
type Validator interface {
	Validate(tree Tree) ([]ValidationError, error)
}

// NewValidator builds the validator selected by the reference.
func NewValidator(ref SchemaRef) (Validator, error) {
	if ref.IsModel() {
		return newModelValidator(ref)
	}
	return newStructuralValidator(ref.Path)
}

// schemaNode is one node of a declarative schema document. The document
// may be written in YAML, JSON or TOML; it is always interpreted as this
// JSON-Schema-shaped structure.
type schemaNode struct {
	Type       string                 `mapstructure:"type"`
	Required   []string               `mapstructure:"required"`
	Properties map[string]*schemaNode `mapstructure:"properties"`
	Items      *schemaNode            `mapstructure:"items"`
	Enum       []any                  `mapstructure:"enum"`
	Pattern    string                 `mapstructure:"pattern"`
	Minimum    *float64               `mapstructure:"minimum"`
	Maximum    *float64               `mapstructure:"maximum"`
	MinLength  *int                   `mapstructure:"minLength"`
	MaxLength  *int                   `mapstructure:"maxLength"`
}

type structuralValidator struct {
	path string
	root *schemaNode
}

func newStructuralValidator(path string) (*structuralValidator, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %q: %w", path, err)
	}
	doc, err := ParseData(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrConfigParse, path, err)
	}

	root := &schemaNode{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           root,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("schema decoder: %w", err)
	}
	if err := decoder.Decode(normalizeTree(doc)); err != nil {
		return nil, fmt.Errorf("schema %q is not a valid schema document: %w", path, err)
	}
	return &structuralValidator{path: path, root: root}, nil
}

func (v *structuralValidator) Validate(tree Tree) ([]ValidationError, error) {
	var errs []ValidationError
	if err := v.walk(v.root, map[string]any(tree), "", &errs); err != nil {
		return nil, err
	}
	return errs, nil
}

// walk checks one value against one schema node, appending a
// ValidationError per violated constraint. A type mismatch stops descent
// below the node since the remaining constraints assume the type.
func (v *structuralValidator) walk(node *schemaNode, value any, path string, errs *[]ValidationError) error {
	if node == nil {
		return nil
	}

	if node.Type != "" && !typeMatches(node.Type, value) {
		*errs = append(*errs, ValidationError{
			Path:     path,
			Message:  fmt.Sprintf("expected type %s, found %s", node.Type, typeName(value)),
			Rule:     "type",
			Expected: node.Type,
			Actual:   typeName(value),
		})
		return nil
	}

	if len(node.Enum) > 0 {
		found := false
		for _, candidate := range node.Enum {
			if scalarEqual(candidate, value) {
				found = true
				break
			}
		}
		if !found {
			*errs = append(*errs, ValidationError{
				Path:     path,
				Message:  "value is not one of the allowed values",
				Rule:     "enum",
				Expected: node.Enum,
				Actual:   value,
			})
		}
	}

	if s, ok := value.(string); ok {
		if node.Pattern != "" {
			re, err := regexp.Compile(node.Pattern)
			if err != nil {
				return fmt.Errorf("schema pattern %q at %s: %w", node.Pattern, path, err)
			}
			if !re.MatchString(s) {
				*errs = append(*errs, ValidationError{
					Path:     path,
					Message:  fmt.Sprintf("%q does not match pattern", s),
					Rule:     "pattern",
					Expected: node.Pattern,
					Actual:   s,
				})
			}
		}
		length := len([]rune(s))
		if node.MinLength != nil && length < *node.MinLength {
			*errs = append(*errs, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("string is shorter than %d characters", *node.MinLength),
				Rule:     "minLength",
				Expected: *node.MinLength,
				Actual:   length,
			})
		}
		if node.MaxLength != nil && length > *node.MaxLength {
			*errs = append(*errs, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("string is longer than %d characters", *node.MaxLength),
				Rule:     "maxLength",
				Expected: *node.MaxLength,
				Actual:   length,
			})
		}
	}

	if f, ok := toFloat(value); ok {
		if node.Minimum != nil && f < *node.Minimum {
			*errs = append(*errs, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("%v is below the minimum", value),
				Rule:     "minimum",
				Expected: *node.Minimum,
				Actual:   value,
			})
		}
		if node.Maximum != nil && f > *node.Maximum {
			*errs = append(*errs, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("%v is above the maximum", value),
				Rule:     "maximum",
				Expected: *node.Maximum,
				Actual:   value,
			})
		}
	}

	if obj, ok := value.(map[string]any); ok {
		for _, required := range node.Required {
			if _, present := obj[required]; !present {
				*errs = append(*errs, ValidationError{
					Path:    joinPath(path, required),
					Message: "required property is missing",
					Rule:    "required",
				})
			}
		}
		for name, child := range node.Properties {
			if childValue, present := obj[name]; present {
				if err := v.walk(child, childValue, joinPath(path, name), errs); err != nil {
					return err
				}
			}
		}
	}

	if arr, ok := value.([]any); ok && node.Items != nil {
		for i, item := range arr {
			if err := v.walk(node.Items, item, fmt.Sprintf("%s[%d]", path, i), errs); err != nil {
				return err
			}
		}
	}

	return nil
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// typeMatches maps schema type names onto config-tree value shapes.
func typeMatches(typeName string, value any) bool {
	switch typeName {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "null":
		return value == nil
	case "number":
		_, ok := toFloat(value)
		return ok
	case "integer":
		f, ok := toFloat(value)
		return ok && f == float64(int64(f))
	default:
		return false
	}
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float32, float64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// scalarEqual compares two tree scalars, treating all numeric types as
// interchangeable.
func scalarEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if _, ok := toFloat(b); ok {
		return false
	}
	return reflect.DeepEqual(a, b)
}
