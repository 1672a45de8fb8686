// FILE: confweave/model.go
package confweave

import (
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
)

// modelValidator validates a merged tree against an externally-defined
// data model: a Starlark module exposing a top-level callable per model
// class. The class is invoked with the merged tree as a dict and returns
// its violations as a list, where each element is either a message string
// or a dict with path/message/rule/expected/actual keys. Returning None
// or an empty list means the tree passed; a fail() inside the class is
// reported as a single violation.
type modelValidator struct {
	ref   SchemaRef
	class starlark.Callable
}

func newModelValidator(ref SchemaRef) (*modelValidator, error) {
	if !isRegularFile(ref.Path) {
		return nil, fmt.Errorf("%w: %q", ErrSchemaModuleNotFound, ref.Path)
	}

	globals, err := execModule(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("loading schema module %q: %w", ref.Path, err)
	}

	value, defined := globals[ref.Class]
	callable, isCallable := value.(starlark.Callable)
	if !defined || !isCallable {
		var found []string
		for _, name := range globals.Keys() {
			if _, ok := globals[name].(starlark.Callable); ok {
				found = append(found, name)
			}
		}
		available := "none"
		if len(found) > 0 {
			available = strings.Join(found, ", ")
		}
		return nil, fmt.Errorf("%w: %q in module %q (classes found: %s)",
			ErrSchemaClassNotFound, ref.Class, ref.Path, available)
	}

	return &modelValidator{ref: ref, class: callable}, nil
}

func (m *modelValidator) Validate(tree Tree) ([]ValidationError, error) {
	arg, err := goToStarlark(map[string]any(tree))
	if err != nil {
		return nil, fmt.Errorf("converting merged tree for model %q: %w", m.ref.Class, err)
	}

	thread := &starlark.Thread{Name: "confweave:model:" + m.ref.Class}
	result, err := starlark.Call(thread, m.class, starlark.Tuple{arg}, nil)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return []ValidationError{{
				Message: evalErr.Msg,
				Rule:    m.ref.Class,
				Actual:  map[string]any(tree),
			}}, nil
		}
		return nil, fmt.Errorf("instantiating model %q: %w", m.ref.Class, err)
	}

	return m.interpret(result)
}

// interpret converts the class's return value into validation errors.
func (m *modelValidator) interpret(result starlark.Value) ([]ValidationError, error) {
	if result == starlark.None {
		return nil, nil
	}

	value, err := starlarkToGo(result)
	if err != nil {
		return nil, fmt.Errorf("model %q returned an unusable value: %w", m.ref.Class, err)
	}

	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("model %q must return None or a list of violations, got %s",
			m.ref.Class, result.Type())
	}

	var errs []ValidationError
	for i, item := range items {
		switch violation := item.(type) {
		case string:
			errs = append(errs, ValidationError{Message: violation, Rule: m.ref.Class})
		case map[string]any:
			ve := ValidationError{Rule: m.ref.Class}
			if s, ok := violation["path"].(string); ok {
				ve.Path = s
			}
			if s, ok := violation["message"].(string); ok {
				ve.Message = s
			}
			if s, ok := violation["rule"].(string); ok {
				ve.Rule = s
			}
			ve.Expected = violation["expected"]
			ve.Actual = violation["actual"]
			errs = append(errs, ve)
		default:
			return nil, fmt.Errorf("model %q violation %d must be a string or dict, got %T",
				m.ref.Class, i, item)
		}
	}
	return errs, nil
}
