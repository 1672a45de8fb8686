// FILE: confweave/errors.go
package confweave

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for every failure class the pipeline can produce.
// All of them are fatal to the invocation; nothing is retried.
var (
	// ErrMalformedVariableEntry reports an --env entry that is neither an
	// existing file nor a KEY=VALUE assignment.
	ErrMalformedVariableEntry = errors.New("malformed variable entry")

	// ErrUnsupportedConfigFormat reports a config file whose extension maps
	// to no known format.
	ErrUnsupportedConfigFormat = errors.New("unsupported config format")

	// ErrConfigParse reports a config source that rendered fine but failed
	// to parse as its detected format.
	ErrConfigParse = errors.New("config parse error")

	// ErrUndefinedVariable reports a template reference to a name absent
	// from the render context under strict-undefined semantics.
	ErrUndefinedVariable = errors.New("undefined variable")

	// ErrSchemaModuleNotFound reports a model schema reference whose module
	// file does not exist.
	ErrSchemaModuleNotFound = errors.New("schema module not found")

	// ErrSchemaClassNotFound reports a model schema reference whose class
	// is not defined in the module.
	ErrSchemaClassNotFound = errors.New("schema class not found")

	// ErrSchemaFormatInvalid reports a malformed schema reference string.
	ErrSchemaFormatInvalid = errors.New("invalid schema reference")
)

// ValidationError records one violated schema constraint.
type ValidationError struct {
	// Path is the dotted/bracketed location of the offending node,
	// e.g. "db.replicas[2].host". Empty means the tree root.
	Path string

	// Message is a human-readable description of the violation.
	Message string

	// Rule names the constraint that fired ("required", "type", "enum",
	// "pattern", "minimum", ... or a model validator name).
	Rule string

	// Expected and Actual carry the constraint operand and the offending
	// value, when they are meaningful for the rule.
	Expected any
	Actual   any
}

func (e ValidationError) Error() string {
	path := e.Path
	if path == "" {
		path = "(root)"
	}
	s := fmt.Sprintf("%s: %s", path, e.Message)
	if e.Rule != "" {
		s += fmt.Sprintf(" [rule: %s]", e.Rule)
	}
	if e.Expected != nil {
		s += fmt.Sprintf(" (expected %v, got %v)", e.Expected, e.Actual)
	}
	return s
}

// ValidationFailedError aggregates every constraint violation found in a
// single validation pass. The pipeline surfaces all of them together,
// never just the first.
type ValidationFailedError struct {
	Schema string
	Errors []ValidationError
}

func (e *ValidationFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema validation against %q failed with %d error(s):", e.Schema, len(e.Errors))
	for _, ve := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(ve.Error())
	}
	return b.String()
}
