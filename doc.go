// FILE: confweave/doc.go

// Package confweave is a configuration-templating pipeline: it collects
// runtime variables, treats YAML/JSON/TOML configuration files as
// templates in their own right, deep-merges the parsed results into one
// tree, optionally validates that tree against a schema, and renders a
// target template with the validated tree as context.
//
// Stages, in order:
//   - variable collection (--env files, --prefix imports, KEY=VALUE)
//   - config source resolution (paths and globs, order preserved)
//   - per-source templating and parsing
//   - deep merge (objects union and recurse, arrays concatenate,
//     scalars take the later value)
//   - schema validation (structural document or Starlark model class)
//   - strict-undefined render of the target template
//
// Templating is strict: referencing a name absent from the context is an
// error, never an empty substitution. Guard optional values explicitly,
// e.g. {{ dig "key" "fallback" . }}.
//
// Custom template vocabulary comes from Starlark files: top-level
// functions named filter_* become filters and test_* become tests, shared
// by both templating stages.
//
// Quick Start:
//
//	result, err := confweave.NewBuilder().
//	    WithVars("env=prod").
//	    WithConfigs("config/**/*.yml").
//	    WithTemplate("deploy.tmpl").
//	    WithSchema("schema.yml").
//	    MustBuild().
//	    Run()
//
// The confweave binary exits with 0 on success, 2 on malformed input
// (bad variable entries, unsupported formats, bad schema references),
// 3 on rendering errors, 4 on config parse errors and 5 on schema
// validation failure. These codes are stable.
package confweave
