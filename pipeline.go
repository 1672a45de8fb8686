// FILE: confweave/pipeline.go
package confweave

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options carries every external input of one pipeline invocation.
type Options struct {
	// Vars are ordered --env entries: existing file paths or KEY=VALUE.
	Vars []string
	// Prefixes import ambient variables whose names start with a prefix.
	Prefixes []string
	// Configs are ordered config source patterns (paths or globs); their
	// order is the merge precedence order.
	Configs []string
	// Template is the target template path. Empty renders nothing.
	Template string
	// Functions are patterns resolving to Starlark function files.
	Functions []string
	// Schema is an optional schema reference: a document path or
	// "module-path::ClassName". Empty skips validation.
	Schema string
	// Output selects the sink: "stdout" (default), a file path, or one of
	// the debug sinks ("config-json", "config-yaml", "config-yml") that
	// serialize the merged tree instead of rendering.
	Output string
	// Validate optionally names a file to diff the rendered output against.
	Validate string

	// StdinFormat, when set, parses Stdin as an extra config tree appended
	// after all file-derived trees.
	StdinFormat string
	Stdin       io.Reader

	// Stdout receives the stdout sink's output. Defaults to os.Stdout.
	Stdout io.Writer

	// Environ is the ambient environment snapshot for prefix imports.
	Environ []string
	// VarOrder overrides the variable precedence categories.
	VarOrder []Source

	Logger *slog.Logger
}

// Result is what one pipeline run produced.
type Result struct {
	// Vars is the collected variable map used for per-source templating.
	Vars map[string]string
	// Merged is the deep-merged configuration tree.
	Merged Tree
	// Rendered is the final rendered text; empty when no template was
	// given or a debug sink was selected.
	Rendered string
	// Diff is the difference between Rendered and the Validate file,
	// empty when they match or no Validate file was given.
	Diff string
}

// Pipeline executes the merge-validate-render sequence. Stages run
// synchronously and strictly in order: sources are processed in
// resolution order because that order determines merge precedence.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// New builds a pipeline from options, filling in defaults.
func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Output == "" {
		opts.Output = SinkStdout
	}
	return &Pipeline{opts: opts, logger: opts.Logger}
}

// Run executes the pipeline and writes the selected sink. On schema
// validation failure it returns a *ValidationFailedError before any
// rendering is attempted, and nothing is written.
func (p *Pipeline) Run() (*Result, error) {
	opts := p.opts

	vars, err := CollectVars(opts.Vars, opts.Prefixes, CollectOptions{
		Order:   opts.VarOrder,
		Environ: opts.Environ,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debug("collected variables", "count", len(vars))

	registry, err := LoadFunctions(opts.Functions, p.logger)
	if err != nil {
		return nil, err
	}
	engine := NewEngine(registry)

	sources, err := ResolveSources(opts.Configs, p.logger)
	if err != nil {
		return nil, err
	}

	trees := make([]any, 0, len(sources)+1)
	for _, source := range sources {
		tree, err := TemplateConfigSource(source, vars, engine)
		if err != nil {
			return nil, err
		}
		if tree == nil {
			p.logger.Debug("config source parsed to nothing", "path", source.Path)
			continue
		}
		p.logger.Debug("loaded config source", "path", source.Path, "format", source.Format)
		trees = append(trees, tree)
	}

	stdinTree, err := p.readStdinTree()
	if err != nil {
		return nil, err
	}
	if stdinTree != nil {
		trees = append(trees, stdinTree)
	}

	merged, err := p.reduce(trees)
	if err != nil {
		return nil, err
	}
	for path, value := range merged.Flatten() {
		p.logger.Debug("merged", "path", path, "value", value)
	}

	if opts.Schema != "" {
		if err := p.validate(merged); err != nil {
			return nil, err
		}
	}

	result := &Result{Vars: vars, Merged: merged}

	if isDebugSink(opts.Output) {
		serialized, err := MarshalMerged(merged, opts.Output)
		if err != nil {
			return nil, err
		}
		if _, err := opts.Stdout.Write(serialized); err != nil {
			return nil, fmt.Errorf("writing merged config: %w", err)
		}
		return result, nil
	}

	if opts.Template != "" {
		raw, err := os.ReadFile(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("reading template %q: %w", opts.Template, err)
		}
		result.Rendered, err = RenderTemplate(opts.Template, string(raw), merged, engine)
		if err != nil {
			return nil, err
		}
	}

	if opts.Validate != "" {
		expected, err := os.ReadFile(opts.Validate)
		if err != nil {
			return nil, fmt.Errorf("reading validation file %q: %w", opts.Validate, err)
		}
		result.Diff = textDiff(result.Rendered, string(expected))
		if result.Diff != "" {
			p.logger.Info("rendered output differs from validation file",
				"file", opts.Validate)
		}
	}

	if err := writeOutput(opts.Stdout, opts.Output, result.Rendered); err != nil {
		return nil, err
	}
	return result, nil
}

// readStdinTree parses piped configuration when a stdin format was given.
// It is appended after every file-derived tree, so it has the highest
// merge precedence. Stdin content is not templated.
func (p *Pipeline) readStdinTree() (any, error) {
	if p.opts.StdinFormat == "" || p.opts.Stdin == nil {
		return nil, nil
	}

	format, err := FormatFromName(p.opts.StdinFormat)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(p.opts.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		p.logger.Debug("stdin was empty, no config read")
		return nil, nil
	}

	tree, err := ParseData(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: stdin: %s", ErrConfigParse, err)
	}
	return normalizeTree(tree), nil
}

func (p *Pipeline) reduce(trees []any) (Tree, error) {
	merged := Reduce(trees)
	obj, ok := merged.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: sources merged to %s, expected an object",
			ErrConfigParse, typeName(merged))
	}
	return Tree(obj), nil
}

func (p *Pipeline) validate(merged Tree) error {
	ref, err := ParseSchemaRef(p.opts.Schema)
	if err != nil {
		return err
	}
	validator, err := NewValidator(ref)
	if err != nil {
		return err
	}
	violations, err := validator.Validate(merged)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return &ValidationFailedError{Schema: p.opts.Schema, Errors: violations}
	}
	p.logger.Debug("schema validation passed", "schema", p.opts.Schema)
	return nil
}
