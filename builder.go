// FILE: confweave/builder.go
package confweave

import (
	"io"
	"log/slog"
	"os"
)

// Builder provides a fluent interface for assembling pipeline options.
type Builder struct {
	opts Options
}

// NewBuilder creates a pipeline builder with the ambient environment
// snapshot taken once, up front.
func NewBuilder() *Builder {
	return &Builder{
		opts: Options{
			Environ: os.Environ(),
			Output:  SinkStdout,
		},
	}
}

// WithVars appends --env style entries (file paths or KEY=VALUE).
func (b *Builder) WithVars(entries ...string) *Builder {
	b.opts.Vars = append(b.opts.Vars, entries...)
	return b
}

// WithPrefixes appends ambient-variable import prefixes.
func (b *Builder) WithPrefixes(prefixes ...string) *Builder {
	b.opts.Prefixes = append(b.opts.Prefixes, prefixes...)
	return b
}

// WithConfigs appends config source patterns in merge precedence order.
func (b *Builder) WithConfigs(patterns ...string) *Builder {
	b.opts.Configs = append(b.opts.Configs, patterns...)
	return b
}

// WithFunctions appends function-file patterns.
func (b *Builder) WithFunctions(patterns ...string) *Builder {
	b.opts.Functions = append(b.opts.Functions, patterns...)
	return b
}

// WithTemplate sets the target template path.
func (b *Builder) WithTemplate(path string) *Builder {
	b.opts.Template = path
	return b
}

// WithSchema sets the schema reference (document path or path::ClassName).
func (b *Builder) WithSchema(ref string) *Builder {
	b.opts.Schema = ref
	return b
}

// WithOutput sets the output sink.
func (b *Builder) WithOutput(output string) *Builder {
	b.opts.Output = output
	return b
}

// WithValidateFile sets the file to diff the rendered output against.
func (b *Builder) WithValidateFile(path string) *Builder {
	b.opts.Validate = path
	return b
}

// WithStdin attaches piped configuration in the named format.
func (b *Builder) WithStdin(format string, r io.Reader) *Builder {
	b.opts.StdinFormat = format
	b.opts.Stdin = r
	return b
}

// WithStdout redirects the stdout sink.
func (b *Builder) WithStdout(w io.Writer) *Builder {
	b.opts.Stdout = w
	return b
}

// WithEnviron replaces the ambient environment snapshot.
func (b *Builder) WithEnviron(environ []string) *Builder {
	b.opts.Environ = environ
	return b
}

// WithVarOrder sets the variable precedence categories, lowest first.
func (b *Builder) WithVarOrder(sources ...Source) *Builder {
	b.opts.VarOrder = sources
	return b
}

// WithLogger sets the pipeline logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.opts.Logger = logger
	return b
}

// Build validates the boundary inputs that can be checked without I/O
// and returns the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	if b.opts.Schema != "" {
		if _, err := ParseSchemaRef(b.opts.Schema); err != nil {
			return nil, err
		}
	}
	if b.opts.StdinFormat != "" {
		if _, err := FormatFromName(b.opts.StdinFormat); err != nil {
			return nil, err
		}
	}
	return New(b.opts), nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Pipeline {
	p, err := b.Build()
	if err != nil {
		panic("pipeline build failed: " + err.Error())
	}
	return p
}
