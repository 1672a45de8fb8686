// FILE: confweave/cmd/confweave/main.go
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/confweave/confweave"
)

// Exit codes, stable and documented in the package docs.
const (
	exitUsage      = 2
	exitRender     = 3
	exitParse      = 4
	exitValidation = 5
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "confweave",
		Usage: "merge templated config files, validate the result, render a template",
		Description: "confweave collects variables, renders each config file as a " +
			"template, deep-merges the parsed trees in the order given, optionally " +
			"validates the merged tree against a schema, and renders the target " +
			"template with the tree as context.\n\n" +
			"Exit codes: 0 success, 2 malformed input, 3 rendering error, " +
			"4 config parse error, 5 schema validation failure.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "variable as KEY=VALUE, or path to a KEY=VALUE file; repeatable",
			},
			&cli.StringSliceFlag{
				Name:    "prefix",
				Aliases: []string{"p"},
				Usage:   "import ambient variables with this prefix, stripped and lower-cased; repeatable",
			},
			&cli.StringSliceFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path or glob pattern; order sets merge precedence; repeatable",
			},
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "target template file",
			},
			&cli.StringSliceFlag{
				Name:    "functions",
				Aliases: []string{"f"},
				Usage:   "path or glob of Starlark files with filter_*/test_* functions; repeatable",
			},
			&cli.StringFlag{
				Name:    "schema",
				Aliases: []string{"s"},
				Usage:   "schema document path, or module-path::ClassName for a model class",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   confweave.SinkStdout,
				Usage:   "output file, \"stdout\", or a debug sink (config-json, config-yaml)",
			},
			&cli.StringFlag{
				Name:  "validate",
				Usage: "diff the rendered output against this file",
			},
			&cli.StringFlag{
				Name:  "stdin-format",
				Usage: "parse stdin as an extra config source in this format (json, yml, yaml, toml)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "verbose logging",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))

	builder := confweave.NewBuilder().
		WithVars(c.StringSlice("env")...).
		WithPrefixes(c.StringSlice("prefix")...).
		WithConfigs(c.StringSlice("config")...).
		WithFunctions(c.StringSlice("functions")...).
		WithTemplate(c.String("template")).
		WithSchema(c.String("schema")).
		WithOutput(c.String("output")).
		WithValidateFile(c.String("validate")).
		WithLogger(logger)

	if format := c.String("stdin-format"); format != "" {
		if stdinIsPiped() {
			builder = builder.WithStdin(format, os.Stdin)
		} else {
			logger.Debug("stdin-format given but no data piped", "format", format)
		}
	}

	pipeline, err := builder.Build()
	if err != nil {
		return cli.Exit(err.Error(), exitCodeFor(err))
	}

	result, err := pipeline.Run()
	if err != nil {
		return cli.Exit(err.Error(), exitCodeFor(err))
	}

	if result.Diff != "" {
		fmt.Fprintln(os.Stderr, result.Diff)
	}
	return nil
}

func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	return err == nil && (info.Mode()&os.ModeCharDevice) == 0
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitCodeFor maps pipeline error kinds onto the documented exit codes.
func exitCodeFor(err error) int {
	var validation *confweave.ValidationFailedError
	switch {
	case errors.As(err, &validation):
		return exitValidation
	case errors.Is(err, confweave.ErrConfigParse):
		return exitParse
	case errors.Is(err, confweave.ErrUndefinedVariable):
		return exitRender
	case errors.Is(err, confweave.ErrMalformedVariableEntry),
		errors.Is(err, confweave.ErrUnsupportedConfigFormat),
		errors.Is(err, confweave.ErrSchemaFormatInvalid),
		errors.Is(err, confweave.ErrSchemaModuleNotFound),
		errors.Is(err, confweave.ErrSchemaClassNotFound):
		return exitUsage
	default:
		return 1
	}
}
