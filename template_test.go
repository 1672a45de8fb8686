// FILE: confweave/template_test.go
package confweave

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRender(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("SimpleSubstitution", func(t *testing.T) {
		out, err := engine.Render("test", "host={{ .host }}", map[string]any{"host": "db1"})
		require.NoError(t, err)
		assert.Equal(t, "host=db1", out)
	})

	t.Run("SprigFunctionsAvailable", func(t *testing.T) {
		out, err := engine.Render("test", "{{ .name | upper }}", map[string]any{"name": "app"})
		require.NoError(t, err)
		assert.Equal(t, "APP", out)
	})

	t.Run("StrictUndefinedFails", func(t *testing.T) {
		_, err := engine.Render("test", "{{ .missing_key }}", map[string]any{"present": 1})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUndefinedVariable)
		assert.Contains(t, err.Error(), "missing_key")
	})

	t.Run("ExplicitDefaultGuardSucceeds", func(t *testing.T) {
		out, err := engine.Render("test", `{{ dig "missing_key" "fallback" . }}`, map[string]any{"present": 1})
		require.NoError(t, err)
		assert.Equal(t, "fallback", out)
	})

	t.Run("NestedLookup", func(t *testing.T) {
		ctx := map[string]any{"db": map[string]any{"host": "h", "port": 5432}}
		out, err := engine.Render("test", "{{ .db.host }}:{{ .db.port }}", ctx)
		require.NoError(t, err)
		assert.Equal(t, "h:5432", out)
	})

	t.Run("UndefinedNestedKey", func(t *testing.T) {
		ctx := map[string]any{"db": map[string]any{"host": "h"}}
		_, err := engine.Render("test", "{{ .db.user }}", ctx)
		assert.ErrorIs(t, err, ErrUndefinedVariable)
	})
}

func TestTemplateConfigSource(t *testing.T) {
	tmpDir := t.TempDir()
	engine := NewEngine(nil)

	t.Run("YAMLWithVariables", func(t *testing.T) {
		path := filepath.Join(tmpDir, "app.yml")
		require.NoError(t, os.WriteFile(path, []byte("db:\n  host: {{ .db_host }}\n  port: {{ .db_port }}\n"), 0644))

		tree, err := TemplateConfigSource(
			ConfigSource{Path: path, Format: FormatYAML},
			map[string]string{"db_host": "prod", "db_port": "5432"},
			engine,
		)
		require.NoError(t, err)

		got := Tree(tree.(map[string]any))
		host, err := got.String("db.host")
		require.NoError(t, err)
		assert.Equal(t, "prod", host)
		port, err := got.Int64("db.port")
		require.NoError(t, err)
		assert.Equal(t, int64(5432), port)
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(tmpDir, "app.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name": "{{ .name }}"}`), 0644))

		tree, err := TemplateConfigSource(
			ConfigSource{Path: path, Format: FormatJSON},
			map[string]string{"name": "svc"},
			engine,
		)
		require.NoError(t, err)
		assert.Equal(t, "svc", tree.(map[string]any)["name"])
	})

	t.Run("TOML", func(t *testing.T) {
		path := filepath.Join(tmpDir, "app.toml")
		require.NoError(t, os.WriteFile(path, []byte("[server]\nhost = \"{{ .host }}\"\n"), 0644))

		tree, err := TemplateConfigSource(
			ConfigSource{Path: path, Format: FormatTOML},
			map[string]string{"host": "h"},
			engine,
		)
		require.NoError(t, err)
		host, _ := Tree(tree.(map[string]any)).Lookup("server.host")
		assert.Equal(t, "h", host)
	})

	t.Run("UndefinedVariableNamesSourceFile", func(t *testing.T) {
		path := filepath.Join(tmpDir, "broken.yml")
		require.NoError(t, os.WriteFile(path, []byte("host: {{ .absent }}\n"), 0644))

		_, err := TemplateConfigSource(ConfigSource{Path: path, Format: FormatYAML}, map[string]string{}, engine)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUndefinedVariable)
		assert.Contains(t, err.Error(), "absent")
		assert.Contains(t, err.Error(), "broken.yml")
	})

	t.Run("ParseErrorNamesSourceFile", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"unterminated": `), 0644))

		_, err := TemplateConfigSource(ConfigSource{Path: path, Format: FormatJSON}, map[string]string{}, engine)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigParse)
		assert.Contains(t, err.Error(), "bad.json")
	})
}

func TestRenderTemplate(t *testing.T) {
	engine := NewEngine(nil)
	tree := Tree{"db": map[string]any{"host": "prod.example.com", "port": 5432}}

	out, err := RenderTemplate("deploy", "connect {{ .db.host }}:{{ .db.port }}", tree, engine)
	require.NoError(t, err)
	assert.Equal(t, "connect prod.example.com:5432", out)
}
