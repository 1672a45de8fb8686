// FILE: confweave/source_test.go
package confweave

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))
	}
}

func TestResolveSources(t *testing.T) {
	t.Run("LiteralFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, "app.yaml")

		sources, err := ResolveSources([]string{filepath.Join(tmpDir, "app.yaml")}, nil)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, FormatYAML, sources[0].Format)
	})

	t.Run("FormatDetection", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, "a.yml", "b.json", "c.toml")

		sources, err := ResolveSources([]string{
			filepath.Join(tmpDir, "a.yml"),
			filepath.Join(tmpDir, "b.json"),
			filepath.Join(tmpDir, "c.toml"),
		}, nil)
		require.NoError(t, err)
		require.Len(t, sources, 3)
		assert.Equal(t, FormatYAML, sources[0].Format)
		assert.Equal(t, FormatJSON, sources[1].Format)
		assert.Equal(t, FormatTOML, sources[2].Format)
	})

	t.Run("UnsupportedExtension", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, "app.ini")

		_, err := ResolveSources([]string{filepath.Join(tmpDir, "app.ini")}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedConfigFormat)
		assert.Contains(t, err.Error(), "app.ini")
	})

	t.Run("GlobSortedLexically", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, "20-mid.yml", "10-base.yml", "30-prod.yml")

		sources, err := ResolveSources([]string{filepath.Join(tmpDir, "*.yml")}, nil)
		require.NoError(t, err)
		require.Len(t, sources, 3)
		assert.Equal(t, filepath.Join(tmpDir, "10-base.yml"), sources[0].Path)
	})

	t.Run("RecursiveGlob", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, "conf/base.yml", "conf/env/prod.yml")

		sources, err := ResolveSources([]string{filepath.Join(tmpDir, "conf", "**", "*.yml")}, nil)
		require.NoError(t, err)
		assert.Len(t, sources, 2)
	})

	t.Run("PatternOrderPreserved", func(t *testing.T) {
		tmpDir := t.TempDir()
		writeFiles(t, tmpDir, "base.yml", "overrides/a.yml", "overrides/b.yml")

		sources, err := ResolveSources([]string{
			filepath.Join(tmpDir, "overrides", "*.yml"),
			filepath.Join(tmpDir, "base.yml"),
		}, nil)
		require.NoError(t, err)
		require.Len(t, sources, 3)
		// The later -c entry comes last and therefore merges last.
		assert.Equal(t, filepath.Join(tmpDir, "base.yml"), sources[2].Path)
	})

	t.Run("EmptyGlobIsNotAnError", func(t *testing.T) {
		tmpDir := t.TempDir()
		sources, err := ResolveSources([]string{filepath.Join(tmpDir, "*.yml")}, nil)
		require.NoError(t, err)
		assert.Empty(t, sources)
	})
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{name: "json", want: FormatJSON},
		{name: "yml", want: FormatYAML},
		{name: "yaml", want: FormatYAML},
		{name: "toml", want: FormatTOML},
		{name: "JSON", want: FormatJSON},
		{name: "ini", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("Name_"+tt.name, func(t *testing.T) {
			got, err := FormatFromName(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedConfigFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
