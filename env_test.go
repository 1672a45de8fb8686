// FILE: confweave/env_test.go
package confweave

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectVarsDirectEntries(t *testing.T) {
	t.Run("KeyValuePairs", func(t *testing.T) {
		vars, err := CollectVars([]string{"name=app", "port=8080"}, nil, CollectOptions{})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"name": "app", "port": "8080"}, vars)
	})

	t.Run("QuotedValuesStripped", func(t *testing.T) {
		vars, err := CollectVars([]string{`greeting="hello world"`, `motto='carpe diem'`}, nil, CollectOptions{})
		require.NoError(t, err)
		assert.Equal(t, "hello world", vars["greeting"])
		assert.Equal(t, "carpe diem", vars["motto"])
	})

	t.Run("MismatchedQuotesKept", func(t *testing.T) {
		vars, err := CollectVars([]string{`v="half`}, nil, CollectOptions{})
		require.NoError(t, err)
		assert.Equal(t, `"half`, vars["v"])
	})

	t.Run("ValueMayContainEquals", func(t *testing.T) {
		vars, err := CollectVars([]string{"dsn=host=db;port=5432"}, nil, CollectOptions{})
		require.NoError(t, err)
		assert.Equal(t, "host=db;port=5432", vars["dsn"])
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		vars, err := CollectVars([]string{"region=eu", "region=us"}, nil, CollectOptions{})
		require.NoError(t, err)
		assert.Equal(t, "us", vars["region"])
	})

	t.Run("MalformedEntry", func(t *testing.T) {
		_, err := CollectVars([]string{"not-a-file-and-not-an-assignment"}, nil, CollectOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedVariableEntry)
		assert.Contains(t, err.Error(), "not-a-file-and-not-an-assignment")
	})

	t.Run("EmptyKeyIsMalformed", func(t *testing.T) {
		_, err := CollectVars([]string{"=value"}, nil, CollectOptions{})
		assert.ErrorIs(t, err, ErrMalformedVariableEntry)
	})
}

func TestCollectVarsEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, "app.env")
	content := `
# database settings
db_host=localhost
db_port="5432"

db_name='appdb'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	vars, err := CollectVars([]string{envFile}, nil, CollectOptions{})
	require.NoError(t, err)

	assert.Equal(t, "localhost", vars["db_host"])
	assert.Equal(t, "5432", vars["db_port"])
	assert.Equal(t, "appdb", vars["db_name"])
	assert.Len(t, vars, 3)
}

func TestCollectVarsPrefixImport(t *testing.T) {
	environ := []string{"MYAPP_DB_HOST=x", "OTHER=y"}

	vars, err := CollectVars(nil, []string{"MYAPP_"}, CollectOptions{Environ: environ})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"db_host": "x"}, vars)
	assert.NotContains(t, vars, "other")
	assert.NotContains(t, vars, "OTHER")
}

func TestCollectVarsPrefixCaseInsensitive(t *testing.T) {
	environ := []string{"myapp_region=eu-west"}

	vars, err := CollectVars(nil, []string{"MYAPP_"}, CollectOptions{Environ: environ})
	require.NoError(t, err)
	assert.Equal(t, "eu-west", vars["region"])
}

// TestCollectVarsPrecedence pins the default category order: env files are
// the lowest, prefix imports override them, direct entries win overall.
func TestCollectVarsPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, "base.env")
	require.NoError(t, os.WriteFile(envFile, []byte("region=from-file\nonly_file=f\n"), 0644))

	entries := []string{envFile, "region=from-cli"}
	environ := []string{"MYAPP_REGION=from-env", "MYAPP_ONLY_ENV=e"}

	t.Run("DefaultOrder", func(t *testing.T) {
		vars, err := CollectVars(entries, []string{"MYAPP_"}, CollectOptions{Environ: environ})
		require.NoError(t, err)

		assert.Equal(t, "from-cli", vars["region"])
		assert.Equal(t, "f", vars["only_file"])
		assert.Equal(t, "e", vars["only_env"])
	})

	t.Run("CustomOrder", func(t *testing.T) {
		vars, err := CollectVars(entries, []string{"MYAPP_"}, CollectOptions{
			Environ: environ,
			Order:   []Source{SourceCLI, SourceEnv, SourceFile},
		})
		require.NoError(t, err)

		// Files are applied last here, so the file value wins.
		assert.Equal(t, "from-file", vars["region"])
	})

	t.Run("PrefixOverridesFile", func(t *testing.T) {
		vars, err := CollectVars([]string{envFile}, []string{"MYAPP_"}, CollectOptions{Environ: environ})
		require.NoError(t, err)
		assert.Equal(t, "from-env", vars["region"])
	})
}
