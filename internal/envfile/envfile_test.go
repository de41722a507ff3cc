package envfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/docfill/internal/model"
)

const exampleEnv = "# Gemini key for placeholder analysis\nGEMINI_API_KEY=your_api_key_here\n"

func TestBootstrap_CreatesFromTemplate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, ".env")
	template := filepath.Join(dir, ".env.example")
	require.NoError(t, os.WriteFile(template, []byte(exampleEnv), 0o644))

	created, err := Bootstrap(target, template)
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, exampleEnv, string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// TestBootstrap_KeepsExisting verifies that an operator's edited .env is
// never overwritten by the template.
func TestBootstrap_KeepsExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, ".env")
	template := filepath.Join(dir, ".env.example")
	require.NoError(t, os.WriteFile(template, []byte(exampleEnv), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("GEMINI_API_KEY=real\n"), 0o600))

	created, err := Bootstrap(target, template)
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "GEMINI_API_KEY=real\n", string(data))
}

func TestBootstrap_ExistingTargetWithoutTemplate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(target, []byte("A=1\n"), 0o600))

	created, err := Bootstrap(target, filepath.Join(dir, ".env.example"))
	require.NoError(t, err)
	assert.False(t, created)
}

func TestBootstrap_BothMissing(t *testing.T) {
	dir := t.TempDir()

	created, err := Bootstrap(filepath.Join(dir, ".env"), filepath.Join(dir, ".env.example"))
	require.Error(t, err)
	assert.False(t, created)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.KindEnvTemplateMissing, cliErr.Kind)
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)

	_, statErr := os.Stat(filepath.Join(dir, ".env"))
	assert.True(t, os.IsNotExist(statErr), ".env must not be created")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := `# comment
GEMINI_API_KEY=abc123
export LOG_LEVEL=debug
QUOTED="hello world"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	vars, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", vars["GEMINI_API_KEY"])
	assert.Equal(t, "debug", vars["LOG_LEVEL"])
	assert.Equal(t, "hello world", vars["QUOTED"])
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ".env"))
	assert.Error(t, err)
}

func TestToList(t *testing.T) {
	list := ToList(map[string]string{"B": "2", "A": "1", "GEMINI_API_KEY": "k"})
	assert.Equal(t, []string{"A=1", "B=2", "GEMINI_API_KEY=k"}, list)

	assert.Empty(t, ToList(nil))
}

func TestCheckRequired(t *testing.T) {
	vars := map[string]string{"GEMINI_API_KEY": "  ", "OTHER": "x"}

	assert.Equal(t, []string{"GEMINI_API_KEY", "MISSING"}, CheckRequired(vars, APIKeyVar, "MISSING", "OTHER"))
	assert.Empty(t, CheckRequired(vars, "OTHER"))
}
