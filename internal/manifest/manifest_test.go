package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/publish-prerelease/internal/model"
)

// writeManifest creates a manifest file with the given content in a fresh
// temporary directory and returns its path.
func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// requireExitCode asserts that err is a CLIError with the given code.
func requireExitCode(t *testing.T, err error, code model.ExitCode) {
	t.Helper()

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected CLIError, got %T: %v", err, err)
	assert.Equal(t, code, cliErr.Code)
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `{
  "name": "truffle",
  "version": "4.1.12",
  "scripts": {"publish:next": "node ./scripts/publish.js develop next"}
}`)

	pkg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "truffle", pkg.Name)
	assert.Equal(t, "4.1.12", pkg.Version)
	assert.Equal(t, path, pkg.Path)
}

func TestLoad_CommentsAndTrailingCommas(t *testing.T) {
	path := writeManifest(t, `{
  // published from the develop branch
  "name": "truffle",
  "version": "4.2.0-next.0", /* bumped by npm version */
}`)

	pkg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "4.2.0-next.0", pkg.Version)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), DefaultFile))
		requireExitCode(t, err, model.ExitManifestError)
		assert.Contains(t, err.Error(), "manifest not found")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Load(writeManifest(t, `{"version": `))
		requireExitCode(t, err, model.ExitManifestError)
	})

	t.Run("version of the wrong type", func(t *testing.T) {
		_, err := Load(writeManifest(t, `{"version": 4}`))
		requireExitCode(t, err, model.ExitManifestError)
	})

	t.Run("no version field", func(t *testing.T) {
		_, err := Load(writeManifest(t, `{"name": "truffle"}`))
		requireExitCode(t, err, model.ExitManifestError)
		assert.Contains(t, err.Error(), "no version field")
	})

	t.Run("blank version", func(t *testing.T) {
		_, err := Load(writeManifest(t, `{"version": "  "}`))
		requireExitCode(t, err, model.ExitManifestError)
	})
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", "package.json"), Resolve("/repo", ""))
	assert.Equal(t, filepath.Join("/repo", "packages", "core", "package.json"), Resolve("/repo", "packages/core/package.json"))
	assert.Equal(t, "/elsewhere/package.json", Resolve("/repo", "/elsewhere/package.json"))
}

// TestFile_LoadRereads verifies that File reads the manifest on each call,
// so a checkout between constructing and loading is picked up.
func TestFile_LoadRereads(t *testing.T) {
	path := writeManifest(t, `{"version": "1.0.0"}`)
	f := File{Path: path}

	pkg, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", pkg.Version)

	require.NoError(t, os.WriteFile(path, []byte(`{"version": "2.0.0-next.0"}`), 0644))

	pkg, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, "2.0.0-next.0", pkg.Version)
}
