package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnvSetsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# credentials\nRIT_API_KEY=abc123\nexport APCA_API_SECRET_KEY=\"shh\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	unsetEnv(t, "RIT_API_KEY")
	unsetEnv(t, "APCA_API_SECRET_KEY")

	require.NoError(t, loadDotEnvIfPresent(path))

	assert.Equal(t, "abc123", os.Getenv("RIT_API_KEY"))
	assert.Equal(t, "shh", os.Getenv("APCA_API_SECRET_KEY"))
}

func TestLoadDotEnvStripsInlineComment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RIT_API_KEY=abc123 # paper key\n"), 0o600))
	unsetEnv(t, "RIT_API_KEY")

	require.NoError(t, loadDotEnvIfPresent(path))

	assert.Equal(t, "abc123", os.Getenv("RIT_API_KEY"))
}

func TestLoadDotEnvDoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RIT_API_KEY=from_file\n"), 0o600))
	t.Setenv("RIT_API_KEY", "from_env")

	require.NoError(t, loadDotEnvIfPresent(path))

	assert.Equal(t, "from_env", os.Getenv("RIT_API_KEY"))
}

func TestLoadDotEnvMissingFileIsIgnored(t *testing.T) {
	assert.NoError(t, loadDotEnvIfPresent(filepath.Join(t.TempDir(), ".env")))
}

// unsetEnv removes key for the duration of the test and restores it after.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
