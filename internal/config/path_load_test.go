package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvFingerprintToken, "")
	t.Setenv(EnvTranscriptionKey, "")
	t.Setenv(EnvLyricsToken, "")
}

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "earworm", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "earworm", "config.jsonc"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	clearCredentialEnv(t)
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadMissingConfigStillAppliesEnvCredentials(t *testing.T) {
	t.Setenv(EnvFingerprintToken, "audd-token-0123")
	t.Setenv(EnvTranscriptionKey, "assembly-key-0123")
	t.Setenv(EnvLyricsToken, "genius-token-0123")

	loaded, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.NoError(t, err)
	require.Equal(t, "audd-token-0123", loaded.Config.Credentials.Fingerprint)
	require.NoError(t, CheckCredentials(loaded.Config))
	require.Len(t, loaded.Warnings, 1)
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	clearCredentialEnv(t)
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  // service secrets
  "credentials": {
    "fingerprint": "audd-token-0123",
    "transcription": "assembly-key-0123",
    "lyrics": "genius-token-0123",
  },
  "recognition": {
    "language": "VI",
    "chunk_interval_ms": 6000
  },
  "history": {
    "backend": "none"
  }
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "vi", loaded.Config.Recognition.Language)
	require.Equal(t, 6000, loaded.Config.Recognition.ChunkIntervalMS)
	require.Equal(t, "none", loaded.Config.History.Backend)
	require.Empty(t, loaded.Warnings)
	require.NoError(t, CheckCredentials(loaded.Config))
}

func TestLoadEnvOverridesFileCredential(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv(EnvLyricsToken, "from-environment")
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"credentials":{"lyrics":"from-file-token"}}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-environment", loaded.Config.Credentials.Lyrics)
	require.Contains(t, loaded.Warnings[0].Message, EnvLyricsToken)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse("language = vi", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")
}
