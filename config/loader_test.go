package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoaderLayering(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	work := filepath.Join(project, "sub", "dir")
	require.NoError(t, os.MkdirAll(work, 0755))

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
sandbox:
  root: /user/root
  mode: lexical
server:
  addr: ":7000"
`)
	writeFile(t, filepath.Join(project, ProjectConfigFile), `
sandbox:
  root: /project/root
`)

	cfg, err := NewLoader(nil).WithDirs(work, home).Load()
	require.NoError(t, err)

	assert.Equal(t, "/project/root", cfg.Sandbox.Root, "project overrides user")
	assert.Equal(t, "lexical", cfg.Sandbox.Mode, "user value survives project layer")
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoaderProjectLayerDisablesBoolean(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), "http:\n  allow_private: true\nnats:\n  embedded: true\n")
	writeFile(t, filepath.Join(work, ProjectConfigFile), "http:\n  allow_private: false\n")

	cfg, err := NewLoader(nil).WithDirs(work, home).Load()
	require.NoError(t, err)

	assert.False(t, cfg.HTTP.AllowPrivate, "project layer turns allow_private off")
	assert.True(t, cfg.NATS.Embedded, "omitted key keeps user value")
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv(EnvRoot, "/env/root")
	t.Setenv(EnvNATSURL, "nats://env:4222")

	cfg, err := NewLoader(nil).WithDirs(t.TempDir(), t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, "/env/root", cfg.Sandbox.Root)
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
}

func TestLoaderInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "sandbox:\n  root: relative\n")

	_, err := NewLoader(nil).LoadFile(path)
	assert.Error(t, err)

	_, err = NewLoader(nil).LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	loader := NewLoader(nil).WithDirs(t.TempDir(), home)

	path, created, err := loader.EnsureUserConfig()
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, filepath.Join(home, UserConfigDir, UserConfigFile), path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	// The written defaults load back as a valid config
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Sandbox.Root, cfg.Sandbox.Root)

	// Second call leaves the existing file alone
	_, created, err = loader.EnsureUserConfig()
	require.NoError(t, err)
	assert.False(t, created)
}

func TestExpandEnvWithDefaults(t *testing.T) {
	t.Setenv("SEMTASKS_TEST_SET", "value")

	tests := []struct {
		input    string
		expected string
	}{
		{input: "${SEMTASKS_TEST_SET}", expected: "value"},
		{input: "${SEMTASKS_TEST_UNSET:-fallback}", expected: "fallback"},
		{input: "${SEMTASKS_TEST_SET:-fallback}", expected: "value"},
		{input: "${SEMTASKS_TEST_UNSET}", expected: ""},
		{input: "nats://${SEMTASKS_TEST_UNSET:-localhost}:4222", expected: "nats://localhost:4222"},
		{input: "no refs", expected: "no refs"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandEnvWithDefaults(tt.input))
		})
	}
}
