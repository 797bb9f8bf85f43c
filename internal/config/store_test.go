package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", ConfigFile)

	s, err := Load(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	lang, ok := s.Get("lang")
	require.True(t, ok)
	assert.Equal(t, "en", lang)
	assert.True(t, s.Bool("hide_log_by_default", false))
	assert.True(t, s.Bool("make_backup", false))
	assert.Equal(t, "1.0", s.String("version", ""))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "en", raw["lang"])
}

func TestSetSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	s, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("lang", "de"))
	require.NoError(t, s.Set("hide_log_by_default", "false"))
	require.NoError(t, s.Set("source_dir", "/games/msc"))
	require.NoError(t, s.Save())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "de", again.String("lang", "en"))
	assert.False(t, again.Bool("hide_log_by_default", true))
	assert.Equal(t, "/games/msc", again.String("source_dir", ""))
}

func TestExistingFileKeepsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("lang: fi\ntheme: dark\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fi", s.String("lang", ""))
	assert.Equal(t, "dark", s.String("theme", ""))
	// defaults fill the gaps
	assert.Equal(t, "INFO", s.String("log_level", ""))
	assert.Contains(t, s.Keys(), "theme")
}

func TestEnvOverridesButIsNotSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	t.Setenv("SAVEMANAGER_LOG_LEVEL", "DEBUG")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", s.String("log_level", ""))

	require.NoError(t, s.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "log_level: INFO")
}

func TestStringDefault(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), ConfigFile))
	require.NoError(t, err)

	assert.Equal(t, "fallback", s.String("saves_dir", "fallback"))
	assert.Equal(t, "fallback", s.String("no_such_key", "fallback"))
	assert.True(t, s.Bool("no_such_key", true))
}

func TestLoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("lang: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLayout(t *testing.T) {
	p := Layout("/data")
	assert.Equal(t, filepath.Join("/data", "saves"), p.SavesDir)
	assert.Equal(t, filepath.Join("/data", "metadata"), p.MetadataDir)
	assert.Equal(t, filepath.Join("/data", "programmLog.txt"), p.LogFile)
	assert.Equal(t, filepath.Join("/data", "config.yaml"), p.ConfigFile)
}

func TestDefaultRootFromEnv(t *testing.T) {
	t.Setenv("SAVEMANAGER_ROOT", "/tmp/sm")
	assert.Equal(t, "/tmp/sm", DefaultRoot())
}
