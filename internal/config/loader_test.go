package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setHome points the loader at a throwaway home directory so tests
// never touch the real ~/.config/scribed.
func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeConfig(t *testing.T, home, content string) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "scribed")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithFile_DefaultsWhenNoFile(t *testing.T) {
	home := setHome(t)

	cfg, err := LoadWithFile("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 0.65, cfg.Detector.Threshold)
	assert.Equal(t, 0.85, cfg.Detector.AutoCaptureThreshold)
	assert.Equal(t, "memory", cfg.Similarity.Backend)
	assert.Equal(t, filepath.Join(home, ".config", "scribed", "review-queue.json"), cfg.Queue.Path)
	assert.Equal(t, filepath.Join(home, ".config", "scribed", "records.jsonl"), cfg.Records.Path)
}

func TestLoadWithFile_FileValues(t *testing.T) {
	home := setHome(t)
	path := writeConfig(t, home, `
server:
  port: 8123
detector:
  threshold: 0.70
  auto_capture_threshold: 0.90
logging:
  level: debug
  format: console
`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, 0.70, cfg.Detector.Threshold)
	assert.Equal(t, 0.90, cfg.Detector.AutoCaptureThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadWithFile_PartialLoggingKeepsOtherDefault(t *testing.T) {
	// Setting only the format must not reset the level, and vice versa.
	home := setHome(t)
	path := writeConfig(t, home, "logging:\n  format: console\n")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)

	path = writeConfig(t, home, "logging:\n  level: debug\n")
	cfg, err = LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	home := setHome(t)
	path := writeConfig(t, home, "server:\n  port: 8123\n")

	t.Setenv("SCRIBE_SERVER_PORT", "7777")
	t.Setenv("SCRIBE_LOGGING_LEVEL", "warn")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadWithFile_RejectsPathOutsideAllowedDirs(t *testing.T) {
	setHome(t)
	outside := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("server:\n  port: 8123\n"), 0o600))

	_, err := LoadWithFile(outside)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path validation")
}

func TestLoadWithFile_RejectsInsecurePermissions(t *testing.T) {
	home := setHome(t)
	path := writeConfig(t, home, "server:\n  port: 8123\n")
	require.NoError(t, os.Chmod(path, 0o644))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions")
}

func TestLoadWithFile_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"threshold out of range", "detector:\n  threshold: 1.5\n  auto_capture_threshold: 1.6\n"},
		{"auto below threshold", "detector:\n  threshold: 0.9\n  auto_capture_threshold: 0.7\n"},
		{"bad log level", "logging:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := setHome(t)
			path := writeConfig(t, home, tt.yaml)

			_, err := LoadWithFile(path)
			assert.Error(t, err)
		})
	}
}

func TestEnsureConfigDir(t *testing.T) {
	home := setHome(t)
	require.NoError(t, EnsureConfigDir())

	info, err := os.Stat(filepath.Join(home, ".config", "scribed"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		home := setHome(t)
		_ = home
		cfg, err := LoadWithFile("")
		require.NoError(t, err)
		return cfg
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cfg.Queue.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Records.Path = ""
	assert.Error(t, cfg.Validate())
}
