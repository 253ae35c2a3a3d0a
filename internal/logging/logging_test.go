package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func zapLevel(t *testing.T, name string) zapcore.Level {
	t.Helper()
	level, err := zapcore.ParseLevel(name)
	require.NoError(t, err)
	return level
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"empty fields fall back", Config{}, false},
		{"console format", Config{Level: "debug", Format: "console"}, false},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "warn", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Sync() //nolint:errcheck

	assert.False(t, logger.Core().Enabled(zapLevel(t, "info")))
	assert.True(t, logger.Core().Enabled(zapLevel(t, "error")))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
