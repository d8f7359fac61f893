package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagelist.log")

	logger, err := New(config.LoggingConfig{Level: "info", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("Evaluated page list")
	logger.Debug("filtered out by level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Evaluated page list")
	assert.NotContains(t, string(data), "filtered out by level")
}
