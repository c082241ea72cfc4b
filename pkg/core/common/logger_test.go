package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger_Console(t *testing.T) {
	logger := NewLogger(DefaultLoggingConfig())
	assert.NotNil(t, logger)
	logger.Debug().Str("component", "test").Msg("below the configured level")
}

func TestNewLogger_FileWriter(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(LoggingConfig{
		Level:  "debug",
		Output: []string{"file"},
		File:   filepath.Join(dir, "nested", "valuation.log"),
	})
	assert.NotNil(t, logger)
	assert.DirExists(t, filepath.Join(dir, "nested"))
}
