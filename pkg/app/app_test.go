package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinsic_valuation/pkg/core/config"
)

func TestNew_WithoutDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Output = nil

	a, err := New(context.Background(), &cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Engine)
	assert.NotNil(t, a.Source)
	assert.NotNil(t, a.Narrator)
	assert.Nil(t, a.Runs)
	assert.Nil(t, a.Portfolio)
	assert.Equal(t, cfg.Valuation.Graham.BondYield, a.Yields.Yield(context.Background()))
}

func TestNew_BadTemplatePath(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Output = nil
	cfg.Narrative.TemplatePath = t.TempDir() + "/missing.json"

	_, err := New(context.Background(), &cfg)
	assert.Error(t, err)
}

func TestNew_InvalidParams(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Output = nil
	cfg.Valuation.HistoryWindow = 0

	_, err := New(context.Background(), &cfg)
	assert.Error(t, err)
}
