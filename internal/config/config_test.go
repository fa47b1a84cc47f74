package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, 10, cfg.HistoryWindow)
	assert.Equal(t, "hybrid", cfg.ClassifierMode)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.True(t, cfg.ToolsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("HISTORY_WINDOW", "4")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("CLASSIFIER_MODE", "keyword")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.LLMProvider)
	assert.Equal(t, 4, cfg.HistoryWindow)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "keyword", cfg.ClassifierMode)
}

func TestLoad_RejectsNonPositiveWindow(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "0")
	_, err := Load()
	require.Error(t, err)
}
