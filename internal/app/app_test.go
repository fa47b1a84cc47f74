package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-chatter/internal/config"
	"persona-chatter/internal/llm"
)

type fakeLLM struct{}

func (fakeLLM) Generate(_ context.Context, msgs []llm.Message) (llm.Response, error) {
	return llm.Response{Content: "ok: " + msgs[len(msgs)-1].Content}, nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		LLMProvider:    config.ProviderOpenAI,
		LLMTimeout:     5 * time.Second,
		ClassifierMode: "hybrid",
		HistoryWindow:  10,
		ToolsEnabled:   true,
		DBPath:         filepath.Join(dir, "data", "chat.db"),
		LogFilePath:    filepath.Join(dir, "logs", "turns.jsonl"),
		ReportCron:     "0 21 * * *",
	}
}

func TestOpenConnectChat(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Connect(ctx, fakeLLM{}))

	r, err := a.Orchestrator.Chat(ctx, "u1", "act like my mentor")
	require.NoError(t, err)
	assert.Equal(t, "Mentor", r.Persona)
	require.NoError(t, a.Close())

	// State survives a restart.
	a, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.Connect(ctx, fakeLLM{}))

	again, err := a.Orchestrator.Chat(ctx, "u1", "and now?")
	require.NoError(t, err)
	assert.Equal(t, r.ThreadID, again.ThreadID)

	events, err := a.Recorder.LoadInteractions()
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestConnectWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Error(t, a.Connect(ctx, nil))
}

func TestConnectRejectsUnknownClassifierMode(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.ClassifierMode = "tarot"
	a, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Error(t, a.Connect(ctx, fakeLLM{}))
}
