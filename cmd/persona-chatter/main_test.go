package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestPersonaCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_FILE_PATH", filepath.Join(dir, "turns.jsonl"))
	db := filepath.Join(dir, "chat.db")

	out := run(t, "--env-file", "", "--log-level", "error", "--db", db, "personas", "add", "pirate", "Talk", "like", "a", "pirate.")
	assert.Contains(t, out, "registered pirate (Pirate)")

	out = run(t, "--env-file", "", "--log-level", "error", "--db", db, "personas", "list")
	for _, name := range []string{"base", "investor", "mentor", "pirate"} {
		assert.Contains(t, out, name)
	}

	out = run(t, "--env-file", "", "--log-level", "error", "--db", db, "history", "nobody")
	assert.Contains(t, out, `"user_id": "nobody"`)

	out = run(t, "--env-file", "", "--log-level", "error", "--db", db, "report", "--date", "2024-01-15")
	assert.Contains(t, out, "2024-01-15")
}
