package conversation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-chatter/internal/llm"
	"persona-chatter/internal/storage"
	"persona-chatter/internal/tools"
)

type fakeLLM struct {
	mu      sync.Mutex
	replies []llm.Response
	err     error
	calls   [][]llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, msgs []llm.Message) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]llm.Message(nil), msgs...))
	if f.err != nil {
		return llm.Response{}, f.err
	}
	if len(f.replies) == 0 {
		return llm.Response{Content: fmt.Sprintf("reply %d", len(f.calls))}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

type toolLLM struct {
	fakeLLM
	toolCalls int
}

func (f *toolLLM) GenerateWithTools(ctx context.Context, msgs []llm.Message, defs []llm.Tool) (llm.Response, error) {
	f.toolCalls++
	return f.Generate(ctx, msgs)
}

func turn(msg string) Turn {
	return Turn{UserID: "u1", ThreadID: "t1", Persona: "mentor", SystemPrompt: "You mentor.", Message: msg}
}

func TestRunAppendsExchange(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	f := &fakeLLM{replies: []llm.Response{{Content: "hi there"}}}

	res, err := NewEngine(f, store).Run(ctx, turn("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hi there", res.Reply)

	msgs, err := store.Read(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, storage.RoleHuman, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, storage.RoleAI, msgs[1].Role)

	require.Len(t, f.calls, 1)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleSystem, Content: "You mentor."},
		{Role: llm.RoleUser, Content: "hello"},
	}, f.calls[0])
}

func TestRunUsesWindow(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	f := &fakeLLM{}
	e := NewEngine(f, store, WithWindow(4))

	for i := 0; i < 5; i++ {
		_, err := e.Run(ctx, turn(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
	}

	last := f.calls[len(f.calls)-1]
	// system + 4 windowed + current
	require.Len(t, last, 6)
	assert.Equal(t, "m2", last[1].Content)
	assert.Equal(t, "m4", last[5].Content)
}

func TestRunGenerationFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	f := &fakeLLM{err: errors.New("503")}

	_, err := NewEngine(f, store).Run(ctx, turn("hello"))
	require.Error(t, err)

	msgs, err := store.Read(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, storage.RoleHuman, msgs[0].Role)
}

func TestRunTimeout(t *testing.T) {
	block := &blockingLLM{}
	_, err := NewEngine(block, storage.NewMemoryStore(), WithTimeout(10*time.Millisecond)).Run(context.Background(), turn("hi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingLLM struct{}

func (blockingLLM) Generate(ctx context.Context, _ []llm.Message) (llm.Response, error) {
	<-ctx.Done()
	return llm.Response{}, ctx.Err()
}

func TestRunToolLoop(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	f := &toolLLM{fakeLLM: fakeLLM{replies: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Function: llm.FunctionCall{Name: tools.ToolAdd, Arguments: map[string]interface{}{"a": 2.0, "b": 3.0}}}}},
		{Content: "The sum is 5."},
	}}}

	rec, err := storage.NewFileRecorder(filepath.Join(t.TempDir(), "turns.jsonl"))
	require.NoError(t, err)

	e := NewEngine(f, store, WithTools(tools.NewToolbox(store, nil)), WithRecorder(rec))
	res, err := e.Run(ctx, turn("what is 2+3?"))
	require.NoError(t, err)
	assert.Equal(t, "The sum is 5.", res.Reply)
	assert.Equal(t, []string{tools.ToolAdd}, res.ToolCalls)
	assert.Equal(t, 2, f.toolCalls)

	second := f.calls[1]
	toolMsg := second[len(second)-1]
	assert.Equal(t, llm.RoleTool, toolMsg.Role)
	assert.Equal(t, "5", toolMsg.Content)
	assert.Equal(t, "c1", toolMsg.ToolCallID)

	msgs, err := store.Read(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{storage.RoleHuman, storage.RoleTool, storage.RoleAI}, []string{msgs[0].Role, msgs[1].Role, msgs[2].Role})
	assert.Equal(t, tools.ToolAdd, msgs[1].Name)

	events, err := rec.LoadInteractions()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "mentor", events[0].Persona)
	assert.Equal(t, []string{tools.ToolAdd}, events[0].ToolCalls)
}

func TestRunToolRoundsAreBounded(t *testing.T) {
	loop := llm.Response{ToolCalls: []llm.ToolCall{{ID: "c", Function: llm.FunctionCall{Name: tools.ToolGetUserInfo}}}}
	f := &toolLLM{fakeLLM: fakeLLM{replies: []llm.Response{loop, loop, loop, {Content: "done"}}}}
	store := storage.NewMemoryStore()

	res, err := NewEngine(f, store, WithTools(tools.NewToolbox(store, nil))).Run(context.Background(), turn("who am I?"))
	require.NoError(t, err)
	assert.Equal(t, "done", res.Reply)
	assert.Equal(t, maxToolRounds, f.toolCalls)
	assert.Len(t, res.ToolCalls, maxToolRounds)
}

func TestRunWithoutToolSupportIgnoresTools(t *testing.T) {
	store := storage.NewMemoryStore()
	f := &fakeLLM{}
	_, err := NewEngine(f, store, WithTools(tools.NewToolbox(store, nil))).Run(context.Background(), turn("hi"))
	require.NoError(t, err)
	assert.Len(t, f.calls, 1)
}
