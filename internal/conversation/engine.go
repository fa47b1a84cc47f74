// Package conversation runs one turn against a thread: it replays the
// thread's recent messages to the model and appends the exchange to the log.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"persona-chatter/internal/history"
	"persona-chatter/internal/llm"
	"persona-chatter/internal/storage"
)

const (
	DefaultWindow  = 10
	DefaultTimeout = 60 * time.Second
	maxToolRounds  = 3
)

// ToolRunner executes tool calls on behalf of a user.
type ToolRunner interface {
	Definitions() []llm.Tool
	Call(ctx context.Context, userID string, call llm.ToolCall) (string, error)
}

type Turn struct {
	UserID       string
	ThreadID     string
	Persona      string
	SystemPrompt string
	Message      string
}

type Result struct {
	Reply     string
	ToolCalls []string
	Usage     llm.Response
}

type Option func(*Engine)

// WithWindow and WithTimeout ignore non-positive values.
func WithWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.window = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTools offers tools to providers that support function calling.
func WithTools(t ToolRunner) Option { return func(e *Engine) { e.tools = t } }

// WithRecorder appends every completed turn to an audit log.
func WithRecorder(r storage.Recorder) Option { return func(e *Engine) { e.recorder = r } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

type Engine struct {
	client   llm.Client
	log      storage.MessageLog
	tools    ToolRunner
	recorder storage.Recorder
	logger   *zap.Logger
	window   int
	timeout  time.Duration
	now      func() time.Time
}

func NewEngine(client llm.Client, log storage.MessageLog, opts ...Option) *Engine {
	e := &Engine{
		client:  client,
		log:     log,
		logger:  zap.NewNop(),
		window:  DefaultWindow,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run appends the user message, generates a reply and appends it together
// with any tool records. On generation failure only the user message stays
// in the log.
func (e *Engine) Run(ctx context.Context, turn Turn) (Result, error) {
	past, err := e.log.Read(ctx, turn.ThreadID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read thread: %w", err)
	}

	if err := e.log.Append(ctx, turn.ThreadID, storage.Message{
		Role:      storage.RoleHuman,
		Content:   turn.Message,
		CreatedAt: e.now(),
	}); err != nil {
		return Result{}, fmt.Errorf("failed to append user message: %w", err)
	}

	msgs := make([]llm.Message, 0, e.window+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: turn.SystemPrompt})
	msgs = append(msgs, history.Window(past, e.window)...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: turn.Message})

	gctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.now()
	resp, toolRecords, err := e.generate(gctx, turn.UserID, msgs)
	if err != nil {
		return Result{}, err
	}
	e.logger.Info("🤖 Reply generated",
		zap.String("user_id", turn.UserID),
		zap.String("persona", turn.Persona),
		zap.Duration("took", e.now().Sub(start)),
		zap.Int("tokens", resp.TotalTokens))

	records := append(toolRecords, storage.Message{Role: storage.RoleAI, Content: resp.Content, CreatedAt: e.now()})
	if err := e.log.Append(ctx, turn.ThreadID, records...); err != nil {
		return Result{}, fmt.Errorf("failed to append reply: %w", err)
	}

	res := Result{Reply: resp.Content, Usage: resp}
	for _, r := range toolRecords {
		res.ToolCalls = append(res.ToolCalls, r.Name)
	}

	if e.recorder != nil {
		if err := e.recorder.AppendInteraction(storage.Event{
			Timestamp:         e.now(),
			UserID:            turn.UserID,
			Persona:           turn.Persona,
			ThreadID:          turn.ThreadID,
			UserMessage:       turn.Message,
			AssistantResponse: resp.Content,
			ToolCalls:         res.ToolCalls,
		}); err != nil {
			e.logger.Warn("⚠️ Failed to record turn", zap.Error(err))
		}
	}
	return res, nil
}

func (e *Engine) generate(ctx context.Context, userID string, msgs []llm.Message) (llm.Response, []storage.Message, error) {
	caller, ok := e.client.(llm.ToolCaller)
	if e.tools == nil || !ok {
		resp, err := e.client.Generate(ctx, msgs)
		if err != nil {
			return llm.Response{}, nil, fmt.Errorf("generation failed: %w", err)
		}
		return resp, nil, nil
	}

	defs := e.tools.Definitions()
	var records []storage.Message
	for round := 0; round < maxToolRounds; round++ {
		resp, err := caller.GenerateWithTools(ctx, msgs, defs)
		if err != nil {
			return llm.Response{}, nil, fmt.Errorf("generation failed: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			return resp, records, nil
		}

		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, tc := range resp.ToolCalls {
			out, err := e.tools.Call(ctx, userID, tc)
			if err != nil {
				e.logger.Warn("⚠️ Tool call failed", zap.String("tool", tc.Function.Name), zap.Error(err))
				out = "error: " + err.Error()
			}
			msgs = append(msgs, llm.Message{Role: llm.RoleTool, Content: out, ToolCallID: tc.ID})
			records = append(records, storage.Message{
				Role:      storage.RoleTool,
				Name:      tc.Function.Name,
				Content:   out,
				CreatedAt: e.now(),
			})
		}
	}

	// Out of rounds: ask for a plain answer.
	resp, err := e.client.Generate(ctx, msgs)
	if err != nil {
		return llm.Response{}, nil, fmt.Errorf("generation failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return llm.Response{}, nil, fmt.Errorf("generation failed: empty reply after tool calls")
	}
	return resp, records, nil
}
