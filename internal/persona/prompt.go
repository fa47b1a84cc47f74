package persona

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"persona-chatter/internal/llm"
)

const promptWriterInstruction = `You write system prompts for chat assistants.
Given a persona name and an optional description, reply with a single system
prompt of two to four sentences, in the second person ("You are ..."), that
makes the assistant play that persona. Reply with the prompt text only.`

// DefaultPromptTimeout bounds a single prompt generation.
const DefaultPromptTimeout = 60 * time.Second

// PromptWriter drafts system prompts for personas created at runtime.
type PromptWriter struct {
	client  llm.Client
	logger  *zap.Logger
	timeout time.Duration
}

type PromptWriterOption func(*PromptWriter)

// WithPromptTimeout overrides DefaultPromptTimeout; non-positive values are ignored.
func WithPromptTimeout(d time.Duration) PromptWriterOption {
	return func(w *PromptWriter) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func NewPromptWriter(client llm.Client, logger *zap.Logger, opts ...PromptWriterOption) *PromptWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &PromptWriter{client: client, logger: logger, timeout: DefaultPromptTimeout}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Write returns a generated prompt, or a templated one when generation
// fails, times out or returns nothing.
func (w *PromptWriter) Write(ctx context.Context, name, description string) string {
	if w.client == nil {
		return TemplatePrompt(name, description)
	}
	user := "Persona name: " + name
	if description != "" {
		user += "\nDescription: " + description
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	resp, err := w.client.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: promptWriterInstruction},
		{Role: llm.RoleUser, Content: user},
	})
	if err != nil {
		w.logger.Warn("⚠️ Prompt generation failed, using template", zap.String("persona", name), zap.Error(err))
		return TemplatePrompt(name, description)
	}
	prompt := strings.TrimSpace(resp.Content)
	if prompt == "" {
		return TemplatePrompt(name, description)
	}
	return prompt
}

// TemplatePrompt is the deterministic prompt used without a model.
func TemplatePrompt(name, description string) string {
	p := fmt.Sprintf("You are a %s. Stay in character as a %s while staying helpful to the user.", name, name)
	if description = strings.TrimSpace(description); description != "" {
		p += " Persona details: " + description
	}
	return p
}
