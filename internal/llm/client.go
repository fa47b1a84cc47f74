package llm

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	ToolCalls        []ToolCall
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// ToolCaller is implemented by providers that support function calling.
type ToolCaller interface {
	GenerateWithTools(ctx context.Context, messages []Message, tools []Tool) (Response, error)
}

// StructuredGenerator is implemented by providers that can constrain the
// reply to a JSON schema.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, messages []Message, schema Schema) (Response, error)
}

// Schema names a JSON schema for structured output.
type Schema struct {
	Name        string
	Description string
	Definition  jsonschema.Definition
}

type Tool struct {
	Type     string
	Function Function
}

type Function struct {
	Name        string
	Description string
	Parameters  any
}

type ToolCall struct {
	ID       string
	Type     string
	Function FunctionCall
}

type FunctionCall struct {
	Name      string
	Arguments map[string]interface{}
}
