package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"persona-chatter/internal/llm"
)

const classifierInstruction = `You route chat messages between assistant personas.
Known personas: %s.
Decide what the user's latest message asks for:
- "continue": keep talking to the current persona (the default).
- "switch": talk to one of the known personas; set "persona" to its name.
- "create": the user asks for a persona that is not known; set "persona" to a
  short lowercase single-word name and "description" to what it should be.
Reply with JSON only: {"action": "...", "persona": "...", "description": "..."}.
Use empty strings for fields that do not apply.`

var decisionSchema = llm.Schema{
	Name:        "persona_decision",
	Description: "Routing decision for a chat message",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"action": {
				Type: jsonschema.String,
				Enum: []string{"continue", "switch", "create"},
			},
			"persona": {
				Type:        jsonschema.String,
				Description: "lowercase persona name, empty for continue",
			},
			"description": {
				Type:        jsonschema.String,
				Description: "what a new persona should be, empty unless create",
			},
		},
		Required:             []string{"action", "persona", "description"},
		AdditionalProperties: false,
	},
}

type llmDecision struct {
	Action      string `json:"action"`
	Persona     string `json:"persona"`
	Description string `json:"description"`
}

// LLMClassifier asks a model for a structured routing decision.
type LLMClassifier struct {
	client llm.Client
}

func NewLLMClassifier(client llm.Client) *LLMClassifier {
	return &LLMClassifier{client: client}
}

// Classify returns an error on transport failures and malformed replies.
func (c *LLMClassifier) Classify(ctx context.Context, message string, known []string) (Decision, error) {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(classifierInstruction, strings.Join(known, ", "))},
		{Role: llm.RoleUser, Content: message},
	}

	var (
		resp llm.Response
		err  error
	)
	if sg, ok := c.client.(llm.StructuredGenerator); ok {
		resp, err = sg.GenerateStructured(ctx, msgs, decisionSchema)
	} else {
		resp, err = c.client.Generate(ctx, msgs)
	}
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	return parseDecision(resp.Content)
}

func parseDecision(raw string) (Decision, error) {
	var d llmDecision
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &d); err != nil {
		return nil, fmt.Errorf("malformed classifier reply: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(d.Action)) {
	case "continue":
		return Continue{}, nil
	case "switch":
		if strings.TrimSpace(d.Persona) == "" {
			return nil, fmt.Errorf("switch without persona")
		}
		return SwitchTo{Name: d.Persona}, nil
	case "create":
		if strings.TrimSpace(d.Persona) == "" {
			return nil, fmt.Errorf("create without persona")
		}
		return CreateNew{Name: d.Persona, Description: strings.TrimSpace(d.Description)}, nil
	default:
		return nil, fmt.Errorf("unknown classifier action %q", d.Action)
	}
}

// stripCodeFence removes a ```json fence some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
