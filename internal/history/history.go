// Package history projects stored threads into per-persona transcripts and
// builds the context window sent to the model.
package history

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"persona-chatter/internal/llm"
	"persona-chatter/internal/persona"
	"persona-chatter/internal/storage"
	"persona-chatter/internal/threads"
)

const readConcurrency = 4

// Entry is one displayed message.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Directory interface {
	Threads(ctx context.Context, userID string) ([]threads.Mapping, error)
}

type Personas interface {
	Has(name string) bool
	Resolve(name string) persona.Persona
}

type Projector struct {
	dir      Directory
	log      storage.MessageLog
	personas Personas
}

func NewProjector(dir Directory, log storage.MessageLog, personas Personas) *Projector {
	return &Projector{dir: dir, log: log, personas: personas}
}

// History returns every thread of userID keyed by persona display name.
// An unknown user yields an empty map.
func (p *Projector) History(ctx context.Context, userID string) (map[string][]Entry, error) {
	mappings, err := p.dir.Threads(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([][]Entry, len(mappings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, m := range mappings {
		g.Go(func() error {
			msgs, err := p.log.Read(gctx, m.ThreadID)
			if err != nil {
				return fmt.Errorf("failed to read thread %s: %w", m.ThreadID, err)
			}
			entries := make([]Entry, 0, len(msgs))
			for _, msg := range msgs {
				entries = append(entries, Entry{Role: msg.Role, Content: msg.Content})
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]Entry, len(mappings))
	for i, m := range mappings {
		label := p.displayName(m.Persona)
		if _, taken := out[label]; taken {
			label = fmt.Sprintf("%s (%s)", label, m.Persona)
		}
		out[label] = results[i]
	}
	return out, nil
}

func (p *Projector) displayName(name string) string {
	if p.personas != nil && p.personas.Has(name) {
		return p.personas.Resolve(name).DisplayName
	}
	return persona.DisplayName(name)
}

// Window converts the last n human/ai messages into model messages.
// Tool records stay in the log but are not replayed.
func Window(msgs []storage.Message, n int) []llm.Message {
	var out []llm.Message
	for _, m := range msgs {
		switch m.Role {
		case storage.RoleHuman:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case storage.RoleAI:
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	if n >= 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
