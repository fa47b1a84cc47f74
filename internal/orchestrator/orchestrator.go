// Package orchestrator runs a chat turn: classify the message, resolve the
// persona thread, invoke the conversation engine and report the result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"persona-chatter/internal/conversation"
	"persona-chatter/internal/intent"
	"persona-chatter/internal/persona"
	"persona-chatter/internal/threads"
)

// ErrGeneration wraps every failure of the conversation engine. The thread
// resolution of the failed turn stays committed.
var ErrGeneration = errors.New("generation failed")

type Reply struct {
	Response    string
	ThreadID    string
	Persona     string
	PersonaName string
	ToolCalls   []string
}

type Engine interface {
	Run(ctx context.Context, turn conversation.Turn) (conversation.Result, error)
}

type Orchestrator struct {
	registry   *persona.Registry
	classifier intent.Classifier
	directory  *threads.Directory
	engine     Engine
	writer     *persona.PromptWriter
	logger     *zap.Logger
}

func New(registry *persona.Registry, classifier intent.Classifier, directory *threads.Directory, engine Engine, writer *persona.PromptWriter, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if writer == nil {
		writer = persona.NewPromptWriter(nil, logger)
	}
	return &Orchestrator{
		registry:   registry,
		classifier: classifier,
		directory:  directory,
		engine:     engine,
		writer:     writer,
		logger:     logger,
	}
}

// Chat handles one user message.
func (o *Orchestrator) Chat(ctx context.Context, userID, message string) (Reply, error) {
	if err := o.registry.Refresh(ctx); err != nil {
		return Reply{}, err
	}
	if err := o.directory.Refresh(ctx, userID); err != nil {
		return Reply{}, err
	}

	decision := o.classifier.Classify(ctx, message, o.registry.Names())
	name, threadID, err := o.resolve(ctx, userID, decision)
	if err != nil {
		return Reply{}, err
	}

	p := o.registry.Resolve(name)
	res, err := o.engine.Run(ctx, conversation.Turn{
		UserID:       userID,
		ThreadID:     threadID,
		Persona:      p.Name,
		SystemPrompt: p.Prompt,
		Message:      message,
	})
	if err != nil {
		o.logger.Error("❌ Generation failed", zap.String("user_id", userID), zap.String("persona", p.Name), zap.Error(err))
		return Reply{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	return Reply{
		Response:    res.Reply,
		ThreadID:    threadID,
		Persona:     p.DisplayName,
		PersonaName: p.Name,
		ToolCalls:   res.ToolCalls,
	}, nil
}

// resolve turns a decision into (persona, thread) and moves the active
// pointer there.
func (o *Orchestrator) resolve(ctx context.Context, userID string, d intent.Decision) (string, string, error) {
	var name string
	switch v := d.(type) {
	case intent.SwitchTo:
		name = v.Name
	case intent.CreateNew:
		if !o.registry.Has(v.Name) {
			prompt := o.writer.Write(ctx, v.Name, v.Description)
			created, _, err := o.registry.Ensure(ctx, v.Name, v.Description, prompt)
			if err != nil {
				return "", "", err
			}
			name = created.Name
		} else {
			name = persona.Normalize(v.Name)
		}
	default:
		active, ok, err := o.directory.GetActive(ctx, userID)
		if err != nil {
			return "", "", err
		}
		if ok {
			current, found, err := o.directory.PersonaForThread(ctx, userID, active)
			if err != nil {
				return "", "", err
			}
			if found {
				return current, active, nil
			}
			o.logger.Warn("⚠️ Active thread not in directory, using base", zap.String("user_id", userID), zap.String("thread_id", active))
		}
		name = persona.BaseName
	}

	threadID, err := o.directory.ResolveThread(ctx, userID, name)
	if err != nil {
		return "", "", err
	}
	if err := o.directory.SetActive(ctx, userID, threadID); err != nil {
		return "", "", err
	}
	o.logger.Debug("🔀 Routed turn", zap.String("user_id", userID), zap.String("persona", name), zap.String("thread_id", threadID))
	return persona.Normalize(name), threadID, nil
}
