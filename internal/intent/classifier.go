package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"persona-chatter/internal/llm"
)

type Mode string

const (
	ModeLLM     Mode = "llm"
	ModeKeyword Mode = "keyword"
	ModeHybrid  Mode = "hybrid"
)

// DefaultTimeout bounds a single LLM classification.
const DefaultTimeout = 15 * time.Second

// Classifier never fails: every error degrades to a fallback decision.
type Classifier interface {
	Classify(ctx context.Context, message string, known []string) Decision
}

// Router combines the LLM and keyword paths according to Mode.
type Router struct {
	mode    Mode
	llm     *LLMClassifier
	keyword *KeywordClassifier
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a classifier. A hybrid router without a client only uses
// keywords.
func New(mode string, client llm.Client, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := Mode(strings.ToLower(strings.TrimSpace(mode)))
	if m == "" {
		m = ModeHybrid
	}
	r := &Router{mode: m, timeout: DefaultTimeout, logger: logger}
	switch m {
	case ModeLLM:
		if client == nil {
			return nil, fmt.Errorf("classifier mode %q needs an llm client", m)
		}
	case ModeKeyword, ModeHybrid:
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", mode)
	}
	if client != nil && m != ModeKeyword {
		r.llm = NewLLMClassifier(client)
	}
	if m != ModeLLM {
		kw, err := NewKeywordClassifier()
		if err != nil {
			return nil, err
		}
		r.keyword = kw
	}
	return r, nil
}

// WithTimeout overrides DefaultTimeout.
func (r *Router) WithTimeout(d time.Duration) *Router {
	r.timeout = d
	return r
}

func (r *Router) Mode() Mode { return r.mode }

func (r *Router) Classify(ctx context.Context, message string, known []string) Decision {
	if strings.TrimSpace(message) == "" {
		return Continue{}
	}

	if r.llm != nil {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		d, err := r.llm.Classify(cctx, message, known)
		cancel()
		if err == nil {
			return Normalize(d, known)
		}
		r.logger.Warn("⚠️ LLM classification failed", zap.String("mode", string(r.mode)), zap.Error(err))
		if r.keyword == nil {
			return Continue{}
		}
		// A failed classification may switch to a known persona but never
		// creates one.
		if d, ok := Normalize(r.keyword.Classify(ctx, message, known), known).(SwitchTo); ok {
			return d
		}
		return Continue{}
	}
	return Normalize(r.keyword.Classify(ctx, message, known), known)
}
