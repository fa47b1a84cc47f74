package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"persona-chatter/internal/storage"
)

// Registry maps persona names to prompts. The store is the source of truth;
// the in-memory view only changes after a successful durable write.
type Registry struct {
	kv       storage.KV
	logger   *zap.Logger
	seedPath string

	mu       sync.RWMutex
	personas map[string]Persona
}

func NewRegistry(kv storage.KV, seedPath string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		kv:       kv,
		logger:   logger,
		seedPath: seedPath,
		personas: map[string]Persona{},
	}
}

// Load seeds an empty store, then reads everything stored. Stored prompts
// are never overwritten by seed defaults.
func (r *Registry) Load(ctx context.Context) error {
	entries, err := r.kv.List(ctx, Namespace)
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}
	if len(entries) == 0 {
		seeds, err := LoadSeeds(r.seedPath)
		if err != nil {
			return err
		}
		for _, p := range seeds {
			if _, _, err := r.putIfAbsent(ctx, p); err != nil {
				return err
			}
		}
		r.logger.Info("🌱 Seeded personas", zap.Int("count", len(seeds)))
	}
	if _, created, err := r.putIfAbsent(ctx, basePersona()); err != nil {
		return err
	} else if created {
		r.logger.Info("🌱 Restored base persona")
	}
	return r.Refresh(ctx)
}

// Refresh replaces the in-memory view with the stored records.
func (r *Registry) Refresh(ctx context.Context) error {
	entries, err := r.kv.List(ctx, Namespace)
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}
	next := make(map[string]Persona, len(entries))
	for _, e := range entries {
		var p Persona
		if err := json.Unmarshal(e.Value, &p); err != nil {
			r.logger.Warn("⚠️ Skipping corrupt persona record", zap.String("name", e.Key), zap.Error(err))
			continue
		}
		next[e.Key] = p
	}
	if _, ok := next[BaseName]; !ok {
		next[BaseName] = basePersona()
	}
	r.mu.Lock()
	r.personas = next
	r.mu.Unlock()
	return nil
}

// Resolve returns the persona for name, or base when it is unknown.
func (r *Registry) Resolve(name string) Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.personas[Normalize(name)]; ok {
		return p
	}
	if p, ok := r.personas[BaseName]; ok {
		return p
	}
	return basePersona()
}

func (r *Registry) Prompt(name string) string {
	return r.Resolve(name).Prompt
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.personas[Normalize(name)]
	return ok
}

// Names returns the sorted persona names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.personas))
	for n := range r.personas {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// List returns all personas sorted by name.
func (r *Registry) List() []Persona {
	names := r.Names()
	out := make([]Persona, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range names {
		if p, ok := r.personas[n]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Register creates or replaces the prompt of a persona.
func (r *Registry) Register(ctx context.Context, name, prompt string) (Persona, error) {
	name = Normalize(name)
	if !ValidName(name) {
		return Persona{}, fmt.Errorf("invalid persona name %q", name)
	}
	if prompt == "" {
		return Persona{}, fmt.Errorf("persona %q: empty prompt", name)
	}
	p := Persona{Name: name, DisplayName: DisplayName(name), Prompt: prompt}
	if old, ok := r.lookup(name); ok {
		p.DisplayName = old.DisplayName
		p.Description = old.Description
		p.Builtin = old.Builtin
	}
	data, err := json.Marshal(p)
	if err != nil {
		return Persona{}, fmt.Errorf("failed to encode persona: %w", err)
	}
	if err := r.kv.Put(ctx, Namespace, name, data); err != nil {
		return Persona{}, fmt.Errorf("failed to store persona %q: %w", name, err)
	}
	r.cache(p)
	r.logger.Info("🧩 Registered persona", zap.String("name", name))
	return p, nil
}

// Ensure creates a persona unless one with that name is already stored.
// The returned persona is the stored one, so concurrent creators converge.
func (r *Registry) Ensure(ctx context.Context, name, description, prompt string) (Persona, bool, error) {
	name = Normalize(name)
	if !ValidName(name) {
		return Persona{}, false, fmt.Errorf("invalid persona name %q", name)
	}
	p := Persona{Name: name, DisplayName: DisplayName(name), Prompt: prompt, Description: description}
	stored, created, err := r.putIfAbsent(ctx, p)
	if err != nil {
		return Persona{}, false, err
	}
	r.cache(stored)
	if created {
		r.logger.Info("✨ Created persona", zap.String("name", name), zap.String("description", description))
	}
	return stored, created, nil
}

func (r *Registry) putIfAbsent(ctx context.Context, p Persona) (Persona, bool, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Persona{}, false, fmt.Errorf("failed to encode persona: %w", err)
	}
	raw, created, err := r.kv.PutIfAbsent(ctx, Namespace, p.Name, data)
	if err != nil {
		return Persona{}, false, fmt.Errorf("failed to store persona %q: %w", p.Name, err)
	}
	if created {
		return p, true, nil
	}
	var stored Persona
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Persona{}, false, fmt.Errorf("failed to decode persona %q: %w", p.Name, err)
	}
	return stored, false, nil
}

func (r *Registry) lookup(name string) (Persona, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[name]
	return p, ok
}

func (r *Registry) cache(p Persona) {
	r.mu.Lock()
	r.personas[p.Name] = p
	r.mu.Unlock()
}
