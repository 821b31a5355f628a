package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hugin-ai/hugin/internal/logging"
)

var (
	// ErrUnknownTool is returned when a tool name is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidDefinition is returned for unregisterable definitions.
	ErrInvalidDefinition = errors.New("invalid tool definition")
)

// Registry holds tool definitions by name. It is an explicit object,
// constructed once and passed to the stacks that use it.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Definition)}
}

// Register adds a definition, replacing any previous one with the same
// name.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	if def.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidDefinition, def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = def
	return nil
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return def, nil
}

// Resolve maps tool names to definitions, failing on the first unknown
// name.
func (r *Registry) Resolve(names []string) ([]Definition, error) {
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		def, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// List returns all definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tools))
	for _, def := range r.tools {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns all registered tool names sorted.
func (r *Registry) Names() []string {
	defs := r.List()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// Execute runs a tool call. An unknown name is a configuration error and
// is returned as such; anything that goes wrong inside the handler,
// including a panic, becomes an error outcome instead.
func (r *Registry) Execute(ctx context.Context, name string, inv Invocation) (Outcome, error) {
	def, err := r.Get(name)
	if err != nil {
		return Outcome{}, err
	}

	outcome := runHandler(ctx, def, inv)
	if outcome.IsError {
		logging.Debug().Str("tool", name).Interface("error", outcome.Content["error"]).Msg("tool call failed")
	}
	return outcome, nil
}

func runHandler(ctx context.Context, def Definition, inv Invocation) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = ErrorOutcome(fmt.Errorf("tool %s panicked: %v", def.Name, rec))
		}
	}()

	content, err := def.Handler(ctx, inv)
	if err != nil {
		return ErrorOutcome(err)
	}
	if content == nil {
		content = map[string]any{}
	}
	return Outcome{Content: content}
}
