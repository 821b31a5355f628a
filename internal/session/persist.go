package session

import (
	"context"
	"fmt"

	"github.com/hugin-ai/hugin/internal/agent"
	"github.com/hugin-ai/hugin/internal/event"
	"github.com/hugin-ai/hugin/internal/logging"
)

// Record is the persisted form of a session: agent order plus the
// shared state's contents and permission lists.
type Record struct {
	ID          string                    `json:"id"`
	Agents      []string                  `json:"agents"`
	StateValues map[string]map[string]any `json:"stateValues"`
	StatePerms  map[string][]string       `json:"statePerms,omitempty"`
}

// Save persists the session, its shared state and every agent.
func (s *Session) Save(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("session %s has no store", s.id)
	}
	for _, a := range s.agents {
		if err := a.Save(ctx, s.store); err != nil {
			return fmt.Errorf("save agent %s: %w", a.ID(), err)
		}
		for _, art := range a.Stack().Artifacts() {
			if err := s.store.SaveArtifact(ctx, &art); err != nil {
				return fmt.Errorf("save artifact %s: %w", art.ID, err)
			}
		}
	}

	values, perms := s.state.snapshot()
	rec := Record{
		ID:          s.id,
		StateValues: values,
		StatePerms:  perms,
	}
	for _, a := range s.agents {
		rec.Agents = append(rec.Agents, a.ID())
	}
	if err := s.store.SaveSession(ctx, s.id, rec); err != nil {
		return fmt.Errorf("save session %s: %w", s.id, err)
	}

	s.bus.Publish(event.Event{
		Type:      event.SessionSaved,
		SessionID: s.id,
		Data:      map[string]any{"agents": len(s.agents)},
	})
	return nil
}

// Load restores a session and its agents from storage. opts supplies
// the runtime wiring; identity and state come from the record. Agents
// whose records cannot be restored are skipped with a warning rather
// than failing the whole session.
func Load(ctx context.Context, sessionID string, opts Options) (*Session, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("load session %s: no store", sessionID)
	}
	var rec Record
	if err := opts.Store.LoadSession(ctx, sessionID, &rec); err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	opts.ID = rec.ID
	s := New(opts)
	s.state.restore(rec.StateValues, rec.StatePerms)

	for _, agentID := range rec.Agents {
		a, err := agent.Load(ctx, opts.Store, rec.ID, agentID, agent.Options{
			Configs:    s.configs,
			Tools:      s.tools,
			Conditions: s.conditions,
			Oracle:     s.oracle,
			State:      s.state,
			Bus:        s.bus,
		})
		if err != nil {
			logging.Warn().Err(err).Str("agent", agentID).Msg("load: skipping unrestorable agent")
			continue
		}
		// Re-point the oracle if the restored config names a provider.
		if provider, err := s.providerFor(a.Config()); err == nil {
			a.Stack().SetOracle(provider)
		}
		s.attach(a)
	}
	return s, nil
}
