package agent

import (
	"context"
	"fmt"

	"github.com/hugin-ai/hugin/internal/stack"
	"github.com/hugin-ai/hugin/internal/storage"
)

// Record is the persisted form of an agent: its identity, config state
// and the order of its stack's interactions. The interactions
// themselves are stored individually.
type Record struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"sessionId"`
	ConfigName   string         `json:"configName"`
	CurrentState string         `json:"currentState,omitempty"`
	History      []ConfigRecord `json:"history,omitempty"`
	Interactions []string       `json:"interactions"`
}

// Save persists the agent record and every interaction on its stack.
func (a *Agent) Save(ctx context.Context, store *storage.Store) error {
	if err := a.stk.Save(ctx, store); err != nil {
		return err
	}
	rec := Record{
		ID:           a.id,
		SessionID:    a.sessionID,
		CurrentState: a.current,
		History:      a.history,
		Interactions: a.stk.Order(),
	}
	if a.cfg != nil {
		rec.ConfigName = a.cfg.Name
	}
	return store.SaveAgent(ctx, a.sessionID, a.id, rec)
}

// Load restores an agent from storage. opts supplies the runtime wiring
// (registries, oracle, bus); identity and config state come from the
// record.
func Load(ctx context.Context, store *storage.Store, sessionID, agentID string, opts Options) (*Agent, error) {
	var rec Record
	if err := store.LoadAgent(ctx, sessionID, agentID, &rec); err != nil {
		return nil, fmt.Errorf("load agent %s: %w", agentID, err)
	}

	opts.ID = rec.ID
	opts.SessionID = sessionID
	if rec.ConfigName != "" && opts.Configs != nil {
		cfg, err := opts.Configs.Get(rec.ConfigName)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", agentID, err)
		}
		opts.Config = cfg
	}
	a := New(opts)
	a.current = rec.CurrentState
	if rec.History != nil {
		a.history = rec.History
	}

	if err := a.stk.Load(ctx, store, stack.NewTypeRegistry(), rec.Interactions); err != nil {
		return nil, err
	}
	return a, nil
}
