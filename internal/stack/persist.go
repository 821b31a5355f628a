package stack

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hugin-ai/hugin/internal/logging"
)

// Persister is the storage surface for saving and restoring a stack's
// history. Satisfied by *storage.Store.
type Persister interface {
	SaveInteraction(ctx context.Context, agentID, interactionID string, envelope json.RawMessage) error
	ScanInteractions(ctx context.Context, agentID string, fn func(id string, envelope json.RawMessage) error) error
}

// Order returns the interaction IDs in stack order. The owning agent
// persists this alongside its own record; interactions themselves are
// stored unordered.
func (s *Stack) Order() []string {
	ids := make([]string, len(s.interactions))
	for idx, i := range s.interactions {
		ids[idx] = i.ID()
	}
	return ids
}

// Save persists every interaction envelope.
func (s *Stack) Save(ctx context.Context, store Persister) error {
	for _, i := range s.interactions {
		envelope, err := Marshal(i)
		if err != nil {
			return fmt.Errorf("marshal interaction %s: %w", i.ID(), err)
		}
		if err := store.SaveInteraction(ctx, s.agentID, i.ID(), envelope); err != nil {
			return fmt.Errorf("save interaction %s: %w", i.ID(), err)
		}
	}
	return nil
}

// Load restores the stack's history from storage using the persisted
// order. Corrupt or missing records are logged and skipped so one bad
// file never strands a whole agent.
func (s *Stack) Load(ctx context.Context, store Persister, registry *TypeRegistry, order []string) error {
	envelopes := make(map[string]json.RawMessage)
	err := store.ScanInteractions(ctx, s.agentID, func(id string, envelope json.RawMessage) error {
		envelopes[id] = envelope
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan interactions for %s: %w", s.agentID, err)
	}

	s.interactions = nil
	for _, id := range order {
		envelope, ok := envelopes[id]
		if !ok {
			logging.Warn().Str("agent", s.agentID).Str("interaction", id).Msg("load: interaction record missing")
			continue
		}
		i, err := registry.Unmarshal(envelope)
		if err != nil {
			logging.Warn().Err(err).Str("agent", s.agentID).Str("interaction", id).Msg("load: skipping corrupt interaction record")
			continue
		}
		s.interactions = append(s.interactions, i)
	}
	s.rebuildBranchIndex()
	return nil
}
