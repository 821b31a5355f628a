package storage

import (
	"context"
	"encoding/json"

	"github.com/hugin-ai/hugin/pkg/types"
)

// Record key prefixes. Interactions are grouped per agent, agents per
// session, so a whole session can be scanned or removed as a subtree.
const (
	prefixSession     = "session"
	prefixAgent       = "agent"
	prefixInteraction = "interaction"
	prefixArtifact    = "artifact"
)

// SaveInteraction stores one serialized interaction envelope under its
// owning agent.
func (s *Store) SaveInteraction(ctx context.Context, agentID, interactionID string, envelope json.RawMessage) error {
	return s.Put(ctx, []string{prefixInteraction, agentID, interactionID}, envelope)
}

// LoadInteraction returns the raw envelope of one interaction.
func (s *Store) LoadInteraction(ctx context.Context, agentID, interactionID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := s.Get(ctx, []string{prefixInteraction, agentID, interactionID}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DeleteInteraction drops a persisted interaction.
func (s *Store) DeleteInteraction(ctx context.Context, agentID, interactionID string) error {
	return s.Delete(ctx, []string{prefixInteraction, agentID, interactionID})
}

// ScanInteractions visits each persisted interaction of an agent.
// Unreadable records are skipped.
func (s *Store) ScanInteractions(ctx context.Context, agentID string, fn func(id string, envelope json.RawMessage) error) error {
	return s.Scan(ctx, []string{prefixInteraction, agentID}, fn)
}

// SaveAgent stores an agent record under its session.
func (s *Store) SaveAgent(ctx context.Context, sessionID, agentID string, v any) error {
	return s.Put(ctx, []string{prefixAgent, sessionID, agentID}, v)
}

// LoadAgent reads an agent record into v.
func (s *Store) LoadAgent(ctx context.Context, sessionID, agentID string, v any) error {
	return s.Get(ctx, []string{prefixAgent, sessionID, agentID}, v)
}

// DeleteAgent drops a persisted agent record.
func (s *Store) DeleteAgent(ctx context.Context, sessionID, agentID string) error {
	return s.Delete(ctx, []string{prefixAgent, sessionID, agentID})
}

// ListAgents returns the agent IDs persisted for a session.
func (s *Store) ListAgents(ctx context.Context, sessionID string) ([]string, error) {
	return s.List(ctx, []string{prefixAgent, sessionID})
}

// SaveSession stores a session record.
func (s *Store) SaveSession(ctx context.Context, sessionID string, v any) error {
	return s.Put(ctx, []string{prefixSession, sessionID}, v)
}

// LoadSession reads a session record into v.
func (s *Store) LoadSession(ctx context.Context, sessionID string, v any) error {
	return s.Get(ctx, []string{prefixSession, sessionID}, v)
}

// ListSessions returns all persisted session IDs.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	return s.List(ctx, []string{prefixSession})
}

// SaveArtifact stores an artifact by its ID.
func (s *Store) SaveArtifact(ctx context.Context, artifact *types.Artifact) error {
	return s.Put(ctx, []string{prefixArtifact, artifact.ID}, artifact)
}

// LoadArtifact resolves an artifact reference.
func (s *Store) LoadArtifact(ctx context.Context, artifactID string) (*types.Artifact, error) {
	var artifact types.Artifact
	if err := s.Get(ctx, []string{prefixArtifact, artifactID}, &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}
