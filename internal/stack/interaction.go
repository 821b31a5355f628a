// Package stack implements the interaction stack state machine: the
// polymorphic Interaction hierarchy, the branch-aware Stack that holds
// and steps interactions, context rendering, and wait conditions.
package stack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownInteraction is returned when decoding an unregistered
// interaction type name.
var ErrUnknownInteraction = errors.New("unknown interaction type")

// Interaction is one immutable, serializable unit of agent history.
// Interactions are append-only: once on a stack they are never mutated
// except by rewind (removal) or artifact attachment.
type Interaction interface {
	// Kind is the registered type name used as the serialization tag.
	Kind() string
	ID() string
	Branch() string
	SetBranch(branch string)
	CreatedAt() time.Time
	Artifacts() []string
	AttachArtifact(artifactID string)

	// Step advances the owning branch. True means forward progress was
	// made (typically one new interaction was appended); false means the
	// branch is now blocked or terminal. Step must only be called while
	// the interaction is the last one on its branch.
	Step(ctx context.Context, s *Stack) (bool, error)
}

// Base carries the identity fields shared by every interaction variant.
type Base struct {
	UUID        string    `json:"uuid"`
	BranchName  string    `json:"branch,omitempty"`
	Created     time.Time `json:"createdAt"`
	ArtifactIDs []string  `json:"artifacts,omitempty"`
}

func newBase() Base {
	return Base{
		UUID:    uuid.NewString(),
		Created: time.Now().UTC(),
	}
}

func (b *Base) ID() string                 { return b.UUID }
func (b *Base) Branch() string             { return b.BranchName }
func (b *Base) SetBranch(branch string)    { b.BranchName = branch }
func (b *Base) CreatedAt() time.Time       { return b.Created }
func (b *Base) Artifacts() []string        { return b.ArtifactIDs }
func (b *Base) AttachArtifact(id string)   { b.ArtifactIDs = append(b.ArtifactIDs, id) }

// Envelope is the persisted form of an interaction: the registered type
// name plus the variant's own fields. Artifacts are serialized by ID
// reference only.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Marshal wraps an interaction in its envelope.
func Marshal(i Interaction) (json.RawMessage, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", i.Kind(), err)
	}
	env, err := json.Marshal(Envelope{Type: i.Kind(), Data: data})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// TypeRegistry resolves interaction type names to constructors. It is an
// explicit object so tests and embedders control exactly what is
// decodable.
type TypeRegistry struct {
	types map[string]func() Interaction
}

// NewTypeRegistry creates a registry with every builtin variant
// registered.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]func() Interaction)}
	r.Register(KindTaskDefinition, func() Interaction { return &TaskDefinition{} })
	r.Register(KindAskOracle, func() Interaction { return &AskOracle{} })
	r.Register(KindOracleResponse, func() Interaction { return &OracleResponse{} })
	r.Register(KindToolCall, func() Interaction { return &ToolCall{} })
	r.Register(KindToolResult, func() Interaction { return &ToolResult{} })
	r.Register(KindAskHuman, func() Interaction { return &AskHuman{} })
	r.Register(KindHumanResponse, func() Interaction { return &HumanResponse{} })
	r.Register(KindExternalInput, func() Interaction { return &ExternalInput{} })
	r.Register(KindTaskResult, func() Interaction { return &TaskResult{} })
	r.Register(KindWaiting, func() Interaction { return &Waiting{} })
	r.Register(KindAgentCall, func() Interaction { return &AgentCall{} })
	r.Register(KindAgentResult, func() Interaction { return &AgentResult{} })
	return r
}

// Register adds a constructor for a type name.
func (r *TypeRegistry) Register(name string, fn func() Interaction) {
	r.types[name] = fn
}

// Unmarshal decodes an envelope back into its interaction variant.
func (r *TypeRegistry) Unmarshal(data []byte) (Interaction, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	fn, ok := r.types[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInteraction, env.Type)
	}
	i := fn()
	if err := json.Unmarshal(env.Data, i); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return i, nil
}
