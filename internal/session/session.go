// Package session groups agents around one shared state store and
// persists them as a unit. The session is also the delivery point for
// cross-agent plumbing: sub-agent results and human responses flow
// through it.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/hugin-ai/hugin/internal/agent"
	"github.com/hugin-ai/hugin/internal/config"
	"github.com/hugin-ai/hugin/internal/event"
	"github.com/hugin-ai/hugin/internal/logging"
	"github.com/hugin-ai/hugin/internal/oracle"
	"github.com/hugin-ai/hugin/internal/stack"
	"github.com/hugin-ai/hugin/internal/storage"
	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

var (
	// ErrUnknownAgent is returned when an agent ID is not in the session.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrNoPendingQuestion is returned when a human response arrives for
	// an agent with no open AskHuman.
	ErrNoPendingQuestion = errors.New("agent has no pending question")

	// ErrUnknownProvider is returned when a config names an oracle
	// provider the session was not wired with.
	ErrUnknownProvider = errors.New("unknown oracle provider")
)

// Options wires a session's collaborators.
type Options struct {
	ID         string
	Configs    *config.Registry
	Tools      *tool.Registry
	Conditions *stack.ConditionRegistry

	// Providers maps config provider names to oracle backends. Oracle
	// is the fallback for configs that name none.
	Oracle    oracle.Provider
	Providers map[string]oracle.Provider

	Bus   *event.Bus
	Store *storage.Store
}

// Session owns an ordered set of agents and their shared state.
type Session struct {
	id         string
	configs    *config.Registry
	tools      *tool.Registry
	conditions *stack.ConditionRegistry
	oracle     oracle.Provider
	providers  map[string]oracle.Provider
	bus        *event.Bus
	store      *storage.Store

	agents []*agent.Agent
	state  *State
}

// NewID returns a fresh session ID.
func NewID() string {
	return "sess_" + ulid.Make().String()
}

// New creates an empty session.
func New(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = NewID()
	}
	conditions := opts.Conditions
	if conditions == nil {
		conditions = stack.NewConditionRegistry()
	}
	return &Session{
		id:         id,
		configs:    opts.Configs,
		tools:      opts.Tools,
		conditions: conditions,
		oracle:     opts.Oracle,
		providers:  opts.Providers,
		bus:        opts.Bus,
		store:      opts.Store,
		state:      NewState(),
	}
}

// ID returns the session's ID.
func (s *Session) ID() string { return s.id }

// State returns the shared state store.
func (s *Session) State() *State { return s.state }

// Agents returns the session's agents in creation order.
func (s *Session) Agents() []*agent.Agent {
	return append([]*agent.Agent(nil), s.agents...)
}

// Agent looks up an agent by ID.
func (s *Session) Agent(agentID string) (*agent.Agent, error) {
	for _, a := range s.agents {
		if a.ID() == agentID {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
}

func (s *Session) providerFor(cfg *config.Config) (oracle.Provider, error) {
	if cfg != nil && cfg.Provider != "" {
		p, ok := s.providers[cfg.Provider]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
		}
		return p, nil
	}
	if s.oracle == nil {
		return nil, fmt.Errorf("%w: no default provider wired", ErrUnknownProvider)
	}
	return s.oracle, nil
}

// CreateAgent creates an agent from a named config and bootstraps it
// with a task. Namespaces the config declares are created on first use
// so agents can rely on them existing.
func (s *Session) CreateAgent(configName string, task types.Task) (*agent.Agent, error) {
	cfg, err := s.configs.Get(configName)
	if err != nil {
		return nil, err
	}
	provider, err := s.providerFor(cfg)
	if err != nil {
		return nil, err
	}

	a, err := agent.CreateFromTask(agent.Options{
		SessionID:  s.id,
		Config:     cfg,
		Configs:    s.configs,
		Tools:      s.tools,
		Conditions: s.conditions,
		Oracle:     provider,
		State:      s.state,
		Bus:        s.bus,
	}, task)
	if err != nil {
		return nil, err
	}
	s.attach(a)
	return a, nil
}

// attach registers an agent with the session's shared plumbing.
func (s *Session) attach(a *agent.Agent) {
	s.agents = append(s.agents, a)
	s.state.DeclareAgent(a.ID(), func(namespace string) bool {
		return a.Config().DeclaresNamespace(namespace)
	})
	for _, ns := range a.Config().StateNamespaces {
		s.state.CreateNamespace(ns)
	}
	a.Stack().SetSpawn(s.spawnFor(a))
}

// spawnFor returns the SpawnFunc handed to an agent's stack so its
// call_agent tool can fork sub-agents into this session.
func (s *Session) spawnFor(parent *agent.Agent) stack.SpawnFunc {
	return func(configName, prompt string) (string, error) {
		child, err := s.CreateAgent(configName, types.Task{Prompt: prompt})
		if err != nil {
			return "", err
		}
		logging.Info().
			Str("session", s.id).
			Str("parent", parent.ID()).
			Str("child", child.ID()).
			Str("config", configName).
			Msg("sub-agent spawned")
		return child.ID(), nil
	}
}

// Step advances every agent once, delivering finished sub-agent results
// first so calling branches resume on this pass.
func (s *Session) Step(ctx context.Context) (bool, error) {
	progress := s.deliverAgentResults()

	for _, a := range s.agents {
		stepped, err := a.Step(ctx)
		progress = progress || stepped
		if err != nil {
			return progress, fmt.Errorf("agent %s: %w", a.ID(), err)
		}
	}
	return progress, nil
}

// deliverAgentResults scans for AgentCalls whose sub-agent has finished
// and appends the matching AgentResult on the calling branch.
func (s *Session) deliverAgentResults() bool {
	delivered := false
	for _, caller := range s.agents {
		for _, i := range caller.Stack().Interactions() {
			call, ok := i.(*stack.AgentCall)
			if !ok || s.resultDelivered(caller, call.AgentID) {
				continue
			}
			child, err := s.Agent(call.AgentID)
			if err != nil {
				logging.Warn().Str("agent", call.AgentID).Msg("agent call references unknown sub-agent")
				continue
			}
			result := finalTaskResult(child)
			if result == nil {
				continue
			}
			caller.Stack().AddInteraction(
				stack.NewAgentResult(result.ID(), child.ID(), result.FinishType, result.Summary),
				call.Branch(),
			)
			delivered = true
		}
	}
	return delivered
}

func (s *Session) resultDelivered(caller *agent.Agent, childID string) bool {
	for _, i := range caller.Stack().Interactions() {
		if r, ok := i.(*stack.AgentResult); ok && r.AgentID == childID {
			return true
		}
	}
	return false
}

// finalTaskResult returns an agent's main-branch task result, or nil
// while it is still running.
func finalTaskResult(a *agent.Agent) *stack.TaskResult {
	view := a.Stack().BranchInteractions(stack.MainBranch)
	for i := len(view) - 1; i >= 0; i-- {
		if result, ok := view[i].(*stack.TaskResult); ok {
			return result
		}
	}
	return nil
}

// MessageAgent queues out-of-band input for an agent. The input is
// spliced into the stack at the next safe point.
func (s *Session) MessageAgent(agentID, input string) (string, error) {
	a, err := s.Agent(agentID)
	if err != nil {
		return "", err
	}
	return a.Stack().QueueExternalInput(input), nil
}

// SubmitHumanResponse answers an agent's pending AskHuman. The response
// lands on the question's branch and stepping resumes from there.
func (s *Session) SubmitHumanResponse(agentID, response string) error {
	a, err := s.Agent(agentID)
	if err != nil {
		return err
	}
	ask := pendingQuestion(a)
	if ask == nil {
		return fmt.Errorf("%w: %s", ErrNoPendingQuestion, agentID)
	}
	a.Stack().AddInteraction(stack.NewHumanResponse(ask.ID(), response), ask.Branch())
	return nil
}

// PendingQuestion returns the open AskHuman for an agent, or nil.
func (s *Session) PendingQuestion(agentID string) (*stack.AskHuman, error) {
	a, err := s.Agent(agentID)
	if err != nil {
		return nil, err
	}
	return pendingQuestion(a), nil
}

// pendingQuestion finds an AskHuman that is still the endpoint of its
// branch, meaning no response has arrived.
func pendingQuestion(a *agent.Agent) *stack.AskHuman {
	interactions := a.Stack().Interactions()
	for i := len(interactions) - 1; i >= 0; i-- {
		ask, ok := interactions[i].(*stack.AskHuman)
		if !ok {
			continue
		}
		last := lastOnBranch(interactions, ask.Branch())
		if last != nil && last.ID() == ask.ID() {
			return ask
		}
	}
	return nil
}

func lastOnBranch(interactions []stack.Interaction, branch string) stack.Interaction {
	for i := len(interactions) - 1; i >= 0; i-- {
		if interactions[i].Branch() == branch {
			return interactions[i]
		}
	}
	return nil
}

// Finished reports whether every agent has reached a task result.
func (s *Session) Finished() bool {
	if len(s.agents) == 0 {
		return false
	}
	for _, a := range s.agents {
		if !a.Finished() {
			return false
		}
	}
	return true
}
