// Package agent ties one interaction stack to one configuration and
// drives the optional config state machine that swaps configurations as
// the agent progresses.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hugin-ai/hugin/internal/config"
	"github.com/hugin-ai/hugin/internal/event"
	"github.com/hugin-ai/hugin/internal/logging"
	"github.com/hugin-ai/hugin/internal/oracle"
	"github.com/hugin-ai/hugin/internal/stack"
	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

// ErrNoStateMachine is returned when a state-machine operation is asked
// of an agent running a plain config.
var ErrNoStateMachine = errors.New("agent has no state machine")

// ConfigRecord is one entry of the agent's config history: which state
// became active, the interaction that triggered it (empty for the
// initial state) and when.
type ConfigRecord struct {
	State         string    `json:"state"`
	InteractionID string    `json:"interactionId,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Options configures a new agent.
type Options struct {
	ID         string
	SessionID  string
	Config     *config.Config
	Configs    *config.Registry
	Tools      *tool.Registry
	Conditions *stack.ConditionRegistry
	Oracle     oracle.Provider
	State      tool.StateStore
	Bus        *event.Bus
}

// Agent owns exactly one stack and one active config. When the config
// declares a state machine the agent evaluates its transition rules
// after every step and swaps configs when one fires.
type Agent struct {
	id        string
	sessionID string
	stk       *stack.Stack
	cfg       *config.Config
	configs   *config.Registry
	state     tool.StateStore
	bus       *event.Bus

	// machine is carried separately from cfg so a swapped-in config
	// need not redeclare it.
	machine *config.MachineSpec
	current string
	history []ConfigRecord
}

// NewID returns a fresh agent ID. ULIDs sort by creation time, which
// keeps storage listings chronological.
func NewID() string {
	return "agent_" + ulid.Make().String()
}

// New creates an agent with an empty stack.
func New(opts Options) *Agent {
	id := opts.ID
	if id == "" {
		id = NewID()
	}
	a := &Agent{
		id:        id,
		sessionID: opts.SessionID,
		cfg:       opts.Config,
		configs:   opts.Configs,
		state:     opts.State,
		bus:       opts.Bus,
	}
	a.stk = stack.New(stack.Options{
		AgentID:    id,
		SessionID:  opts.SessionID,
		Config:     opts.Config,
		Tools:      opts.Tools,
		Conditions: opts.Conditions,
		Oracle:     opts.Oracle,
		State:      opts.State,
		Bus:        opts.Bus,
	})
	if opts.Config != nil && opts.Config.StateMachine != nil {
		a.machine = opts.Config.StateMachine
		a.current = a.machine.Initial
		a.history = append(a.history, ConfigRecord{
			State:     a.machine.Initial,
			Timestamp: time.Now().UTC(),
		})
	}
	return a
}

// CreateFromTask creates an agent and bootstraps its stack with the
// task definition and the opening oracle turn.
func CreateFromTask(opts Options, task types.Task) (*Agent, error) {
	a := New(opts)
	if a.machine != nil {
		initial := a.machine.States[a.current]
		cfg, err := a.configs.Get(initial.Config)
		if err != nil {
			return nil, fmt.Errorf("initial state %q: %w", a.current, err)
		}
		a.cfg = cfg
		a.stk.SetConfig(cfg)
	}
	a.stk.AddInteraction(stack.NewTaskDefinition(task), stack.MainBranch)
	a.stk.AddInteraction(stack.NewAskOracleFromTask(task), stack.MainBranch)
	return a, nil
}

// ID returns the agent's ID.
func (a *Agent) ID() string { return a.id }

// Stack returns the agent's interaction stack.
func (a *Agent) Stack() *stack.Stack { return a.stk }

// Config returns the currently active config.
func (a *Agent) Config() *config.Config { return a.cfg }

// CurrentState returns the active state-machine state, or "" when no
// machine is configured.
func (a *Agent) CurrentState() string { return a.current }

// ConfigHistory returns the config transition history, oldest first.
func (a *Agent) ConfigHistory() []ConfigRecord {
	return append([]ConfigRecord(nil), a.history...)
}

// Step advances the stack once, then evaluates state-machine
// transitions. Returns whether any branch made progress.
func (a *Agent) Step(ctx context.Context) (bool, error) {
	progress, err := a.stk.Step(ctx)
	if err != nil {
		return progress, err
	}

	if a.machine != nil {
		if err := a.evaluateTransitions(); err != nil {
			return progress, err
		}
	}

	a.bus.Publish(event.Event{
		Type:      event.AgentStepped,
		SessionID: a.sessionID,
		AgentID:   a.id,
		Data:      map[string]any{"progress": progress, "interactions": a.stk.Len()},
	})
	return progress, nil
}

// evaluateTransitions fires the first matching transition of the
// current state, if any.
func (a *Agent) evaluateTransitions() error {
	state, ok := a.machine.States[a.current]
	if !ok {
		return fmt.Errorf("state machine has no state %q", a.current)
	}
	for _, tr := range state.Transitions {
		if !a.triggerMatches(tr.Trigger) {
			continue
		}
		return a.transitionTo(tr.To)
	}
	return nil
}

func (a *Agent) triggerMatches(t config.TriggerSpec) bool {
	switch t.Kind {
	case config.TriggerToolCall:
		// Fires after the tool has run, not when it is invoked. Checked
		// against the tool results of the step that just completed:
		// tools with deferred side effects (finish_task, start_branches)
		// bury their ToolResult before the step boundary, so Last alone
		// would miss them.
		for _, name := range a.stk.RecentToolResults() {
			if name == t.Tool {
				return true
			}
		}
		return false
	case config.TriggerStepCount:
		return a.stk.Len() >= t.MinSteps
	case config.TriggerStatePattern:
		return a.statePatternMatches(t.Namespace, t.Pattern)
	default:
		return false
	}
}

// statePatternMatches checks the shared state against a key/value
// pattern. Values are either literals (equality) or single-operator
// objects like {"$gte": 10}. Lookup and comparison failures count as a
// non-match, never an error.
func (a *Agent) statePatternMatches(namespace string, pattern map[string]any) bool {
	if a.state == nil {
		return false
	}
	for key, want := range pattern {
		got, ok, err := a.state.Get(a.id, namespace, key)
		if err != nil || !ok {
			return false
		}
		matched, err := matchValue(got, want)
		if err != nil {
			logging.Debug().Err(err).Str("agent", a.id).Str("key", key).Msg("state pattern comparison failed")
			return false
		}
		if !matched {
			return false
		}
	}
	return true
}

func (a *Agent) transitionTo(target string) error {
	next, ok := a.machine.States[target]
	if !ok {
		return fmt.Errorf("state machine has no state %q", target)
	}
	cfg, err := a.configs.Get(next.Config)
	if err != nil {
		return fmt.Errorf("transition to %q: %w", target, err)
	}

	var triggerID string
	if last := a.stk.Last(); last != nil {
		triggerID = last.ID()
	}
	previous := a.current
	a.current = target
	a.cfg = cfg
	a.stk.SetConfig(cfg)
	a.history = append(a.history, ConfigRecord{
		State:         target,
		InteractionID: triggerID,
		Timestamp:     time.Now().UTC(),
	})

	logging.Info().
		Str("agent", a.id).
		Str("from", previous).
		Str("to", target).
		Str("config", cfg.Name).
		Msg("config transition")
	a.bus.Publish(event.Event{
		Type:      event.ConfigTransitioned,
		SessionID: a.sessionID,
		AgentID:   a.id,
		Data:      map[string]any{"from": previous, "to": target, "config": cfg.Name},
	})
	return nil
}

// RewindTo truncates the stack to index and restores the config state
// to the last history entry whose triggering interaction survived.
func (a *Agent) RewindTo(ctx context.Context, index int, store stack.Store) error {
	if err := a.stk.RewindTo(ctx, index, store); err != nil {
		return err
	}
	if a.machine == nil {
		return nil
	}

	kept := a.history[:0]
	for _, rec := range a.history {
		if rec.InteractionID == "" || a.stk.Contains(rec.InteractionID) {
			kept = append(kept, rec)
		}
	}
	a.history = kept

	if len(a.history) == 0 {
		a.current = a.machine.Initial
	} else {
		a.current = a.history[len(a.history)-1].State
	}
	state, ok := a.machine.States[a.current]
	if !ok {
		return fmt.Errorf("state machine has no state %q", a.current)
	}
	cfg, err := a.configs.Get(state.Config)
	if err != nil {
		return fmt.Errorf("restore state %q: %w", a.current, err)
	}
	a.cfg = cfg
	a.stk.SetConfig(cfg)
	return nil
}

// Finished reports whether the main branch has reached a task result.
func (a *Agent) Finished() bool {
	for _, i := range a.stk.BranchInteractions(stack.MainBranch) {
		if _, ok := i.(*stack.TaskResult); ok {
			return true
		}
	}
	return false
}
