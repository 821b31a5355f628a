package stack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hugin-ai/hugin/internal/config"
	"github.com/hugin-ai/hugin/internal/event"
	"github.com/hugin-ai/hugin/internal/logging"
	"github.com/hugin-ai/hugin/internal/oracle"
	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

var (
	// ErrStackBusy is returned on re-entrant stepping. Stepping is not
	// recursive by design: a tool's side effects must never trigger
	// another top-level step on the same stack.
	ErrStackBusy = errors.New("stack is already stepping")

	// ErrIndexOutOfRange is returned for invalid rewind targets.
	ErrIndexOutOfRange = errors.New("interaction index out of range")
)

// MainBranch is the branch key of the main history.
const MainBranch = ""

// SpawnFunc creates a sub-agent from a config name and prompt, returning
// the new agent's ID. Wired by the owning session.
type SpawnFunc func(configName, prompt string) (string, error)

// Store is the persistence surface the stack needs. Deletions during
// rewind are best-effort.
type Store interface {
	SaveInteraction(ctx context.Context, agentID, interactionID string, envelope json.RawMessage) error
	DeleteInteraction(ctx context.Context, agentID, interactionID string) error
}

// Options configures a Stack.
type Options struct {
	AgentID    string
	SessionID  string
	Config     *config.Config
	Tools      *tool.Registry
	Conditions *ConditionRegistry
	Oracle     oracle.Provider
	State      tool.StateStore
	Bus        *event.Bus
	Spawn      SpawnFunc
}

type deferred struct {
	interaction Interaction
	branch      string
}

// Stack is the ordered, branch-aware interaction history of one agent.
// It is single-threaded: one step loop drives it at a time, enforced by
// a non-reentrant step guard.
type Stack struct {
	agentID    string
	sessionID  string
	cfg        *config.Config
	tools      *tool.Registry
	conditions *ConditionRegistry
	oracle     oracle.Provider
	state      tool.StateStore
	bus        *event.Bus
	spawn      SpawnFunc

	interactions []Interaction
	branchOrder  []string                 // named branches, first-appearance order
	branchIndex  map[string][]Interaction // named branches only
	queued       []Interaction            // external input awaiting a safe insertion point
	pending      []deferred               // tool side effects awaiting the tool result
	scratch      map[string]any           // condition-private state
	recentTools  []string                 // tool results appended during the current Step
	artifacts    []types.Artifact         // tool-produced blobs awaiting persistence
	produced     []types.Artifact         // artifacts of the tool currently executing

	mu       sync.Mutex
	stepping bool
}

// New creates an empty stack.
func New(opts Options) *Stack {
	conditions := opts.Conditions
	if conditions == nil {
		conditions = NewConditionRegistry()
	}
	return &Stack{
		agentID:     opts.AgentID,
		sessionID:   opts.SessionID,
		cfg:         opts.Config,
		tools:       opts.Tools,
		conditions:  conditions,
		oracle:      opts.Oracle,
		state:       opts.State,
		bus:         opts.Bus,
		spawn:       opts.Spawn,
		branchIndex: make(map[string][]Interaction),
		scratch:     make(map[string]any),
	}
}

// AgentID returns the owning agent's ID.
func (s *Stack) AgentID() string { return s.agentID }

// Config returns the currently active config.
func (s *Stack) Config() *config.Config { return s.cfg }

// SetConfig swaps the active config. Called by the agent's state
// machine.
func (s *Stack) SetConfig(cfg *config.Config) { s.cfg = cfg }

// SetState wires the session-shared state store.
func (s *Stack) SetState(state tool.StateStore) { s.state = state }

// SetOracle swaps the completion backend.
func (s *Stack) SetOracle(provider oracle.Provider) { s.oracle = provider }

// SetSpawn wires the sub-agent spawner.
func (s *Stack) SetSpawn(spawn SpawnFunc) { s.spawn = spawn }

// Interactions returns the full chronological history across branches.
func (s *Stack) Interactions() []Interaction { return s.interactions }

// Len returns the total interaction count.
func (s *Stack) Len() int { return len(s.interactions) }

// Last returns the most recent interaction on any branch, or nil.
func (s *Stack) Last() Interaction {
	if len(s.interactions) == 0 {
		return nil
	}
	return s.interactions[len(s.interactions)-1]
}

// RecentToolResults lists the tool names whose results landed during
// the current or most recent Step call, oldest first. Deferred side
// effects may bury a ToolResult before the step boundary, so config
// transition triggers match against this instead of Last.
func (s *Stack) RecentToolResults() []string {
	return append([]string(nil), s.recentTools...)
}

// Contains reports whether an interaction ID is still on the stack.
func (s *Stack) Contains(interactionID string) bool {
	for _, i := range s.interactions {
		if i.ID() == interactionID {
			return true
		}
	}
	return false
}

// Step advances every active branch in first-appearance order. Within a
// branch, stepping chains: the branch's last interaction is stepped
// repeatedly until it blocks, makes progress without appending (a
// cooperative poll), or crosses a tool boundary. Results are ORed; true
// means some branch made progress.
func (s *Stack) Step(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.stepping {
		s.mu.Unlock()
		return false, ErrStackBusy
	}
	s.stepping = true
	s.recentTools = nil
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.stepping = false
		s.mu.Unlock()
	}()

	// Queued external input is delivered once the main branch is idle;
	// otherwise it waits for the next AskOracle insertion point.
	if len(s.queued) > 0 && branchIdle(s.lastOn(MainBranch)) {
		s.flushQueued()
	}

	progress := false
	for _, branch := range s.activeBranches() {
		stepped, err := s.stepBranch(ctx, branch)
		progress = progress || stepped
		if err != nil {
			return progress, err
		}
	}
	return progress, nil
}

// stepBranch drives one branch's chain for a single step call. The
// chain stops when the last interaction blocks (false), polls without
// appending (a still-waiting condition takes one step per call), or a
// tool has just executed, so the step boundary after a ToolResult is
// observable to config transition triggers.
func (s *Stack) stepBranch(ctx context.Context, branch string) (bool, error) {
	progress := false
	for {
		last := s.lastOn(branch)
		if last == nil {
			return progress, nil
		}
		stepped, err := last.Step(ctx, s)
		progress = progress || stepped
		if err != nil {
			return progress, err
		}
		if !stepped {
			return progress, nil
		}
		if s.lastOn(branch) == last {
			return progress, nil
		}
		if _, wasToolCall := last.(*ToolCall); wasToolCall {
			return progress, nil
		}
	}
}

// branchIdle reports whether a branch endpoint accepts external input.
func branchIdle(last Interaction) bool {
	switch v := last.(type) {
	case *OracleResponse:
		return !v.Reply.HasToolCall()
	case *Waiting:
		return v.Condition == nil
	case *TaskResult:
		return true
	default:
		return false
	}
}

// activeBranches returns the main branch followed by every named branch
// in first-appearance order. The slice is a snapshot: branches forked
// during a step are visited on the next one.
func (s *Stack) activeBranches() []string {
	branches := make([]string, 0, len(s.branchOrder)+1)
	branches = append(branches, MainBranch)
	branches = append(branches, s.branchOrder...)
	return branches
}

// BranchNames lists the named branches in first-appearance order.
func (s *Stack) BranchNames() []string {
	return append([]string(nil), s.branchOrder...)
}

// AddInteraction appends an interaction. A non-empty branch argument
// overrides the interaction's own branch.
func (s *Stack) AddInteraction(i Interaction, branch string) {
	if branch != MainBranch {
		i.SetBranch(branch)
	}
	s.append(i, i.Branch())
}

// QueueExternalInput queues out-of-band input for delivery at the next
// safe insertion point. Returns the queued interaction's ID.
func (s *Stack) QueueExternalInput(input string) string {
	e := NewExternalInput(input)
	s.queued = append(s.queued, e)
	logging.Debug().Str("agent", s.agentID).Str("interaction", e.ID()).Msg("queued external input")
	return e.ID()
}

// QueuedInteractions returns the not-yet-delivered external input.
func (s *Stack) QueuedInteractions() []Interaction {
	return append([]Interaction(nil), s.queued...)
}

func (s *Stack) flushQueued() {
	queued := s.queued
	s.queued = nil
	for _, i := range queued {
		s.append(i, i.Branch())
	}
}

// append is the single mutation point for the interaction list and the
// branch index. Queued external input is spliced in immediately before
// any AskOracle, whether appended publicly or by the step chain, so
// human input lands next to its trigger point, never mid-turn.
func (s *Stack) append(i Interaction, branch string) {
	if _, isAsk := i.(*AskOracle); isAsk && len(s.queued) > 0 {
		s.flushQueued()
	}
	i.SetBranch(branch)
	s.interactions = append(s.interactions, i)
	if tr, ok := i.(*ToolResult); ok {
		s.recentTools = append(s.recentTools, tr.ToolName)
	}
	if branch != MainBranch {
		if _, seen := s.branchIndex[branch]; !seen {
			s.branchOrder = append(s.branchOrder, branch)
		}
		s.branchIndex[branch] = append(s.branchIndex[branch], i)
	}

	logging.Debug().
		Str("agent", s.agentID).
		Str("kind", i.Kind()).
		Str("branch", branch).
		Str("interaction", i.ID()).
		Msg("interaction appended")

	s.bus.Publish(event.Event{
		Type:      event.InteractionAppended,
		SessionID: s.sessionID,
		AgentID:   s.agentID,
		Branch:    branch,
		Data:      map[string]any{"kind": i.Kind(), "interactionID": i.ID()},
	})
	if ask, ok := i.(*AskHuman); ok {
		s.bus.Publish(event.Event{
			Type:      event.HumanAsked,
			SessionID: s.sessionID,
			AgentID:   s.agentID,
			Branch:    branch,
			Data:      map[string]any{"question": ask.Question, "interactionID": ask.ID()},
		})
	}
}

// lastOn returns a branch's last interaction, or nil.
func (s *Stack) lastOn(branch string) Interaction {
	for i := len(s.interactions) - 1; i >= 0; i-- {
		if s.interactions[i].Branch() == branch {
			return s.interactions[i]
		}
	}
	return nil
}

// BranchInteractions returns a branch's visible history: for a named
// branch, the main history up to its fork point followed by the
// branch's own interactions. Branches see a snapshot of main up to
// their creation, then diverge.
func (s *Stack) BranchInteractions(branch string) []Interaction {
	if branch == MainBranch {
		var out []Interaction
		for _, i := range s.interactions {
			if i.Branch() == MainBranch {
				out = append(out, i)
			}
		}
		return out
	}

	fork := -1
	for idx, i := range s.interactions {
		if i.Branch() == branch {
			fork = idx
			break
		}
	}
	if fork < 0 {
		return nil
	}

	var out []Interaction
	for _, i := range s.interactions[:fork] {
		if i.Branch() == MainBranch {
			out = append(out, i)
		}
	}
	for _, i := range s.interactions[fork:] {
		if i.Branch() == branch {
			out = append(out, i)
		}
	}
	return out
}

// nearestTask finds the task definition visible to a branch, falling
// back to the main branch.
func (s *Stack) nearestTask(branch string) *types.Task {
	view := s.BranchInteractions(branch)
	for i := len(view) - 1; i >= 0; i-- {
		if td, ok := view[i].(*TaskDefinition); ok {
			return &td.Task
		}
	}
	if branch != MainBranch {
		return s.nearestTask(MainBranch)
	}
	return nil
}

// Tools resolves the tool set visible to a branch. Task-level tools
// replace, never merge with, config-level tools.
func (s *Stack) Tools(branch string) ([]tool.Definition, error) {
	names := s.cfg.Tools
	if task := s.nearestTask(branch); task != nil && task.HasTools() {
		names = task.Tools
	}
	return s.tools.Resolve(names)
}

// SystemTemplate resolves the system template visible to a branch,
// preferring the task-level override.
func (s *Stack) SystemTemplate(branch string) string {
	if task := s.nearestTask(branch); task != nil && task.SystemTemplate != "" {
		return task.SystemTemplate
	}
	return s.cfg.SystemTemplate
}

// RewindTo truncates the stack to interactions[0..index] inclusive,
// deleting the removed tail from storage best-effort and pruning
// emptied branches. This is the framework's only mutation after append.
func (s *Stack) RewindTo(ctx context.Context, index int, store Store) error {
	if index < 0 || index >= len(s.interactions) {
		return fmt.Errorf("%w: %d (stack has %d interactions)", ErrIndexOutOfRange, index, len(s.interactions))
	}

	removed := s.interactions[index+1:]
	s.interactions = s.interactions[:index+1]

	for _, i := range removed {
		if store != nil {
			if err := store.DeleteInteraction(ctx, s.agentID, i.ID()); err != nil {
				logging.Warn().Err(err).Str("interaction", i.ID()).Msg("rewind: could not delete stored interaction")
			}
		}
		s.bus.Publish(event.Event{
			Type:      event.InteractionRemoved,
			SessionID: s.sessionID,
			AgentID:   s.agentID,
			Branch:    i.Branch(),
			Data:      map[string]any{"kind": i.Kind(), "interactionID": i.ID()},
		})
	}

	s.rebuildBranchIndex()
	return nil
}

func (s *Stack) rebuildBranchIndex() {
	s.branchOrder = nil
	s.branchIndex = make(map[string][]Interaction)
	for _, i := range s.interactions {
		branch := i.Branch()
		if branch == MainBranch {
			continue
		}
		if _, seen := s.branchIndex[branch]; !seen {
			s.branchOrder = append(s.branchOrder, branch)
		}
		s.branchIndex[branch] = append(s.branchIndex[branch], i)
	}
}

// flushDeferred appends the side effects a tool handler queued during
// execution.
func (s *Stack) flushDeferred() {
	pending := s.pending
	s.pending = nil
	for _, d := range pending {
		s.append(d.interaction, d.branch)
	}
}

func (s *Stack) scratchGet(key string) (any, bool) {
	v, ok := s.scratch[key]
	return v, ok
}

func (s *Stack) scratchSet(key string, value any) { s.scratch[key] = value }

func (s *Stack) scratchDelete(key string) { delete(s.scratch, key) }
