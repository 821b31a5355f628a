package stack

import (
	"errors"
	"fmt"
)

// ErrUnknownCondition is returned when a condition name is not
// registered.
var ErrUnknownCondition = errors.New("unknown condition")

// ConditionRef names a registered condition plus its parameters. It is
// serialized by name so persisted Waiting interactions stay loadable.
type ConditionRef struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// ConditionFunc is a registered predicate. ownerID is the UUID of the
// Waiting interaction being evaluated, so conditions can keep private
// per-instance scratch state on the stack. The returned bool means
// "still waiting"; false means the wait is over.
type ConditionFunc func(s *Stack, branch, ownerID string, params map[string]any) (bool, error)

// ConditionRegistry resolves condition names. An explicit object, like
// the other registries.
type ConditionRegistry struct {
	conditions map[string]ConditionFunc
}

// NewConditionRegistry creates a registry with the builtin conditions.
func NewConditionRegistry() *ConditionRegistry {
	r := &ConditionRegistry{conditions: make(map[string]ConditionFunc)}
	r.Register("all_branches_complete", allBranchesComplete)
	r.Register("wait_for_ticks", waitForTicks)
	return r
}

// Register adds a named condition.
func (r *ConditionRegistry) Register(name string, fn ConditionFunc) {
	r.conditions[name] = fn
}

// Evaluate runs the referenced condition.
func (r *ConditionRegistry) Evaluate(s *Stack, branch, ownerID string, ref ConditionRef) (bool, error) {
	fn, ok := r.conditions[ref.Name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownCondition, ref.Name)
	}
	return fn(s, branch, ownerID, ref.Params)
}

// allBranchesComplete stops waiting once every named branch has
// terminated: its last interaction is a Waiting with no condition or a
// TaskResult. An empty branch list is vacuously complete.
func allBranchesComplete(s *Stack, branch, ownerID string, params map[string]any) (bool, error) {
	raw, ok := params["branches"]
	if !ok {
		return false, fmt.Errorf("all_branches_complete: missing branches parameter")
	}
	names, ok := raw.([]any)
	if !ok {
		return false, fmt.Errorf("all_branches_complete: branches must be a list")
	}

	for _, n := range names {
		name, ok := n.(string)
		if !ok {
			return false, fmt.Errorf("all_branches_complete: branch names must be strings")
		}
		if !branchComplete(s.lastOn(name)) {
			return true, nil
		}
	}
	return false, nil
}

func branchComplete(last Interaction) bool {
	switch v := last.(type) {
	case *Waiting:
		return v.Condition == nil
	case *TaskResult:
		return true
	default:
		return false
	}
}

// waitForTicks keeps waiting for ticks-1 evaluations and completes on
// the ticks-th, tracking its count under a key private to the owning
// Waiting so independent waits never share a counter.
func waitForTicks(s *Stack, branch, ownerID string, params map[string]any) (bool, error) {
	raw, ok := params["ticks"]
	if !ok {
		return false, fmt.Errorf("wait_for_ticks: missing ticks parameter")
	}
	ticks, ok := asInt(raw)
	if !ok {
		return false, fmt.Errorf("wait_for_ticks: ticks must be an integer")
	}
	if ticks < 1 {
		return false, fmt.Errorf("wait_for_ticks: ticks must be at least 1, got %d", ticks)
	}
	if s.lastOn(branch) == nil {
		return false, fmt.Errorf("wait_for_ticks: branch %q has no interactions", branch)
	}

	key := "wait_for_ticks:" + ownerID
	count := 1
	if prev, ok := s.scratchGet(key); ok {
		if prevCount, ok := asInt(prev); ok {
			count = prevCount + 1
		}
	}

	if count >= ticks {
		s.scratchDelete(key)
		return false, nil
	}
	s.scratchSet(key, count)
	return true, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
