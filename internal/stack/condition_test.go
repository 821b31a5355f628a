package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugin-ai/hugin/pkg/types"
)

func TestWaitForTicksDeterminism(t *testing.T) {
	s, _ := newTestStack(t, testConfig())
	bootstrap(s, types.Task{Prompt: "wait"})

	w := NewWaiting(&ConditionRef{
		Name:   "wait_for_ticks",
		Params: map[string]any{"ticks": 3},
	}, "", nil)
	s.AddInteraction(w, MainBranch)

	for i := 0; i < 2; i++ {
		waiting, err := s.conditions.Evaluate(s, MainBranch, w.ID(), *w.Condition)
		require.NoError(t, err)
		assert.True(t, waiting, "evaluation %d should still be waiting", i+1)
	}
	waiting, err := s.conditions.Evaluate(s, MainBranch, w.ID(), *w.Condition)
	require.NoError(t, err)
	assert.False(t, waiting, "third evaluation of a ticks=3 wait completes")
}

func TestWaitForTicksIndependentCounters(t *testing.T) {
	s, _ := newTestStack(t, testConfig())
	bootstrap(s, types.Task{Prompt: "wait"})

	ref := ConditionRef{Name: "wait_for_ticks", Params: map[string]any{"ticks": 2}}
	a := NewWaiting(&ref, "", nil)
	b := NewWaiting(&ref, "", nil)
	s.AddInteraction(a, MainBranch)
	s.AddInteraction(b, MainBranch)

	waiting, err := s.conditions.Evaluate(s, MainBranch, a.ID(), ref)
	require.NoError(t, err)
	assert.True(t, waiting)

	// b has its own counter: its first evaluation still waits even
	// though a has already been evaluated once.
	waiting, err = s.conditions.Evaluate(s, MainBranch, b.ID(), ref)
	require.NoError(t, err)
	assert.True(t, waiting)

	waiting, err = s.conditions.Evaluate(s, MainBranch, a.ID(), ref)
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestWaitForTicksParameterErrors(t *testing.T) {
	s, _ := newTestStack(t, testConfig())
	bootstrap(s, types.Task{Prompt: "wait"})

	_, err := s.conditions.Evaluate(s, MainBranch, "owner", ConditionRef{
		Name: "wait_for_ticks",
	})
	assert.ErrorContains(t, err, "missing ticks")

	_, err = s.conditions.Evaluate(s, MainBranch, "owner", ConditionRef{
		Name: "wait_for_ticks", Params: map[string]any{"ticks": 0},
	})
	assert.ErrorContains(t, err, "at least 1")

	_, err = s.conditions.Evaluate(s, MainBranch, "owner", ConditionRef{
		Name: "wait_for_ticks", Params: map[string]any{"ticks": "soon"},
	})
	assert.ErrorContains(t, err, "must be an integer")

	_, err = s.conditions.Evaluate(s, "ghost", "owner", ConditionRef{
		Name: "wait_for_ticks", Params: map[string]any{"ticks": 2},
	})
	assert.ErrorContains(t, err, "no interactions")
}

func TestWaitForTicksAcceptsJSONNumbers(t *testing.T) {
	s, _ := newTestStack(t, testConfig())
	bootstrap(s, types.Task{Prompt: "wait"})

	// Persisted parameters come back as float64.
	ref := ConditionRef{Name: "wait_for_ticks", Params: map[string]any{"ticks": float64(1)}}
	waiting, err := s.conditions.Evaluate(s, MainBranch, "owner", ref)
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestAllBranchesComplete(t *testing.T) {
	s, _ := newTestStack(t, testConfig())
	bootstrap(s, types.Task{Prompt: "fan out"})
	s.AddInteraction(NewTaskDefinition(types.Task{Prompt: "a"}), "a")
	s.AddInteraction(NewTaskDefinition(types.Task{Prompt: "b"}), "b")

	ref := ConditionRef{
		Name:   "all_branches_complete",
		Params: map[string]any{"branches": []any{"a", "b"}},
	}

	waiting, err := s.conditions.Evaluate(s, MainBranch, "owner", ref)
	require.NoError(t, err)
	assert.True(t, waiting, "neither branch has finished")

	s.AddInteraction(NewTaskResult(types.FinishSuccess, "done a", ""), "a")
	waiting, err = s.conditions.Evaluate(s, MainBranch, "owner", ref)
	require.NoError(t, err)
	assert.True(t, waiting, "b is still running")

	// A condition-less wait also counts as terminal.
	s.AddInteraction(NewWaiting(nil, "", nil), "b")
	waiting, err = s.conditions.Evaluate(s, MainBranch, "owner", ref)
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestAllBranchesCompleteEmptyListIsDone(t *testing.T) {
	s, _ := newTestStack(t, testConfig())
	bootstrap(s, types.Task{Prompt: "noop"})

	waiting, err := s.conditions.Evaluate(s, MainBranch, "owner", ConditionRef{
		Name:   "all_branches_complete",
		Params: map[string]any{"branches": []any{}},
	})
	require.NoError(t, err)
	assert.False(t, waiting)
}

func TestAllBranchesCompleteParameterErrors(t *testing.T) {
	s, _ := newTestStack(t, testConfig())
	bootstrap(s, types.Task{Prompt: "noop"})

	_, err := s.conditions.Evaluate(s, MainBranch, "owner", ConditionRef{
		Name: "all_branches_complete",
	})
	assert.ErrorContains(t, err, "missing branches")

	_, err = s.conditions.Evaluate(s, MainBranch, "owner", ConditionRef{
		Name:   "all_branches_complete",
		Params: map[string]any{"branches": "a,b"},
	})
	assert.ErrorContains(t, err, "must be a list")
}

func TestEvaluateUnknownCondition(t *testing.T) {
	s, _ := newTestStack(t, testConfig())
	_, err := s.conditions.Evaluate(s, MainBranch, "owner", ConditionRef{Name: "never_registered"})
	assert.ErrorIs(t, err, ErrUnknownCondition)
}
