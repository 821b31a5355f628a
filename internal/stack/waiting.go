package stack

import (
	"context"
)

// Waiting parks a branch. With no condition it is terminal; with one it
// is a cooperative poll that either keeps waiting or chains into a
// deterministic next tool call.
type Waiting struct {
	Base
	Condition    *ConditionRef  `json:"condition,omitempty"`
	NextTool     string         `json:"nextTool,omitempty"`
	NextToolArgs map[string]any `json:"nextToolArgs,omitempty"`
}

// NewWaiting creates a waiting interaction. A nil condition blocks the
// branch until something external appends to it.
func NewWaiting(condition *ConditionRef, nextTool string, nextToolArgs map[string]any) *Waiting {
	return &Waiting{Base: newBase(), Condition: condition, NextTool: nextTool, NextToolArgs: nextToolArgs}
}

func (w *Waiting) Kind() string { return KindWaiting }

// Step implements the three waiting states: blocked forever (nil
// condition), still waiting (condition true), and done (condition
// false), chaining into NextTool when one is set.
func (w *Waiting) Step(ctx context.Context, s *Stack) (bool, error) {
	if w.Condition == nil {
		return false, nil
	}

	stillWaiting, err := s.conditions.Evaluate(s, w.BranchName, w.UUID, *w.Condition)
	if err != nil {
		return false, err
	}
	if stillWaiting {
		return true, nil
	}

	if w.NextTool == "" {
		return false, nil
	}
	// Chained calls carry no tool call ID: they are deterministic, not
	// tied to an oracle turn.
	s.append(NewToolCall(w.NextTool, w.NextToolArgs, ""), w.BranchName)
	return true, nil
}
