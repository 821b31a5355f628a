package stack

import (
	"context"

	"github.com/hugin-ai/hugin/pkg/types"
)

// Registered interaction type names. These tags are part of the
// persisted format; renaming one breaks previously stored sessions.
const (
	KindTaskDefinition = "TaskDefinition"
	KindAskOracle      = "AskOracle"
	KindOracleResponse = "OracleResponse"
	KindToolCall       = "ToolCall"
	KindToolResult     = "ToolResult"
	KindAskHuman       = "AskHuman"
	KindHumanResponse  = "HumanResponse"
	KindExternalInput  = "ExternalInput"
	KindTaskResult     = "TaskResult"
	KindWaiting        = "Waiting"
	KindAgentCall      = "AgentCall"
	KindAgentResult    = "AgentResult"
)

// TaskDefinition anchors a stack with the task its agent works on. The
// bootstrap AskOracle is appended by the caller, not by stepping this.
type TaskDefinition struct {
	Base
	Task types.Task `json:"task"`
}

// NewTaskDefinition creates a task definition interaction.
func NewTaskDefinition(task types.Task) *TaskDefinition {
	return &TaskDefinition{Base: newBase(), Task: task}
}

func (t *TaskDefinition) Kind() string { return KindTaskDefinition }

// Step is a no-op reporting progress; the surrounding bootstrap appends
// the first AskOracle.
func (t *TaskDefinition) Step(ctx context.Context, s *Stack) (bool, error) {
	return true, nil
}

// TaskResult records the final outcome of a branch's task. It is
// terminal and excluded from future oracle context.
type TaskResult struct {
	Base
	FinishType string `json:"finishType"`
	Summary    string `json:"summary"`
	Reason     string `json:"reason,omitempty"`
}

// NewTaskResult creates a task result interaction.
func NewTaskResult(finishType, summary, reason string) *TaskResult {
	return &TaskResult{Base: newBase(), FinishType: finishType, Summary: summary, Reason: reason}
}

func (t *TaskResult) Kind() string { return KindTaskResult }

// Step marks the branch terminal.
func (t *TaskResult) Step(ctx context.Context, s *Stack) (bool, error) {
	return false, nil
}
