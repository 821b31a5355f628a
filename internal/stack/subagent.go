package stack

import (
	"context"
	"fmt"

	"github.com/hugin-ai/hugin/pkg/types"
)

// AgentCall records that a sub-agent was spawned on behalf of this
// branch. The branch blocks until the session delivers an AgentResult.
type AgentCall struct {
	Base
	ConfigName string     `json:"config"`
	Task       types.Task `json:"task"`
	AgentID    string     `json:"agentID"`
}

// NewAgentCall creates an agent call interaction.
func NewAgentCall(configName string, task types.Task, agentID string) *AgentCall {
	return &AgentCall{Base: newBase(), ConfigName: configName, Task: task, AgentID: agentID}
}

func (a *AgentCall) Kind() string { return KindAgentCall }

// Step blocks pending the sub-agent's completion.
func (a *AgentCall) Step(ctx context.Context, s *Stack) (bool, error) {
	return false, nil
}

// AgentResult delivers a finished sub-agent's task result back to the
// calling branch.
type AgentResult struct {
	Base
	TaskResultID string `json:"taskResultID"`
	AgentID      string `json:"agentID"`
	FinishType   string `json:"finishType,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

// NewAgentResult creates an agent result interaction.
func NewAgentResult(taskResultID, agentID, finishType, summary string) *AgentResult {
	return &AgentResult{Base: newBase(), TaskResultID: taskResultID, AgentID: agentID, FinishType: finishType, Summary: summary}
}

func (a *AgentResult) Kind() string { return KindAgentResult }

// Step resumes the calling branch with the sub-agent's outcome.
func (a *AgentResult) Step(ctx context.Context, s *Stack) (bool, error) {
	text := fmt.Sprintf("Sub-agent %s finished (%s): %s", a.AgentID, a.FinishType, a.Summary)
	s.append(NewAskOracle(types.TextPrompt(text)), a.BranchName)
	return true, nil
}
