package stack

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/hugin-ai/hugin/pkg/types"
)

// The Stack is the tool.Caller handed to tool handlers. Mutations are
// deferred until the tool's result has been appended, keeping every
// ToolResult adjacent to its ToolCall.

// FinishTask defers a TaskResult that terminates the branch.
func (s *Stack) FinishTask(branch, finishType, summary, reason string) {
	s.deferAppend(NewTaskResult(finishType, summary, reason), branch)
}

// AskHuman defers an AskHuman that pauses the branch.
func (s *Stack) AskHuman(branch, question string) {
	s.deferAppend(NewAskHuman(question), branch)
}

// StartBranch defers the seed AskOracle of a new named branch.
func (s *Stack) StartBranch(name, prompt string) {
	s.deferAppend(NewAskOracle(types.TextPrompt(prompt)), name)
}

// Wait defers a Waiting on the branch. An empty condition name blocks
// the branch unconditionally.
func (s *Stack) Wait(branch, condition string, params map[string]any, nextTool string, nextToolArgs map[string]any) {
	var ref *ConditionRef
	if condition != "" {
		ref = &ConditionRef{Name: condition, Params: params}
	}
	s.deferAppend(NewWaiting(ref, nextTool, nextToolArgs), branch)
}

// CallAgent spawns a sub-agent through the session and defers the
// AgentCall that blocks the branch until the sub-agent finishes.
func (s *Stack) CallAgent(branch, configName, prompt string) (string, error) {
	if s.spawn == nil {
		return "", fmt.Errorf("no session attached: cannot spawn sub-agents")
	}
	agentID, err := s.spawn(configName, prompt)
	if err != nil {
		return "", err
	}
	s.deferAppend(NewAgentCall(configName, types.Task{Prompt: prompt}, agentID), branch)
	return agentID, nil
}

// BranchResult returns the task result recorded on a branch, if any.
func (s *Stack) BranchResult(branch string) (map[string]any, bool) {
	view := s.BranchInteractions(branch)
	for i := len(view) - 1; i >= 0; i-- {
		if tr, ok := view[i].(*TaskResult); ok {
			return map[string]any{
				"finish_type": tr.FinishType,
				"summary":     tr.Summary,
				"reason":      tr.Reason,
			}, true
		}
	}
	return nil, false
}

// RecordArtifact stores an opaque payload produced by the executing
// tool. The artifact ID is attached to the tool's result interaction;
// the blob itself is persisted by the owning session on its next save.
func (s *Stack) RecordArtifact(name, mediaType string, data []byte) string {
	id := "art_" + ulid.Make().String()
	s.produced = append(s.produced, types.Artifact{
		ID:        id,
		Name:      name,
		MediaType: mediaType,
		Data:      data,
	})
	return id
}

// Artifacts returns the artifacts recorded by tools on this stack.
func (s *Stack) Artifacts() []types.Artifact {
	return append([]types.Artifact(nil), s.artifacts...)
}

// takeProduced drains the artifacts of the tool that just ran into the
// stack's persistence list, returning their IDs.
func (s *Stack) takeProduced() []string {
	if len(s.produced) == 0 {
		return nil
	}
	ids := make([]string, len(s.produced))
	for i, a := range s.produced {
		ids[i] = a.ID
	}
	s.artifacts = append(s.artifacts, s.produced...)
	s.produced = nil
	return ids
}

func (s *Stack) deferAppend(i Interaction, branch string) {
	s.pending = append(s.pending, deferred{interaction: i, branch: branch})
}
