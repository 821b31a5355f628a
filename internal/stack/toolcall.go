package stack

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

// ToolCall is a pending tool invocation. An empty ToolCallID marks a
// deterministic chained call not tied to an oracle turn.
type ToolCall struct {
	Base
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args,omitempty"`
	ToolCallID string         `json:"toolCallID,omitempty"`
}

// NewToolCall creates a tool call interaction.
func NewToolCall(toolName string, args map[string]any, toolCallID string) *ToolCall {
	return &ToolCall{Base: newBase(), Tool: toolName, Args: args, ToolCallID: toolCallID}
}

func (t *ToolCall) Kind() string { return KindToolCall }

// Step executes the tool. Handler failures never propagate: they are
// recorded as error results and fed back to the oracle as data. Only an
// unregistered tool name is a framework-level error.
func (t *ToolCall) Step(ctx context.Context, s *Stack) (bool, error) {
	def, err := s.tools.Get(t.Tool)
	if err != nil {
		return false, err
	}

	outcome, err := s.tools.Execute(ctx, t.Tool, tool.Invocation{
		Args:    t.Args,
		Branch:  t.BranchName,
		AgentID: s.agentID,
		Stack:   s,
		State:   s.state,
	})
	if err != nil {
		return false, err
	}

	result := &ToolResult{
		Base:             newBase(),
		Result:           outcome.Content,
		ToolCallID:       t.ToolCallID,
		ToolName:         t.Tool,
		IsError:          outcome.IsError,
		IncludeInContext: !def.Options.ExcludeFromContext,
	}
	for _, id := range s.takeProduced() {
		result.AttachArtifact(id)
	}
	s.append(result, t.BranchName)

	// Side effects the tool deferred (task results, branch seeds,
	// waits) land after the result so it stays adjacent to its call.
	s.flushDeferred()
	return true, nil
}

// ToolResult is the recorded outcome of one tool call.
type ToolResult struct {
	Base
	Result           map[string]any `json:"result"`
	ToolCallID       string         `json:"toolCallID,omitempty"`
	ToolName         string         `json:"toolName"`
	IsError          bool           `json:"isError"`
	IncludeInContext bool           `json:"includeInContext"`
}

func (t *ToolResult) Kind() string { return KindToolResult }

// Step feeds the result back to the oracle, either as a structured
// tool-result prompt or as free text when the tool opts into that.
func (t *ToolResult) Step(ctx context.Context, s *Stack) (bool, error) {
	respondWithText := false
	if def, err := s.tools.Get(t.ToolName); err == nil {
		respondWithText = def.Options.RespondWithText
	}

	ask := &AskOracle{
		Base:             newBase(),
		IncludeInContext: t.IncludeInContext,
		ToolName:         t.ToolName,
		ToolCallID:       t.ToolCallID,
	}
	if respondWithText {
		ask.Prompt = types.TextPrompt(renderResultText(t))
	} else {
		ask.Prompt = types.ToolResultPrompt(t.Result)
	}
	if t.IsError {
		ask.TemplateInputs = map[string]any{"error": t.Result["error"]}
	}

	s.append(ask, t.BranchName)
	return true, nil
}

func renderResultText(t *ToolResult) string {
	if t.IsError {
		return fmt.Sprintf("Tool %s failed: %v", t.ToolName, t.Result["error"])
	}
	data, err := json.Marshal(t.Result)
	if err != nil {
		return fmt.Sprintf("%v", t.Result)
	}
	return fmt.Sprintf("Tool %s returned: %s", t.ToolName, data)
}
