package stack

import (
	"context"

	"github.com/hugin-ai/hugin/internal/oracle"
	"github.com/hugin-ai/hugin/pkg/types"
)

// AskOracle is a question on its way to the oracle. ToolName and
// ToolCallID are set when the question feeds a tool result back.
type AskOracle struct {
	Base
	Prompt           types.Prompt   `json:"prompt"`
	TemplateInputs   map[string]any `json:"templateInputs,omitempty"`
	IncludeInContext bool           `json:"includeInContext"`
	ToolName         string         `json:"toolName,omitempty"`
	ToolCallID       string         `json:"toolCallID,omitempty"`
}

// NewAskOracle creates a plain oracle question.
func NewAskOracle(prompt types.Prompt) *AskOracle {
	return &AskOracle{Base: newBase(), Prompt: prompt, IncludeInContext: true}
}

// NewAskOracleFromTask builds the bootstrap question for a freshly
// defined task. Task prompts are templates when they carry inputs.
func NewAskOracleFromTask(task types.Task) *AskOracle {
	ask := &AskOracle{Base: newBase(), IncludeInContext: true}
	if len(task.Inputs) > 0 {
		ask.Prompt = types.TemplatePrompt(task.Prompt)
		ask.TemplateInputs = task.Inputs
	} else {
		ask.Prompt = types.TextPrompt(task.Prompt)
	}
	return ask
}

func (a *AskOracle) Kind() string { return KindAskOracle }

// Step resolves tools and the system template, renders the branch
// context and invokes the oracle. Completion failures propagate: retry
// is a caller concern, not handled here.
func (a *AskOracle) Step(ctx context.Context, s *Stack) (bool, error) {
	tools, err := s.Tools(a.BranchName)
	if err != nil {
		return false, err
	}

	system := RenderTemplate(s.SystemTemplate(a.BranchName), a.TemplateInputs)
	messages := s.RenderContext(a.BranchName)

	reply, err := s.oracle.Complete(ctx, &oracle.Request{
		Model:     s.cfg.Model,
		System:    system,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return false, err
	}

	s.append(&OracleResponse{Base: newBase(), Reply: *reply}, a.BranchName)
	return true, nil
}

// OracleResponse wraps one raw oracle reply.
type OracleResponse struct {
	Base
	Reply types.OracleReply `json:"response"`
}

// NewOracleResponse creates an oracle response interaction.
func NewOracleResponse(reply types.OracleReply) *OracleResponse {
	return &OracleResponse{Base: newBase(), Reply: reply}
}

func (o *OracleResponse) Kind() string { return KindOracleResponse }

// Step chains into a ToolCall when the reply requested one; a plain
// text reply leaves the branch idle awaiting external input.
func (o *OracleResponse) Step(ctx context.Context, s *Stack) (bool, error) {
	if !o.Reply.HasToolCall() {
		return false, nil
	}
	s.append(&ToolCall{
		Base:       newBase(),
		Tool:       o.Reply.ToolCall,
		Args:       o.Reply.ToolArgs,
		ToolCallID: o.Reply.ToolCallID,
	}, o.BranchName)
	return true, nil
}
