package stack

import (
	"encoding/json"
	"fmt"

	"github.com/hugin-ai/hugin/pkg/types"
)

// reducedContentLimit is the rune budget for abbreviated context
// entries.
const reducedContentLimit = 240

// RenderContext builds the oracle message list for a branch. The
// visible history is walked newest-first so the trimming policies can
// count recency, then re-reversed into chronological order.
//
// Three policies apply simultaneously:
//   - an AskOracle with IncludeInContext false is dropped together with
//     its OracleResponse;
//   - tools with a context window keep only their most recent N
//     exchanges, and none at all once a TaskResult has occurred;
//   - tools with a reduced context window render older turns
//     abbreviated instead of dropping them, except turns that recorded
//     an error, which are dropped.
func (s *Stack) RenderContext(branch string) []types.Message {
	view := s.BranchInteractions(branch)

	var out []types.Message // newest-first while building
	var heldReply *OracleResponse
	sawTaskResult := false
	toolCounts := make(map[string]int)
	askTurns := 0

	for idx := len(view) - 1; idx >= 0; idx-- {
		switch v := view[idx].(type) {
		case *TaskResult:
			sawTaskResult = true

		case *OracleResponse:
			heldReply = v

		case *ExternalInput:
			out = append(out, types.Message{Role: types.RoleUser, Content: v.Input})

		case *AskOracle:
			askTurns++
			include := v.IncludeInContext
			reduced := false

			if v.ToolName != "" {
				opts := s.toolOptions(v.ToolName)
				if opts.ContextWindow > 0 {
					toolCounts[v.ToolName]++
					if sawTaskResult || toolCounts[v.ToolName] > opts.ContextWindow {
						include = false
					}
				}
				if include && opts.ReducedContextWindow > 0 && askTurns > opts.ReducedContextWindow {
					if _, isError := v.TemplateInputs["error"]; isError {
						include = false
					} else {
						reduced = true
					}
				}
			}

			if include {
				if heldReply != nil {
					out = append(out, types.Message{
						Role:    types.RoleAssistant,
						Content: clip(renderReply(&heldReply.Reply), reduced),
					})
				}
				out = append(out, types.Message{
					Role:    types.RoleUser,
					Content: clip(renderPrompt(v), reduced),
				})
			}
			heldReply = nil
		}
	}

	// Restore chronological order.
	for left, right := 0, len(out)-1; left < right; left, right = left+1, right-1 {
		out[left], out[right] = out[right], out[left]
	}
	return out
}

func (s *Stack) toolOptions(toolName string) (opts struct {
	ContextWindow        int
	ReducedContextWindow int
}) {
	def, err := s.tools.Get(toolName)
	if err != nil {
		return opts
	}
	opts.ContextWindow = def.Options.ContextWindow
	opts.ReducedContextWindow = def.Options.ReducedContextWindow
	return opts
}

func renderPrompt(a *AskOracle) string {
	switch a.Prompt.Kind {
	case types.PromptTemplate:
		return RenderTemplate(a.Prompt.Template, a.TemplateInputs)
	case types.PromptToolResult:
		data, err := json.Marshal(a.Prompt.ToolResult)
		if err != nil {
			return fmt.Sprintf("[%s result] %v", a.ToolName, a.Prompt.ToolResult)
		}
		return fmt.Sprintf("[%s result] %s", a.ToolName, data)
	default:
		return a.Prompt.Text
	}
}

func renderReply(reply *types.OracleReply) string {
	if !reply.HasToolCall() {
		return reply.Content
	}
	args, err := json.Marshal(reply.ToolArgs)
	if err != nil {
		args = []byte("{}")
	}
	if reply.Content == "" {
		return fmt.Sprintf("[calling %s %s]", reply.ToolCall, args)
	}
	return fmt.Sprintf("%s\n[calling %s %s]", reply.Content, reply.ToolCall, args)
}

func clip(content string, reduced bool) string {
	if !reduced {
		return content
	}
	runes := []rune(content)
	if len(runes) <= reducedContentLimit {
		return content
	}
	return string(runes[:reducedContentLimit]) + " [...]"
}
