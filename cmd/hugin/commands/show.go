package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugin-ai/hugin/internal/session"
	"github.com/hugin-ai/hugin/internal/stack"
	"github.com/hugin-ai/hugin/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a stored session's interaction history",
	Args:  cobra.ExactArgs(1),
	RunE:  showSession,
}

func showSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := buildEnvironment(ctx, "")
	if err != nil {
		return err
	}
	defer env.close()

	sess, err := session.Load(ctx, args[0], env.sessionOptions())
	if err != nil {
		return err
	}

	fmt.Printf("session %s (%d agents)\n", sess.ID(), len(sess.Agents()))
	for _, a := range sess.Agents() {
		fmt.Printf("\nagent %s", a.ID())
		if a.Config() != nil {
			fmt.Printf(" config=%s", a.Config().Name)
		}
		if a.CurrentState() != "" {
			fmt.Printf(" state=%s", a.CurrentState())
		}
		fmt.Println()

		for idx, i := range a.Stack().Interactions() {
			branch := i.Branch()
			if branch == stack.MainBranch {
				branch = "main"
			}
			fmt.Printf("  %3d %-15s %-12s %s\n", idx, i.Kind(), branch, describe(i))
		}
	}
	return nil
}

// describe gives a one-line summary of an interaction's payload.
func describe(i stack.Interaction) string {
	switch v := i.(type) {
	case *stack.TaskDefinition:
		return clip(v.Task.Prompt)
	case *stack.AskOracle:
		if v.Prompt.Kind == types.PromptTemplate {
			return clip(v.Prompt.Template)
		}
		return clip(v.Prompt.Text)
	case *stack.OracleResponse:
		if v.Reply.HasToolCall() {
			return "-> " + v.Reply.ToolCall
		}
		return clip(v.Reply.Content)
	case *stack.ToolCall:
		return v.Tool
	case *stack.ToolResult:
		if v.IsError {
			return "error"
		}
		return "ok"
	case *stack.AskHuman:
		return clip(v.Question)
	case *stack.HumanResponse:
		return clip(v.Response)
	case *stack.ExternalInput:
		return clip(v.Input)
	case *stack.TaskResult:
		return v.FinishType + ": " + clip(v.Summary)
	case *stack.AgentCall:
		return v.ConfigName + " -> " + v.AgentID
	case *stack.AgentResult:
		return v.FinishType + " from " + v.AgentID
	case *stack.Waiting:
		if v.Condition == nil {
			return "terminal"
		}
		return v.Condition.Name
	default:
		return ""
	}
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) > 60 {
		return string(runes[:57]) + "..."
	}
	return s
}
