package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugin-ai/hugin/internal/session"
)

var (
	messageSession string
	messageAgent   string
	messageAnswer  bool
)

var messageCmd = &cobra.Command{
	Use:   "message [text...]",
	Short: "Send input to a stored session's agent",
	Long: `Queue out-of-band input for an agent, or answer its pending question
with --answer. The session is saved afterwards; resume it with
'hugin run --session' to let the agent process the input.`,
	RunE: sendMessage,
}

func init() {
	messageCmd.Flags().StringVarP(&messageSession, "session", "s", "", "Session ID (required)")
	messageCmd.Flags().StringVarP(&messageAgent, "agent", "a", "", "Agent ID (defaults to the first agent)")
	messageCmd.Flags().BoolVar(&messageAnswer, "answer", false, "Answer the agent's pending question instead of queueing input")
	messageCmd.MarkFlagRequired("session")
}

func sendMessage(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	ctx := cmd.Context()
	env, err := buildEnvironment(ctx, "")
	if err != nil {
		return err
	}
	defer env.close()

	sess, err := session.Load(ctx, messageSession, env.sessionOptions())
	if err != nil {
		return err
	}

	agentID := messageAgent
	if agentID == "" {
		agents := sess.Agents()
		if len(agents) == 0 {
			return fmt.Errorf("session %s has no agents", sess.ID())
		}
		agentID = agents[0].ID()
	}

	if messageAnswer {
		if err := sess.SubmitHumanResponse(agentID, text); err != nil {
			return err
		}
		fmt.Printf("answered pending question of %s\n", agentID)
	} else {
		id, err := sess.MessageAgent(agentID, text)
		if err != nil {
			return err
		}
		fmt.Printf("queued %s for %s\n", id, agentID)
	}
	return sess.Save(ctx)
}
