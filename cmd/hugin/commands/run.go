package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugin-ai/hugin/internal/runner"
	"github.com/hugin-ai/hugin/internal/session"
)

var (
	runConfig   string
	runTaskFile string
	runMCPFile  string
	runMaxSteps int
	runSession  string
)

var runCmd = &cobra.Command{
	Use:   "run [prompt...]",
	Short: "Run a task to completion",
	Long: `Create a session with one agent and step it until the task finishes,
the step cap is hit, or every branch blocks on external input.

Examples:
  hugin run --config researcher "Summarize the open incidents"
  hugin run --config planner --task task.yaml
  hugin run --session sess_01H... # resume a stored session`,
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVarP(&runConfig, "config", "c", "", "Agent config name (required unless resuming)")
	runCmd.Flags().StringVar(&runTaskFile, "task", "", "Task YAML file")
	runCmd.Flags().StringVar(&runMCPFile, "mcp", "", "MCP servers YAML file")
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 0, "Step cap (0 = default)")
	runCmd.Flags().StringVarP(&runSession, "session", "s", "", "Session ID to resume")
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, err := buildEnvironment(ctx, runMCPFile)
	if err != nil {
		return err
	}
	defer env.close()

	var sess *session.Session
	if runSession != "" {
		sess, err = session.Load(ctx, runSession, env.sessionOptions())
		if err != nil {
			return err
		}
	} else {
		if runConfig == "" {
			return fmt.Errorf("--config is required when starting a new session")
		}
		task, err := loadTask(runTaskFile, strings.Join(args, " "))
		if err != nil {
			return err
		}
		sess = session.New(env.sessionOptions())
		if _, err := sess.CreateAgent(runConfig, task); err != nil {
			return err
		}
	}

	result := runner.New(sess, runner.Options{MaxSteps: runMaxSteps}).Run(ctx)
	fmt.Printf("session %s: %s after %d steps\n", sess.ID(), result.Exit, result.Steps)

	for _, a := range sess.Agents() {
		state := ""
		if a.CurrentState() != "" {
			state = " state=" + a.CurrentState()
		}
		fmt.Printf("  agent %s: %d interactions%s\n", a.ID(), a.Stack().Len(), state)
	}
	if result.Err != nil {
		return result.Err
	}
	return nil
}
