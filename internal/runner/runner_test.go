package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugin-ai/hugin/internal/config"
	"github.com/hugin-ai/hugin/internal/oracle"
	"github.com/hugin-ai/hugin/internal/session"
	"github.com/hugin-ai/hugin/internal/storage"
	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

func newSession(t *testing.T, tools []string, replies ...types.OracleReply) (*session.Session, session.Options) {
	t.Helper()
	registry := config.NewRegistry()
	require.NoError(t, registry.Add(&config.Config{
		Name: "worker", Model: "m", Tools: tools,
	}))
	toolReg := tool.NewRegistry()
	tool.RegisterBuiltins(toolReg)

	opts := session.Options{
		Configs: registry,
		Tools:   toolReg,
		Oracle:  oracle.NewScripted(replies...),
		Store:   storage.New(t.TempDir()),
	}
	s := session.New(opts)
	_, err := s.CreateAgent("worker", types.Task{Prompt: "go"})
	require.NoError(t, err)
	return s, opts
}

func TestRunFinishes(t *testing.T) {
	s, opts := newSession(t, []string{tool.NameFinishTask}, types.OracleReply{
		Role:     types.RoleAssistant,
		ToolCall: tool.NameFinishTask, ToolCallID: "c1",
		ToolArgs: map[string]any{"finish_type": types.FinishSuccess, "summary": "done"},
	})

	result := New(s, Options{}).Run(context.Background())
	assert.Equal(t, ExitFinished, result.Exit)
	assert.Equal(t, 1, result.Steps)
	assert.NoError(t, result.Err)
	assert.True(t, s.Finished())

	// The final save ran: the session is loadable again.
	restored, err := session.Load(context.Background(), s.ID(), opts)
	require.NoError(t, err)
	assert.Len(t, restored.Agents(), 1)
}

func TestRunIdlesOut(t *testing.T) {
	s, _ := newSession(t, []string{tool.NameAskHuman}, types.OracleReply{
		Role:     types.RoleAssistant,
		ToolCall: tool.NameAskHuman, ToolCallID: "q1",
		ToolArgs: map[string]any{"question": "may I?"},
	})

	result := New(s, Options{IdleLimit: 2}).Run(context.Background())
	assert.Equal(t, ExitIdle, result.Exit)
	assert.False(t, s.Finished())
}

func TestRunHitsStepCap(t *testing.T) {
	s, _ := newSession(t, []string{tool.NameSleepTicks}, types.OracleReply{
		Role:     types.RoleAssistant,
		ToolCall: tool.NameSleepTicks, ToolCallID: "w1",
		ToolArgs: map[string]any{"ticks": 1000},
	})

	result := New(s, Options{MaxSteps: 5}).Run(context.Background())
	assert.Equal(t, ExitMaxSteps, result.Exit)
	assert.Equal(t, 5, result.Steps)
}

func TestRunAbortsOnCancelledContext(t *testing.T) {
	s, _ := newSession(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(s, Options{}).Run(ctx)
	assert.Equal(t, ExitAborted, result.Exit)
	assert.Equal(t, 0, result.Steps)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestOptionsDefaults(t *testing.T) {
	s, _ := newSession(t, nil)
	r := New(s, Options{})
	assert.Equal(t, DefaultMaxSteps, r.maxSteps)
	assert.Equal(t, DefaultSaveEvery, r.saveEvery)
	assert.Equal(t, DefaultIdleLimit, r.idleLimit)

	r = New(s, Options{MaxSteps: 7, SaveEvery: -1, IdleLimit: 1})
	assert.Equal(t, 7, r.maxSteps)
	assert.Equal(t, -1, r.saveEvery)
	assert.Equal(t, 1, r.idleLimit)
}
