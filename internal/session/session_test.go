package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugin-ai/hugin/internal/config"
	"github.com/hugin-ai/hugin/internal/oracle"
	"github.com/hugin-ai/hugin/internal/stack"
	"github.com/hugin-ai/hugin/internal/storage"
	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

func testRegistry(t *testing.T, configs ...*config.Config) *config.Registry {
	t.Helper()
	registry := config.NewRegistry()
	for _, cfg := range configs {
		require.NoError(t, registry.Add(cfg))
	}
	return registry
}

func testTools() *tool.Registry {
	reg := tool.NewRegistry()
	tool.RegisterBuiltins(reg)
	return reg
}

func TestCreateAgentUnknownConfig(t *testing.T) {
	s := New(Options{
		Configs: testRegistry(t),
		Tools:   testTools(),
		Oracle:  oracle.NewScripted(),
	})
	_, err := s.CreateAgent("missing", types.Task{Prompt: "x"})
	assert.ErrorIs(t, err, config.ErrUnknownConfig)
}

func TestCreateAgentUnknownProvider(t *testing.T) {
	s := New(Options{
		Configs: testRegistry(t, &config.Config{
			Name: "exotic", Model: "m", Provider: "never-wired",
		}),
		Tools:  testTools(),
		Oracle: oracle.NewScripted(),
	})
	_, err := s.CreateAgent("exotic", types.Task{Prompt: "x"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestCreateAgentDeclaresNamespaces(t *testing.T) {
	s := New(Options{
		Configs: testRegistry(t, &config.Config{
			Name: "worker", Model: "m",
			StateNamespaces: []string{"research"},
		}),
		Tools:  testTools(),
		Oracle: oracle.NewScripted(),
	})

	a, err := s.CreateAgent("worker", types.Task{Prompt: "dig in"})
	require.NoError(t, err)

	require.NoError(t, s.State().Set(a.ID(), "research", "k", "v"))
	v, ok, err := s.State().Get(a.ID(), "research", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	// Another namespace stays off limits.
	s.State().CreateNamespace("private")
	err = s.State().Set(a.ID(), "private", "k", "v")
	var denied *PermissionError
	assert.ErrorAs(t, err, &denied)
}

func TestSubAgentSpawnAndResultDelivery(t *testing.T) {
	parentOracle := oracle.NewScripted(
		types.OracleReply{
			Role:     types.RoleAssistant,
			ToolCall: tool.NameCallAgent, ToolCallID: "c1",
			ToolArgs: map[string]any{"config": "helper", "prompt": "look this up"},
		},
		types.OracleReply{
			Role:     types.RoleAssistant,
			ToolCall: tool.NameFinishTask, ToolCallID: "c2",
			ToolArgs: map[string]any{"finish_type": types.FinishSuccess, "summary": "used the helper"},
		},
	)
	helperOracle := oracle.NewScripted(
		types.OracleReply{
			Role:     types.RoleAssistant,
			ToolCall: tool.NameFinishTask, ToolCallID: "h1",
			ToolArgs: map[string]any{"finish_type": types.FinishSuccess, "summary": "found it"},
		},
	)

	s := New(Options{
		Configs: testRegistry(t,
			&config.Config{Name: "lead", Model: "m", Tools: []string{tool.NameCallAgent, tool.NameFinishTask}},
			&config.Config{Name: "helper", Model: "m", Provider: "helper", Tools: []string{tool.NameFinishTask}},
		),
		Tools:     testTools(),
		Oracle:    parentOracle,
		Providers: map[string]oracle.Provider{"helper": helperOracle},
	})

	parent, err := s.CreateAgent("lead", types.Task{Prompt: "delegate the lookup"})
	require.NoError(t, err)

	ctx := context.Background()

	// First pass: the parent calls the sub-agent and blocks on it.
	progress, err := s.Step(ctx)
	require.NoError(t, err)
	assert.True(t, progress)
	require.Len(t, s.Agents(), 2)

	child := s.Agents()[1]
	assert.NotEqual(t, parent.ID(), child.ID())
	assert.False(t, s.Finished())

	var call *stack.AgentCall
	for _, i := range parent.Stack().Interactions() {
		if c, ok := i.(*stack.AgentCall); ok {
			call = c
		}
	}
	require.NotNil(t, call)
	assert.Equal(t, child.ID(), call.AgentID)

	// Second pass: the child finishes; the parent stays blocked.
	_, err = s.Step(ctx)
	require.NoError(t, err)
	assert.True(t, child.Finished())
	assert.False(t, parent.Finished())

	// Third pass: the result is delivered and the parent wraps up.
	_, err = s.Step(ctx)
	require.NoError(t, err)

	var delivered *stack.AgentResult
	for _, i := range parent.Stack().Interactions() {
		if r, ok := i.(*stack.AgentResult); ok {
			delivered = r
		}
	}
	require.NotNil(t, delivered)
	assert.Equal(t, child.ID(), delivered.AgentID)
	assert.Equal(t, types.FinishSuccess, delivered.FinishType)
	assert.Equal(t, "found it", delivered.Summary)

	assert.True(t, parent.Finished())
	assert.True(t, s.Finished())
}

func TestSubmitHumanResponse(t *testing.T) {
	s := New(Options{
		Configs: testRegistry(t, &config.Config{
			Name: "asker", Model: "m", Tools: []string{tool.NameAskHuman},
		}),
		Tools: testTools(),
		Oracle: oracle.NewScripted(types.OracleReply{
			Role:     types.RoleAssistant,
			ToolCall: tool.NameAskHuman, ToolCallID: "q1",
			ToolArgs: map[string]any{"question": "which color?"},
		}),
	})

	a, err := s.CreateAgent("asker", types.Task{Prompt: "pick a color"})
	require.NoError(t, err)

	// No question asked yet.
	err = s.SubmitHumanResponse(a.ID(), "blue")
	assert.ErrorIs(t, err, ErrNoPendingQuestion)

	_, err = s.Step(context.Background())
	require.NoError(t, err)

	pending, err := s.PendingQuestion(a.ID())
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "which color?", pending.Question)

	require.NoError(t, s.SubmitHumanResponse(a.ID(), "blue"))

	pending, err = s.PendingQuestion(a.ID())
	require.NoError(t, err)
	assert.Nil(t, pending)

	// A second answer has nothing to attach to.
	err = s.SubmitHumanResponse(a.ID(), "green")
	assert.ErrorIs(t, err, ErrNoPendingQuestion)
}

func TestMessageAgentUnknown(t *testing.T) {
	s := New(Options{Configs: testRegistry(t), Tools: testTools(), Oracle: oracle.NewScripted()})
	_, err := s.MessageAgent("agent_missing", "hello?")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestFinishedEmptySessionIsNotFinished(t *testing.T) {
	s := New(Options{Configs: testRegistry(t), Tools: testTools(), Oracle: oracle.NewScripted()})
	assert.False(t, s.Finished())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := storage.New(t.TempDir())
	registry := testRegistry(t, &config.Config{
		Name: "solo", Model: "m",
		Tools:           []string{tool.NameEcho},
		StateNamespaces: []string{"notes"},
	})

	opts := Options{
		Configs: registry,
		Tools:   testTools(),
		Oracle: oracle.NewScripted(types.OracleReply{
			Role:     types.RoleAssistant,
			ToolCall: tool.NameEcho, ToolCallID: "c1",
			ToolArgs: map[string]any{"message": "ping"},
		}),
		Store: store,
	}
	s := New(opts)

	a, err := s.CreateAgent("solo", types.Task{Prompt: "say ping"})
	require.NoError(t, err)
	_, err = s.Step(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.State().Set(a.ID(), "notes", "k", "remember me"))
	require.NoError(t, s.State().Set(a.ID(), CommonNamespace, "shared", float64(7)))

	require.NoError(t, s.Save(context.Background()))

	restored, err := Load(context.Background(), s.ID(), opts)
	require.NoError(t, err)
	assert.Equal(t, s.ID(), restored.ID())
	require.Len(t, restored.Agents(), 1)

	ra := restored.Agents()[0]
	assert.Equal(t, a.ID(), ra.ID())
	assert.Equal(t, "solo", ra.Config().Name)
	assert.Equal(t, a.Stack().Len(), ra.Stack().Len())
	assert.Equal(t, kindsOf(a.Stack().Interactions()), kindsOf(ra.Stack().Interactions()))

	v, ok, err := restored.State().Get(ra.ID(), "notes", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "remember me", v)

	v, ok, err = restored.State().Get(ra.ID(), CommonNamespace, "shared")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(7), v)
}

func TestToolArtifactsPersistOnSave(t *testing.T) {
	store := storage.New(t.TempDir())
	tools := testTools()
	require.NoError(t, tools.Register(tool.Definition{
		Name:       "render",
		Parameters: tool.ObjectSchema(map[string]any{}),
		Handler: func(ctx context.Context, inv tool.Invocation) (map[string]any, error) {
			id := inv.Stack.RecordArtifact("chart.svg", "image/svg+xml", []byte("<svg/>"))
			return map[string]any{"artifact": id}, nil
		},
	}))

	s := New(Options{
		Configs: testRegistry(t, &config.Config{
			Name: "artist", Model: "m", Tools: []string{"render"},
		}),
		Tools: tools,
		Oracle: oracle.NewScripted(types.OracleReply{
			Role:     types.RoleAssistant,
			ToolCall: "render", ToolCallID: "c1",
			ToolArgs: map[string]any{},
		}),
		Store: store,
	})

	a, err := s.CreateAgent("artist", types.Task{Prompt: "draw something"})
	require.NoError(t, err)
	_, err = s.Step(context.Background())
	require.NoError(t, err)

	arts := a.Stack().Artifacts()
	require.Len(t, arts, 1)
	require.NoError(t, s.Save(context.Background()))

	stored, err := store.LoadArtifact(context.Background(), arts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "chart.svg", stored.Name)
	assert.Equal(t, "image/svg+xml", stored.MediaType)
	assert.Equal(t, []byte("<svg/>"), stored.Data)
}

func kindsOf(interactions []stack.Interaction) []string {
	out := make([]string, len(interactions))
	for i, in := range interactions {
		out[i] = in.Kind()
	}
	return out
}
