package tool

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(ctx context.Context, inv Invocation) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Definition{Handler: noopHandler})
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	err = r.Register(Definition{Name: "handlerless"})
	assert.ErrorIs(t, err, ErrInvalidDefinition)

	require.NoError(t, r.Register(Definition{Name: "ok", Handler: noopHandler}))
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Name: "t", Description: "first", Handler: noopHandler}))
	require.NoError(t, r.Register(Definition{Name: "t", Description: "second", Handler: noopHandler}))

	def, err := r.Get("t")
	require.NoError(t, err)
	assert.Equal(t, "second", def.Description)
}

func TestResolveFailsOnUnknownName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Name: "known", Handler: noopHandler}))

	_, err := r.Resolve([]string{"known", "missing"})
	assert.ErrorIs(t, err, ErrUnknownTool)

	defs, err := r.Resolve([]string{"known"})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "known", defs[0].Name)
}

func TestNamesAreSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(Definition{Name: name, Handler: noopHandler}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestExecuteUnknownToolIsAFrameworkError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "nope", Invocation{})
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestExecuteHandlerErrorBecomesOutcome(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{
		Name: "flaky",
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			return nil, fmt.Errorf("upstream unavailable")
		},
	}))

	outcome, err := r.Execute(context.Background(), "flaky", Invocation{})
	require.NoError(t, err)
	assert.True(t, outcome.IsError)
	assert.Equal(t, "upstream unavailable", outcome.Content["error"])
}

func TestExecuteContainsPanics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{
		Name: "bomb",
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			panic("kaboom")
		},
	}))

	outcome, err := r.Execute(context.Background(), "bomb", Invocation{})
	require.NoError(t, err)
	assert.True(t, outcome.IsError)
	assert.Contains(t, outcome.Content["error"], "kaboom")
}
