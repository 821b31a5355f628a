package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declaring(namespaces ...string) func(string) bool {
	return func(ns string) bool {
		for _, d := range namespaces {
			if d == ns {
				return true
			}
		}
		return false
	}
}

func TestCommonNamespaceIsOpenToEveryone(t *testing.T) {
	state := NewState()

	// No declaration registered for this agent at all.
	require.NoError(t, state.Set("agent-a", CommonNamespace, "greeting", "hello"))

	v, ok, err := state.Get("agent-b", CommonNamespace, "greeting")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	require.NoError(t, state.Delete("agent-b", CommonNamespace, "greeting"))
	_, ok, err = state.Get("agent-a", CommonNamespace, "greeting")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownNamespaceIsAnError(t *testing.T) {
	state := NewState()
	state.DeclareAgent("agent-a", declaring("ghost"))

	_, _, err := state.Get("agent-a", "ghost", "k")
	assert.ErrorIs(t, err, ErrUnknownNamespace)
}

func TestUndeclaredNamespaceIsDenied(t *testing.T) {
	state := NewState()
	state.CreateNamespace("research")
	state.DeclareAgent("agent-a", declaring())

	err := state.Set("agent-a", "research", "k", 1)
	var denied *PermissionError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "agent-a", denied.AgentID)
	assert.Equal(t, "research", denied.Namespace)
}

func TestPermissionListRestrictsDeclaredAgents(t *testing.T) {
	state := NewState()
	state.CreateNamespace("research", "agent-a")
	state.DeclareAgent("agent-a", declaring("research"))
	state.DeclareAgent("agent-b", declaring("research"))

	require.NoError(t, state.Set("agent-a", "research", "finding", 42))

	// agent-b declares the namespace but is not on the list.
	_, _, err := state.Get("agent-b", "research", "finding")
	var denied *PermissionError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "agent-b", denied.AgentID)
}

func TestNamespaceWithoutPermissionListIsOpenToDeclarers(t *testing.T) {
	state := NewState()
	state.CreateNamespace("shared")
	state.DeclareAgent("agent-a", declaring("shared"))
	state.DeclareAgent("agent-b", declaring("shared"))

	require.NoError(t, state.Set("agent-a", "shared", "k", "v"))
	v, ok, err := state.Get("agent-b", "shared", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestRecreatingNamespaceKeepsValues(t *testing.T) {
	state := NewState()
	state.CreateNamespace("research")
	state.DeclareAgent("agent-a", declaring("research"))
	state.DeclareAgent("agent-b", declaring("research"))
	require.NoError(t, state.Set("agent-a", "research", "k", "kept"))

	// Re-creating with a permission list keeps values, swaps access.
	state.CreateNamespace("research", "agent-b")

	_, _, err := state.Get("agent-a", "research", "k")
	var denied *PermissionError
	assert.ErrorAs(t, err, &denied)

	v, ok, err := state.Get("agent-b", "research", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "kept", v)
}

func TestDeclarationFollowsConfigSwaps(t *testing.T) {
	state := NewState()
	state.CreateNamespace("research")

	declared := []string{}
	state.DeclareAgent("agent-a", func(ns string) bool {
		for _, d := range declared {
			if d == ns {
				return true
			}
		}
		return false
	})

	err := state.Set("agent-a", "research", "k", 1)
	assert.Error(t, err)

	declared = append(declared, "research")
	assert.NoError(t, state.Set("agent-a", "research", "k", 1))
}

func TestDeleteAbsentKeyIsNotAnError(t *testing.T) {
	state := NewState()
	assert.NoError(t, state.Delete("agent-a", CommonNamespace, "never-set"))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	state := NewState()
	state.CreateNamespace("research", "agent-a")
	state.DeclareAgent("agent-a", declaring("research"))
	require.NoError(t, state.Set("agent-a", "research", "k", "v"))
	require.NoError(t, state.Set("agent-a", CommonNamespace, "c", 1))

	values, perms := state.snapshot()

	restored := NewState()
	restored.restore(values, perms)
	restored.DeclareAgent("agent-a", declaring("research"))

	v, ok, err := restored.Get("agent-a", "research", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	restored.DeclareAgent("agent-b", declaring("research"))
	_, _, err = restored.Get("agent-b", "research", "k")
	var denied *PermissionError
	assert.True(t, errors.As(err, &denied), "permission list survives the round trip")
}
