package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "researcher.yaml", `
name: researcher
model: claude-sonnet-4-5
systemTemplate: "You research {{topic}}."
tools:
  - echo
  - finish_task
stateNamespaces:
  - research
maxSteps: 50
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "researcher", cfg.Name)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
	assert.Equal(t, []string{"echo", "finish_task"}, cfg.Tools)
	assert.Equal(t, []string{"research"}, cfg.StateNamespaces)
	assert.Equal(t, 50, cfg.MaxSteps)
	assert.True(t, cfg.DeclaresNamespace("research"))
	assert.False(t, cfg.DeclaresNamespace("other"))
}

func TestLoadFileNameDefaultsToFilename(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scout.yaml", "model: m\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "scout", cfg.Name)
}

func TestLoadFileStateMachine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "phased.yaml", `
name: phased
model: m
stateMachine:
  initial: explore
  states:
    explore:
      config: explorer
      transitions:
        - to: write
          trigger:
            kind: tool_call
            tool: finish_research
        - to: write
          trigger:
            kind: step_count
            minSteps: 40
    write:
      config: writer
      transitions:
        - to: explore
          trigger:
            kind: state_pattern
            namespace: review
            pattern:
              verdict: rejected
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.StateMachine)
	assert.Equal(t, "explore", cfg.StateMachine.Initial)

	explore := cfg.StateMachine.States["explore"]
	require.Len(t, explore.Transitions, 2)
	assert.Equal(t, TriggerToolCall, explore.Transitions[0].Trigger.Kind)
	assert.Equal(t, "finish_research", explore.Transitions[0].Trigger.Tool)
	assert.Equal(t, 40, explore.Transitions[1].Trigger.MinSteps)

	write := cfg.StateMachine.States["write"]
	require.Len(t, write.Transitions, 1)
	assert.Equal(t, "review", write.Transitions[0].Trigger.Namespace)
	assert.Equal(t, map[string]any{"verdict": "rejected"}, write.Transitions[0].Trigger.Pattern)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "model: [unclosed\n")
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "parse config")

	noModel := writeFile(t, dir, "nomodel.yaml", "name: x\n")
	_, err = LoadFile(noModel)
	assert.ErrorContains(t, err, "no model")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "model: m\n")
	writeFile(t, dir, "b.yml", "model: m\n")
	writeFile(t, dir, "notes.txt", "not a config")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	_, err = reg.Get("a")
	assert.NoError(t, err)
	_, err = reg.Get("notes")
	assert.ErrorIs(t, err, ErrUnknownConfig)
}

func TestLoadTask(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "task.yaml", `
prompt: "Summarize {{url}}"
inputs:
  url: https://example.com
`)
	task, err := LoadTask(path)
	require.NoError(t, err)
	assert.Equal(t, "Summarize {{url}}", task.Prompt)
	assert.Equal(t, map[string]any{"url": "https://example.com"}, task.Inputs)

	empty := writeFile(t, dir, "empty.yaml", "inputs: {}\n")
	_, err = LoadTask(empty)
	assert.ErrorContains(t, err, "no prompt")
}
