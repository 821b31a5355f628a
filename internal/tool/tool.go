// Package tool provides the tool framework consumed by the interaction
// stack: declarative tool definitions, an explicit registry, and the
// builtin orchestration tools.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes one tool call. A returned error is a normal tool
// failure and is converted into an error outcome by the registry; it is
// never a framework-level fault.
type Handler func(ctx context.Context, inv Invocation) (map[string]any, error)

// Options tune how a tool's calls and results are rendered back into
// oracle context.
type Options struct {
	// RespondWithText renders the result as free text instead of a
	// structured tool-result prompt.
	RespondWithText bool `json:"respondWithText,omitempty"`

	// ExcludeFromContext hides the call and its result from rendered
	// context entirely, for deterministic chaining steps.
	ExcludeFromContext bool `json:"excludeFromContext,omitempty"`

	// ContextWindow, when positive, keeps only the most recent N
	// calls of this tool in rendered context.
	ContextWindow int `json:"contextWindow,omitempty"`

	// ReducedContextWindow, when positive, renders turns older than the
	// most recent N in abbreviated form instead of dropping them.
	ReducedContextWindow int `json:"reducedContextWindow,omitempty"`
}

// Definition describes a registered tool.
type Definition struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing the arguments.
	Parameters json.RawMessage
	// Interactive marks tools that hand control to a human.
	Interactive bool
	Options     Options
	Handler     Handler
}

// Invocation carries the arguments and the injected collaborators a
// handler may use.
type Invocation struct {
	Args    map[string]any
	Branch  string
	AgentID string
	// Stack exposes deferred stack mutations to orchestration tools.
	Stack Caller
	// State is the session-shared state store, nil outside a session.
	State StateStore
}

// Outcome is the result of executing one tool call. Tool failures are
// data: IsError outcomes flow back to the oracle as conversation content.
type Outcome struct {
	Content map[string]any `json:"content"`
	IsError bool           `json:"isError"`
}

// ErrorOutcome wraps a tool failure as an outcome.
func ErrorOutcome(err error) Outcome {
	return Outcome{IsError: true, Content: map[string]any{"error": err.Error()}}
}

// Caller is the stack surface available to tool handlers. Mutations are
// deferred: they are applied by the stack after the tool's result has
// been recorded, so the ToolResult always directly follows its ToolCall.
type Caller interface {
	// FinishTask ends the branch with a task result.
	FinishTask(branch, finishType, summary, reason string)
	// AskHuman pauses the branch pending a human response.
	AskHuman(branch, question string)
	// StartBranch forks a named branch seeded with an oracle prompt.
	StartBranch(name, prompt string)
	// Wait parks the branch on a named condition, optionally chaining
	// into another tool once the condition is met.
	Wait(branch, condition string, params map[string]any, nextTool string, nextToolArgs map[string]any)
	// CallAgent spawns a sub-agent from a named config and records the
	// call on the branch. Returns the new agent's ID.
	CallAgent(branch, configName, prompt string) (string, error)
	// BranchNames lists the named branches seen on the stack.
	BranchNames() []string
	// BranchResult returns the task result recorded on a branch, if any.
	BranchResult(branch string) (map[string]any, bool)
	// RecordArtifact stores an opaque payload produced by the tool,
	// attached to the tool's result by ID. Returns the artifact ID.
	RecordArtifact(name, mediaType string, data []byte) string
}

// StateStore is the session-scoped shared state surface, with access
// mediated per accessing agent.
type StateStore interface {
	Get(agentID, namespace, key string) (any, bool, error)
	Set(agentID, namespace, key string, value any) error
	Delete(agentID, namespace, key string) error
}

// ObjectSchema builds a JSON Schema object from property definitions.
func ObjectSchema(properties map[string]any, required ...string) json.RawMessage {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tool: invalid schema: %v", err))
	}
	return data
}
