// Package types contains the serializable value types shared across the
// Hugin framework: tasks, prompts, oracle replies and artifacts.
package types

// Task describes the work an agent was created to perform.
type Task struct {
	// Prompt is the initial instruction handed to the oracle.
	Prompt string `json:"prompt"`

	// SystemTemplate overrides the config-level system template when set.
	SystemTemplate string `json:"systemTemplate,omitempty"`

	// Tools, when non-nil, replaces the config-level tool set entirely.
	// A nil slice means "fall back to the config tools".
	Tools []string `json:"tools,omitempty"`

	// Inputs are substituted into prompt templates.
	Inputs map[string]any `json:"inputs,omitempty"`
}

// HasTools reports whether the task carries its own tool set.
func (t Task) HasTools() bool { return t.Tools != nil }

// PromptKind discriminates the Prompt union.
type PromptKind string

const (
	PromptText       PromptKind = "text"
	PromptTemplate   PromptKind = "template"
	PromptToolResult PromptKind = "tool_result"
)

// Prompt is the content of an AskOracle interaction. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Prompt struct {
	Kind       PromptKind     `json:"kind"`
	Text       string         `json:"text,omitempty"`
	Template   string         `json:"template,omitempty"`
	ToolResult map[string]any `json:"toolResult,omitempty"`
}

// TextPrompt builds a plain text prompt.
func TextPrompt(text string) Prompt {
	return Prompt{Kind: PromptText, Text: text}
}

// TemplatePrompt builds a template prompt rendered against template inputs.
func TemplatePrompt(template string) Prompt {
	return Prompt{Kind: PromptTemplate, Template: template}
}

// ToolResultPrompt builds a structured tool-result prompt.
func ToolResultPrompt(result map[string]any) Prompt {
	return Prompt{Kind: PromptToolResult, ToolResult: result}
}

// OracleReply is the raw output of one oracle completion call.
// An empty ToolCall means the turn ended with plain text.
type OracleReply struct {
	Role         string         `json:"role"`
	Content      string         `json:"content,omitempty"`
	ToolCall     string         `json:"toolCall,omitempty"`
	ToolCallID   string         `json:"toolCallID,omitempty"`
	ToolArgs     map[string]any `json:"toolArgs,omitempty"`
	InputTokens  int            `json:"inputTokens,omitempty"`
	OutputTokens int            `json:"outputTokens,omitempty"`
}

// HasToolCall reports whether the reply requests a tool invocation.
func (r OracleReply) HasToolCall() bool { return r.ToolCall != "" }

// Message is one role-tagged entry of rendered oracle context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Artifact is an opaque blob attached to an interaction, persisted by ID
// and referenced from interactions by ID only.
type Artifact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType,omitempty"`
	Data      []byte `json:"data,omitempty"`
}

// Finish types recorded on a TaskResult.
const (
	FinishSuccess = "success"
	FinishFailure = "failure"
	FinishAborted = "aborted"
)
