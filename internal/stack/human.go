package stack

import (
	"context"

	"github.com/hugin-ai/hugin/pkg/types"
)

// AskHuman pauses a branch until a human answers.
type AskHuman struct {
	Base
	Question string `json:"question"`
}

// NewAskHuman creates a human question interaction.
func NewAskHuman(question string) *AskHuman {
	return &AskHuman{Base: newBase(), Question: question}
}

func (a *AskHuman) Kind() string { return KindAskHuman }

// Step blocks the branch; a HumanResponse must be appended externally.
func (a *AskHuman) Step(ctx context.Context, s *Stack) (bool, error) {
	return false, nil
}

// HumanResponse is a human's answer to a pending AskHuman.
type HumanResponse struct {
	Base
	QuestionID string `json:"questionID"`
	Response   string `json:"response"`
}

// NewHumanResponse creates a human response interaction answering the
// AskHuman with the given ID.
func NewHumanResponse(questionID, response string) *HumanResponse {
	return &HumanResponse{Base: newBase(), QuestionID: questionID, Response: response}
}

func (h *HumanResponse) Kind() string { return KindHumanResponse }

// Step resumes the conversation with the answer.
func (h *HumanResponse) Step(ctx context.Context, s *Stack) (bool, error) {
	s.append(NewAskOracle(types.TextPrompt(h.Response)), h.BranchName)
	return true, nil
}

// ExternalInput is out-of-band input queued for an agent. It is spliced
// into the stack at the next safe insertion point and converted into an
// AskOracle when the stack accepts input.
type ExternalInput struct {
	Base
	Input string `json:"input"`
}

// NewExternalInput creates an external input interaction.
func NewExternalInput(input string) *ExternalInput {
	return &ExternalInput{Base: newBase(), Input: input}
}

func (e *ExternalInput) Kind() string { return KindExternalInput }

// Step converts the input into an oracle question.
func (e *ExternalInput) Step(ctx context.Context, s *Stack) (bool, error) {
	s.append(NewAskOracle(types.TextPrompt(e.Input)), e.BranchName)
	return true, nil
}
