package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/hugin-ai/hugin/pkg/types"
)

// Scripted is a Provider that replays a fixed sequence of replies. It is
// the test and demo double for a real oracle.
type Scripted struct {
	mu       sync.Mutex
	replies  []types.OracleReply
	next     int
	Requests []Request
}

// NewScripted creates a provider that returns the given replies in order.
func NewScripted(replies ...types.OracleReply) *Scripted {
	return &Scripted{replies: replies}
}

// Complete implements Provider. It fails once the script is exhausted.
func (s *Scripted) Complete(ctx context.Context, req *Request) (*types.OracleReply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, *req)
	if s.next >= len(s.replies) {
		return nil, fmt.Errorf("scripted oracle exhausted after %d replies", len(s.replies))
	}
	reply := s.replies[s.next]
	s.next++
	if reply.Role == "" {
		reply.Role = types.RoleAssistant
	}
	return &reply, nil
}

// Calls returns how many completions have been served.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// TextReply builds a plain text scripted reply.
func TextReply(content string) types.OracleReply {
	return types.OracleReply{Role: types.RoleAssistant, Content: content}
}

// ToolCallReply builds a scripted reply that invokes a tool.
func ToolCallReply(toolName, callID string, args map[string]any) types.OracleReply {
	return types.OracleReply{
		Role:       types.RoleAssistant,
		ToolCall:   toolName,
		ToolCallID: callID,
		ToolArgs:   args,
	}
}
