// Package oracle abstracts the LLM completion call. Providers are
// opaque collaborators: they may be slow and they may fail, and no retry
// happens at this layer.
package oracle

import (
	"context"

	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

// Request is one completion call.
type Request struct {
	Model     string
	System    string
	Messages  []types.Message
	Tools     []tool.Definition
	MaxTokens int
}

// Provider produces oracle replies.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*types.OracleReply, error)
}

// Func adapts a function to the Provider interface.
type Func func(ctx context.Context, req *Request) (*types.OracleReply, error)

// Complete implements Provider.
func (f Func) Complete(ctx context.Context, req *Request) (*types.OracleReply, error) {
	return f(ctx, req)
}
