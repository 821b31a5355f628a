// Package calculator provides a small MCP server used to demonstrate
// and test Hugin's external tool integration.
package calculator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SumInput is the argument payload of the sum tool.
type SumInput struct {
	Numbers []float64 `json:"numbers" jsonschema:"numbers to add"`
}

// MeanInput is the argument payload of the mean tool.
type MeanInput struct {
	Numbers []float64 `json:"numbers" jsonschema:"numbers to average"`
}

// NewServer creates the calculator MCP server.
func NewServer() *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "calculator",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "sum",
		Description: "Calculates the sum of an array of numbers",
	}, sumHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "mean",
		Description: "Calculates the arithmetic mean of an array of numbers",
	}, meanHandler)

	return s
}

func sumHandler(ctx context.Context, req *mcp.CallToolRequest, in SumInput) (*mcp.CallToolResult, any, error) {
	var sum float64
	for _, n := range in.Numbers {
		sum += n
	}
	return textResult(sum), nil, nil
}

func meanHandler(ctx context.Context, req *mcp.CallToolRequest, in MeanInput) (*mcp.CallToolResult, any, error) {
	if len(in.Numbers) == 0 {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "mean of an empty list is undefined"}},
		}, nil, nil
	}
	var sum float64
	for _, n := range in.Numbers {
		sum += n
	}
	return textResult(sum / float64(len(in.Numbers))), nil, nil
}

func textResult(v float64) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: formatFloat(v)}},
	}
}

// formatFloat renders whole numbers without a decimal point.
func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprintf("%g", f)
}
