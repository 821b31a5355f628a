// Command calculator-mcp serves the calculator MCP server over stdio.
// Point a Hugin MCP server entry at this binary to try external tools.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hugin-ai/hugin/pkg/mcpserver/calculator"
)

func main() {
	server := calculator.NewServer()
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		fmt.Fprintf(os.Stderr, "calculator-mcp: %v\n", err)
		os.Exit(1)
	}
}
