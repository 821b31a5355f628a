package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hugin-ai/hugin/internal/logging"
)

// MCPServer describes one external MCP tool server reachable over stdio.
type MCPServer struct {
	Name        string            `yaml:"name" json:"name"`
	Command     []string          `yaml:"command" json:"command"`
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// MCPSource connects to MCP servers and registers their tools into a
// Registry under "<server>_<tool>" names.
type MCPSource struct {
	client   *sdkmcp.Client
	sessions []*sdkmcp.ClientSession
}

// NewMCPSource creates an MCP tool source.
func NewMCPSource() *MCPSource {
	return &MCPSource{
		client: sdkmcp.NewClient(&sdkmcp.Implementation{
			Name:    "hugin",
			Version: "1.0.0",
		}, nil),
	}
}

// Connect launches the server process, lists its tools and registers
// them into reg.
func (m *MCPSource) Connect(ctx context.Context, reg *Registry, server MCPServer) error {
	if len(server.Command) == 0 {
		return fmt.Errorf("mcp server %s: empty command", server.Name)
	}

	cmd := exec.Command(server.Command[0], server.Command[1:]...)
	cmd.Env = os.Environ()
	for k, v := range server.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	return m.ConnectTransport(ctx, reg, server.Name, &sdkmcp.CommandTransport{Command: cmd})
}

// ConnectTransport registers the tools of an MCP server reachable over
// an arbitrary transport. In-process servers use this directly.
func (m *MCPSource) ConnectTransport(ctx context.Context, reg *Registry, serverName string, transport sdkmcp.Transport) error {
	session, err := m.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("mcp server %s: connect: %w", serverName, err)
	}
	m.sessions = append(m.sessions, session)

	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		session.Close()
		return fmt.Errorf("mcp server %s: list tools: %w", serverName, err)
	}

	for _, mcpTool := range listed.Tools {
		name := sanitizeMCPName(serverName) + "_" + sanitizeMCPName(mcpTool.Name)
		schema, err := json.Marshal(mcpTool.InputSchema)
		if err != nil {
			schema = ObjectSchema(map[string]any{})
		}
		remote := mcpTool.Name
		def := Definition{
			Name:        name,
			Description: mcpTool.Description,
			Parameters:  schema,
			Handler:     m.callHandler(session, serverName, remote),
		}
		if err := reg.Register(def); err != nil {
			return err
		}
		logging.Debug().Str("server", serverName).Str("tool", name).Msg("registered mcp tool")
	}

	logging.Info().Str("server", serverName).Int("tools", len(listed.Tools)).Msg("mcp server connected")
	return nil
}

// Close shuts down all server sessions.
func (m *MCPSource) Close() {
	for _, session := range m.sessions {
		session.Close()
	}
	m.sessions = nil
}

func (m *MCPSource) callHandler(session *sdkmcp.ClientSession, server, remote string) Handler {
	return func(ctx context.Context, inv Invocation) (map[string]any, error) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      remote,
			Arguments: inv.Args,
		})
		if err != nil {
			return nil, fmt.Errorf("mcp %s/%s: %w", server, remote, err)
		}

		var output strings.Builder
		var artifactIDs []string
		for _, content := range result.Content {
			switch c := content.(type) {
			case *sdkmcp.TextContent:
				output.WriteString(c.Text)
			case *sdkmcp.ImageContent:
				if inv.Stack != nil {
					artifactIDs = append(artifactIDs, inv.Stack.RecordArtifact(remote, c.MIMEType, c.Data))
				}
			case *sdkmcp.AudioContent:
				if inv.Stack != nil {
					artifactIDs = append(artifactIDs, inv.Stack.RecordArtifact(remote, c.MIMEType, c.Data))
				}
			}
		}
		if result.IsError {
			return nil, fmt.Errorf("mcp %s/%s: %s", server, remote, output.String())
		}
		out := map[string]any{"output": output.String()}
		if len(artifactIDs) > 0 {
			out["artifacts"] = artifactIDs
		}
		return out, nil
	}
}

func sanitizeMCPName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
}
