package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hugin-ai/hugin/internal/config"
	"github.com/hugin-ai/hugin/internal/event"
	"github.com/hugin-ai/hugin/internal/logging"
	"github.com/hugin-ai/hugin/internal/oracle"
	"github.com/hugin-ai/hugin/internal/session"
	"github.com/hugin-ai/hugin/internal/storage"
	"github.com/hugin-ai/hugin/internal/tool"
	"github.com/hugin-ai/hugin/pkg/types"
)

// environment bundles the collaborators every command wires the same
// way: storage, event bus, registries and oracle providers.
type environment struct {
	store      *storage.Store
	bus        *event.Bus
	configs    *config.Registry
	tools      *tool.Registry
	providers  map[string]oracle.Provider
	defaultLLM oracle.Provider
	mcp        *tool.MCPSource
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".hugin")
	}
	return ".hugin"
}

// buildEnvironment assembles the shared wiring from the global flags.
// mcpFile optionally names a YAML file of MCP servers to connect.
func buildEnvironment(ctx context.Context, mcpFile string) (*environment, error) {
	store := storage.New(dataDir)

	configs, err := config.LoadDir(configDir)
	if err != nil {
		return nil, fmt.Errorf("load configs: %w", err)
	}

	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools)

	env := &environment{
		store:   store,
		bus:     event.NewBus(),
		configs: configs,
		tools:   tools,
	}

	if mcpFile != "" {
		servers, err := loadMCPServers(mcpFile)
		if err != nil {
			return nil, err
		}
		env.mcp = tool.NewMCPSource()
		for _, server := range servers {
			if err := env.mcp.Connect(ctx, tools, server); err != nil {
				logging.Warn().Err(err).Str("server", server.Name).Msg("mcp server unavailable")
			}
		}
	}

	anthropic, err := oracle.NewAnthropic(oracle.AnthropicConfig{})
	if err != nil {
		logging.Warn().Err(err).Msg("anthropic provider not configured")
	} else {
		env.defaultLLM = anthropic
		env.providers = map[string]oracle.Provider{"anthropic": anthropic}
	}
	return env, nil
}

func (e *environment) sessionOptions() session.Options {
	return session.Options{
		Configs:   e.configs,
		Tools:     e.tools,
		Oracle:    e.defaultLLM,
		Providers: e.providers,
		Bus:       e.bus,
		Store:     e.store,
	}
}

func (e *environment) close() {
	if e.mcp != nil {
		e.mcp.Close()
	}
	e.bus.Close()
}

func loadMCPServers(path string) ([]tool.MCPServer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mcp config: %w", err)
	}
	var spec struct {
		Servers []tool.MCPServer `yaml:"servers"`
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse mcp config: %w", err)
	}
	return spec.Servers, nil
}

// loadTask builds the task a run starts with: positional args as the
// prompt, or a task YAML via --task.
func loadTask(taskFile, prompt string) (types.Task, error) {
	if taskFile != "" {
		return config.LoadTask(taskFile)
	}
	if prompt == "" {
		return types.Task{}, fmt.Errorf("a task prompt or --task file is required")
	}
	return types.Task{Prompt: prompt}, nil
}
