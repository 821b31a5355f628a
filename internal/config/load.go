package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hugin-ai/hugin/pkg/types"
)

// Registry holds named configs. Like the tool registry it is an explicit
// object handed to the components that resolve configs by name.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*Config
}

// NewRegistry creates an empty config registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]*Config)}
}

// Add validates and registers a config.
func (r *Registry) Add(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.Name] = cfg
	return nil
}

// Get resolves a config by name.
func (r *Registry) Get(name string) (*Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfig, name)
	}
	return cfg, nil
}

// Names returns the registered config names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile reads one YAML config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDir reads every .yaml/.yml file in dir into a registry.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config dir %s: %w", dir, err)
	}

	reg := NewRegistry()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		cfg, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if err := reg.Add(cfg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LoadTask reads a YAML task file.
func LoadTask(path string) (types.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Task{}, fmt.Errorf("read task %s: %w", path, err)
	}
	var task types.Task
	if err := yaml.Unmarshal(data, &task); err != nil {
		return types.Task{}, fmt.Errorf("parse task %s: %w", path, err)
	}
	if task.Prompt == "" {
		return types.Task{}, fmt.Errorf("task %s has no prompt", path)
	}
	return task, nil
}
