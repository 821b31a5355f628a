// Package config defines agent configurations (model, system template,
// tool set, state namespaces and the optional config state machine) and
// loads them from YAML.
package config

import (
	"errors"
	"fmt"
)

// ErrUnknownConfig is returned when a config name is not registered.
var ErrUnknownConfig = errors.New("unknown config")

// Config is one immutable agent configuration. Agents never mutate a
// Config; the state machine swaps which Config an agent points at.
type Config struct {
	Name            string       `yaml:"name" json:"name"`
	Provider        string       `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model           string       `yaml:"model" json:"model"`
	SystemTemplate  string       `yaml:"systemTemplate,omitempty" json:"systemTemplate,omitempty"`
	Tools           []string     `yaml:"tools,omitempty" json:"tools,omitempty"`
	StateNamespaces []string     `yaml:"stateNamespaces,omitempty" json:"stateNamespaces,omitempty"`
	MaxTokens       int          `yaml:"maxTokens,omitempty" json:"maxTokens,omitempty"`
	MaxSteps        int          `yaml:"maxSteps,omitempty" json:"maxSteps,omitempty"`
	StateMachine    *MachineSpec `yaml:"stateMachine,omitempty" json:"stateMachine,omitempty"`
}

// DeclaresNamespace reports whether the config grants access to a state
// namespace.
func (c *Config) DeclaresNamespace(namespace string) bool {
	for _, ns := range c.StateNamespaces {
		if ns == namespace {
			return true
		}
	}
	return false
}

// Validate checks the config for structural problems.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config has no name")
	}
	if c.Model == "" {
		return fmt.Errorf("config %s has no model", c.Name)
	}
	if c.StateMachine != nil {
		if err := c.StateMachine.validate(c.Name); err != nil {
			return err
		}
	}
	return nil
}

// Trigger kinds for state machine transitions.
const (
	TriggerToolCall     = "tool_call"
	TriggerStepCount    = "step_count"
	TriggerStatePattern = "state_pattern"
)

// MachineSpec declares a config state machine: named states, each backed
// by a config, with ordered transition rules.
type MachineSpec struct {
	Initial string               `yaml:"initial" json:"initial"`
	States  map[string]StateSpec `yaml:"states" json:"states"`
}

// StateSpec is one state of the machine. Config names the configuration
// active while in this state; Transitions are evaluated in declared
// order and only the first match fires.
type StateSpec struct {
	Config      string           `yaml:"config" json:"config"`
	Transitions []TransitionSpec `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// TransitionSpec is one transition rule.
type TransitionSpec struct {
	To      string      `yaml:"to" json:"to"`
	Trigger TriggerSpec `yaml:"trigger" json:"trigger"`
}

// TriggerSpec declares when a transition fires. Exactly one trigger kind
// is meaningful per rule.
type TriggerSpec struct {
	Kind string `yaml:"kind" json:"kind"`

	// Tool names the tool whose ToolResult fires a tool_call trigger.
	Tool string `yaml:"tool,omitempty" json:"tool,omitempty"`

	// MinSteps is the interaction count threshold for step_count.
	MinSteps int `yaml:"minSteps,omitempty" json:"minSteps,omitempty"`

	// Namespace and Pattern describe a state_pattern match. Pattern
	// values are either literals (equality) or operator objects such as
	// {"$gte": 10}.
	Namespace string         `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Pattern   map[string]any `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

func (m *MachineSpec) validate(configName string) error {
	if m.Initial == "" {
		return fmt.Errorf("config %s: state machine has no initial state", configName)
	}
	if _, ok := m.States[m.Initial]; !ok {
		return fmt.Errorf("config %s: initial state %q is not declared", configName, m.Initial)
	}
	for name, state := range m.States {
		if state.Config == "" {
			return fmt.Errorf("config %s: state %q names no config", configName, name)
		}
		for _, tr := range state.Transitions {
			if _, ok := m.States[tr.To]; !ok {
				return fmt.Errorf("config %s: state %q transitions to undeclared state %q", configName, name, tr.To)
			}
			switch tr.Trigger.Kind {
			case TriggerToolCall, TriggerStepCount, TriggerStatePattern:
			default:
				return fmt.Errorf("config %s: state %q has unknown trigger kind %q", configName, name, tr.Trigger.Kind)
			}
		}
	}
	return nil
}
