package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func machine() *MachineSpec {
	return &MachineSpec{
		Initial: "a",
		States: map[string]StateSpec{
			"a": {
				Config: "config-a",
				Transitions: []TransitionSpec{{
					To:      "b",
					Trigger: TriggerSpec{Kind: TriggerStepCount, MinSteps: 5},
				}},
			},
			"b": {Config: "config-b"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no name", func(c *Config) { c.Name = "" }, "no name"},
		{"no model", func(c *Config) { c.Model = "" }, "no model"},
		{
			"machine without initial",
			func(c *Config) { c.StateMachine.Initial = "" },
			"no initial state",
		},
		{
			"machine initial undeclared",
			func(c *Config) { c.StateMachine.Initial = "ghost" },
			"is not declared",
		},
		{
			"state without config",
			func(c *Config) {
				c.StateMachine.States["a"] = StateSpec{}
			},
			"names no config",
		},
		{
			"transition to undeclared state",
			func(c *Config) {
				c.StateMachine.States["a"] = StateSpec{
					Config: "config-a",
					Transitions: []TransitionSpec{{
						To:      "ghost",
						Trigger: TriggerSpec{Kind: TriggerStepCount},
					}},
				}
			},
			"undeclared state",
		},
		{
			"unknown trigger kind",
			func(c *Config) {
				c.StateMachine.States["a"] = StateSpec{
					Config: "config-a",
					Transitions: []TransitionSpec{{
						To:      "b",
						Trigger: TriggerSpec{Kind: "on_full_moon"},
					}},
				}
			},
			"unknown trigger kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Name: "c", Model: "m", StateMachine: machine()}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
