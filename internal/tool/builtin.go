package tool

import (
	"context"
	"fmt"

	"github.com/hugin-ai/hugin/pkg/types"
)

// Builtin tool names.
const (
	NameEcho            = "echo"
	NameFinishTask      = "finish_task"
	NameAskHuman        = "ask_human"
	NameStartBranches   = "start_branches"
	NameWaitForBranches = "wait_for_branches"
	NameCollectBranches = "collect_branches"
	NameSleepTicks      = "sleep_ticks"
	NameCallAgent       = "call_agent"
	NameStateGet        = "state_get"
	NameStateSet        = "state_set"
	NameStateDelete     = "state_delete"
)

// Condition names the builtin wait tools park branches on.
const (
	CondAllBranchesComplete = "all_branches_complete"
	CondWaitForTicks        = "wait_for_ticks"
)

// RegisterBuiltins adds the orchestration tools every Hugin deployment
// carries.
func RegisterBuiltins(r *Registry) {
	for _, def := range []Definition{
		echoTool(),
		finishTaskTool(),
		askHumanTool(),
		startBranchesTool(),
		waitForBranchesTool(),
		collectBranchesTool(),
		sleepTicksTool(),
		callAgentTool(),
		stateGetTool(),
		stateSetTool(),
		stateDeleteTool(),
	} {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

func echoTool() Definition {
	return Definition{
		Name:        NameEcho,
		Description: "Echo a message back. Useful for connectivity checks.",
		Parameters: ObjectSchema(map[string]any{
			"message": map[string]any{"type": "string", "description": "Message to echo"},
		}, "message"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			msg, err := stringArg(inv.Args, "message")
			if err != nil {
				return nil, err
			}
			return map[string]any{"message": msg}, nil
		},
	}
}

func finishTaskTool() Definition {
	return Definition{
		Name:        NameFinishTask,
		Description: "Finish the current task, recording the outcome. Call this exactly once, when the task is done or cannot proceed.",
		Parameters: ObjectSchema(map[string]any{
			"finish_type": map[string]any{"type": "string", "enum": []string{types.FinishSuccess, types.FinishFailure, types.FinishAborted}},
			"summary":     map[string]any{"type": "string", "description": "What was accomplished"},
			"reason":      map[string]any{"type": "string", "description": "Why the task ended this way"},
		}, "finish_type", "summary"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			finishType, err := stringArg(inv.Args, "finish_type")
			if err != nil {
				return nil, err
			}
			summary, err := stringArg(inv.Args, "summary")
			if err != nil {
				return nil, err
			}
			reason, _ := stringArg(inv.Args, "reason")
			inv.Stack.FinishTask(inv.Branch, finishType, summary, reason)
			return map[string]any{"status": "finished", "finish_type": finishType}, nil
		},
	}
}

func askHumanTool() Definition {
	return Definition{
		Name:        NameAskHuman,
		Description: "Ask the human operator a question and pause until they answer.",
		Interactive: true,
		Parameters: ObjectSchema(map[string]any{
			"question": map[string]any{"type": "string"},
		}, "question"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			question, err := stringArg(inv.Args, "question")
			if err != nil {
				return nil, err
			}
			inv.Stack.AskHuman(inv.Branch, question)
			return map[string]any{"status": "waiting_for_human"}, nil
		},
	}
}

func startBranchesTool() Definition {
	return Definition{
		Name:        NameStartBranches,
		Description: "Fork named branches that each explore a prompt in parallel, then wait for all of them and collect their results.",
		Parameters: ObjectSchema(map[string]any{
			"branches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":   map[string]any{"type": "string"},
						"prompt": map[string]any{"type": "string"},
					},
					"required": []string{"name", "prompt"},
				},
			},
		}, "branches"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			entries, err := listArg(inv.Args, "branches")
			if err != nil {
				return nil, err
			}
			var names []string
			for _, entry := range entries {
				fields, ok := entry.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("branches entries must be objects")
				}
				name, err := stringArg(fields, "name")
				if err != nil {
					return nil, err
				}
				prompt, err := stringArg(fields, "prompt")
				if err != nil {
					return nil, err
				}
				inv.Stack.StartBranch(name, prompt)
				names = append(names, name)
			}
			if len(names) == 0 {
				return nil, fmt.Errorf("at least one branch is required")
			}
			anyNames := make([]any, len(names))
			for i, n := range names {
				anyNames[i] = n
			}
			inv.Stack.Wait(inv.Branch, CondAllBranchesComplete,
				map[string]any{"branches": anyNames},
				NameCollectBranches, map[string]any{"branches": anyNames})
			return map[string]any{"started": names}, nil
		},
	}
}

func waitForBranchesTool() Definition {
	return Definition{
		Name:        NameWaitForBranches,
		Description: "Pause the current branch until the named branches have all completed.",
		Parameters: ObjectSchema(map[string]any{
			"branches": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}, "branches"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			branches, err := listArg(inv.Args, "branches")
			if err != nil {
				return nil, err
			}
			inv.Stack.Wait(inv.Branch, CondAllBranchesComplete,
				map[string]any{"branches": branches}, "", nil)
			return map[string]any{"status": "waiting"}, nil
		},
	}
}

func collectBranchesTool() Definition {
	return Definition{
		Name:        NameCollectBranches,
		Description: "Collect the recorded results of completed branches.",
		Parameters: ObjectSchema(map[string]any{
			"branches": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}, "branches"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			branches, err := listArg(inv.Args, "branches")
			if err != nil {
				return nil, err
			}
			results := make(map[string]any, len(branches))
			for _, b := range branches {
				name, ok := b.(string)
				if !ok {
					return nil, fmt.Errorf("branches entries must be strings")
				}
				if result, ok := inv.Stack.BranchResult(name); ok {
					results[name] = result
				} else {
					results[name] = map[string]any{"status": "no result recorded"}
				}
			}
			return map[string]any{"results": results}, nil
		},
	}
}

func sleepTicksTool() Definition {
	return Definition{
		Name:        NameSleepTicks,
		Description: "Pause the current branch for a number of step ticks.",
		Parameters: ObjectSchema(map[string]any{
			"ticks": map[string]any{"type": "integer", "minimum": 1},
		}, "ticks"),
		Options: Options{ExcludeFromContext: true},
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			ticks, err := intArg(inv.Args, "ticks")
			if err != nil {
				return nil, err
			}
			if ticks < 1 {
				return nil, fmt.Errorf("ticks must be at least 1")
			}
			inv.Stack.Wait(inv.Branch, CondWaitForTicks,
				map[string]any{"ticks": ticks}, "", nil)
			return map[string]any{"status": "sleeping", "ticks": ticks}, nil
		},
	}
}

func callAgentTool() Definition {
	return Definition{
		Name:        NameCallAgent,
		Description: "Spawn a sub-agent from a named config to work on a prompt. The sub-agent's result is delivered back when it finishes.",
		Parameters: ObjectSchema(map[string]any{
			"config": map[string]any{"type": "string", "description": "Agent config name"},
			"prompt": map[string]any{"type": "string", "description": "Task prompt for the sub-agent"},
		}, "config", "prompt"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			configName, err := stringArg(inv.Args, "config")
			if err != nil {
				return nil, err
			}
			prompt, err := stringArg(inv.Args, "prompt")
			if err != nil {
				return nil, err
			}
			agentID, err := inv.Stack.CallAgent(inv.Branch, configName, prompt)
			if err != nil {
				return nil, err
			}
			return map[string]any{"agentID": agentID}, nil
		},
	}
}

func stateGetTool() Definition {
	return Definition{
		Name:        NameStateGet,
		Description: "Read a value from the session's shared state.",
		Parameters: ObjectSchema(map[string]any{
			"namespace": map[string]any{"type": "string"},
			"key":       map[string]any{"type": "string"},
		}, "namespace", "key"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			if inv.State == nil {
				return nil, fmt.Errorf("no session state available")
			}
			namespace, err := stringArg(inv.Args, "namespace")
			if err != nil {
				return nil, err
			}
			key, err := stringArg(inv.Args, "key")
			if err != nil {
				return nil, err
			}
			value, ok, err := inv.State.Get(inv.AgentID, namespace, key)
			if err != nil {
				return nil, err
			}
			return map[string]any{"value": value, "found": ok}, nil
		},
	}
}

func stateSetTool() Definition {
	return Definition{
		Name:        NameStateSet,
		Description: "Write a value into the session's shared state.",
		Parameters: ObjectSchema(map[string]any{
			"namespace": map[string]any{"type": "string"},
			"key":       map[string]any{"type": "string"},
			"value":     map[string]any{"description": "Value to store"},
		}, "namespace", "key", "value"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			if inv.State == nil {
				return nil, fmt.Errorf("no session state available")
			}
			namespace, err := stringArg(inv.Args, "namespace")
			if err != nil {
				return nil, err
			}
			key, err := stringArg(inv.Args, "key")
			if err != nil {
				return nil, err
			}
			value, ok := inv.Args["value"]
			if !ok {
				return nil, fmt.Errorf("missing argument: value")
			}
			if err := inv.State.Set(inv.AgentID, namespace, key, value); err != nil {
				return nil, err
			}
			return map[string]any{"stored": true}, nil
		},
	}
}

func stateDeleteTool() Definition {
	return Definition{
		Name:        NameStateDelete,
		Description: "Delete a key from the session's shared state.",
		Parameters: ObjectSchema(map[string]any{
			"namespace": map[string]any{"type": "string"},
			"key":       map[string]any{"type": "string"},
		}, "namespace", "key"),
		Handler: func(ctx context.Context, inv Invocation) (map[string]any, error) {
			if inv.State == nil {
				return nil, fmt.Errorf("no session state available")
			}
			namespace, err := stringArg(inv.Args, "namespace")
			if err != nil {
				return nil, err
			}
			key, err := stringArg(inv.Args, "key")
			if err != nil {
				return nil, err
			}
			if err := inv.State.Delete(inv.AgentID, namespace, key); err != nil {
				return nil, err
			}
			return map[string]any{"deleted": true}, nil
		},
	}
}

func stringArg(args map[string]any, name string) (string, error) {
	value, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument: %s", name)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("argument %s must be a string", name)
	}
	return s, nil
}

func intArg(args map[string]any, name string) (int, error) {
	value, ok := args[name]
	if !ok {
		return 0, fmt.Errorf("missing argument: %s", name)
	}
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("argument %s must be an integer", name)
	}
}

func listArg(args map[string]any, name string) ([]any, error) {
	value, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("missing argument: %s", name)
	}
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %s must be an array", name)
	}
	return list, nil
}
