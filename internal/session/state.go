package session

import (
	"errors"
	"fmt"
	"sync"
)

// CommonNamespace always exists and is readable and writable by every
// agent with no declaration required.
const CommonNamespace = "common"

// ErrUnknownNamespace is returned for access against a namespace that
// was never created.
var ErrUnknownNamespace = errors.New("unknown state namespace")

// PermissionError reports a denied state access. Denials are always
// explicit errors, never silent no-ops.
type PermissionError struct {
	AgentID   string
	Namespace string
	Reason    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("agent %s denied access to namespace %q: %s", e.AgentID, e.Namespace, e.Reason)
}

// declaresFunc reports whether an agent's currently active config
// declares a namespace. It is a closure over the agent so config swaps
// are reflected immediately.
type declaresFunc func(namespace string) bool

// State is the session-shared, namespace-keyed key/value store.
// Access requires the calling agent's active config to declare the
// namespace and, when the namespace carries an explicit permission
// list, the agent to be on it. Guarded by a mutex so agents stepped
// from separate goroutines cannot race the maps.
type State struct {
	mu       sync.Mutex
	values   map[string]map[string]any
	perms    map[string][]string
	declares map[string]declaresFunc
}

// NewState creates a session state with the common namespace.
func NewState() *State {
	return &State{
		values: map[string]map[string]any{
			CommonNamespace: {},
		},
		perms:    make(map[string][]string),
		declares: make(map[string]declaresFunc),
	}
}

// CreateNamespace creates a namespace, optionally restricted to an
// explicit agent list. Creating an existing namespace replaces its
// permission list but keeps its values.
func (s *State) CreateNamespace(namespace string, allowedAgents ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[namespace]; !ok {
		s.values[namespace] = make(map[string]any)
	}
	if len(allowedAgents) > 0 {
		s.perms[namespace] = append([]string(nil), allowedAgents...)
	} else {
		delete(s.perms, namespace)
	}
}

// DeclareAgent registers the namespace-declaration check for an agent.
// Called by the session when the agent joins.
func (s *State) DeclareAgent(agentID string, declares func(namespace string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declares[agentID] = declares
}

// DropAgent removes an agent's declaration check.
func (s *State) DropAgent(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.declares, agentID)
}

// Namespaces lists the existing namespaces.
func (s *State) Namespaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.values))
	for ns := range s.values {
		out = append(out, ns)
	}
	return out
}

// Get reads a key on behalf of an agent. The second return reports
// whether the key exists.
func (s *State) Get(agentID, namespace, key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, err := s.access(agentID, namespace)
	if err != nil {
		return nil, false, err
	}
	v, ok := bucket[key]
	return v, ok, nil
}

// Set writes a key on behalf of an agent. Last writer wins.
func (s *State) Set(agentID, namespace, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, err := s.access(agentID, namespace)
	if err != nil {
		return err
	}
	bucket[key] = value
	return nil
}

// Delete removes a key on behalf of an agent. Deleting an absent key
// is not an error.
func (s *State) Delete(agentID, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, err := s.access(agentID, namespace)
	if err != nil {
		return err
	}
	delete(bucket, key)
	return nil
}

// access resolves the namespace bucket after the permission checks.
// Callers hold the mutex.
func (s *State) access(agentID, namespace string) (map[string]any, error) {
	bucket, ok := s.values[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}
	if namespace == CommonNamespace {
		return bucket, nil
	}

	declares, ok := s.declares[agentID]
	if !ok || !declares(namespace) {
		return nil, &PermissionError{
			AgentID:   agentID,
			Namespace: namespace,
			Reason:    "namespace not declared in the agent's config",
		}
	}
	if allowed, restricted := s.perms[namespace]; restricted {
		if !contains(allowed, agentID) {
			return nil, &PermissionError{
				AgentID:   agentID,
				Namespace: namespace,
				Reason:    "agent not in the namespace's permission list",
			}
		}
	}
	return bucket, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// snapshot returns a deep-enough copy of values and permissions for
// persistence. Callers must not mutate the result's inner maps while
// other goroutines step agents.
func (s *State) snapshot() (map[string]map[string]any, map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make(map[string]map[string]any, len(s.values))
	for ns, bucket := range s.values {
		copied := make(map[string]any, len(bucket))
		for k, v := range bucket {
			copied[k] = v
		}
		values[ns] = copied
	}
	perms := make(map[string][]string, len(s.perms))
	for ns, allowed := range s.perms {
		perms[ns] = append([]string(nil), allowed...)
	}
	return values, perms
}

// restore replaces values and permissions from a persisted record.
func (s *State) restore(values map[string]map[string]any, perms map[string][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = values
	if s.values == nil {
		s.values = make(map[string]map[string]any)
	}
	if _, ok := s.values[CommonNamespace]; !ok {
		s.values[CommonNamespace] = make(map[string]any)
	}
	s.perms = perms
	if s.perms == nil {
		s.perms = make(map[string][]string)
	}
}
