// Package registry holds the set of invokable domain agents.
package registry

import (
	"errors"
	"fmt"
	"sort"

	contractx "github.com/stylora/concierge/agent/contract"
)

// Registry is a fixed AgentID -> Agent mapping, assembled at startup and
// read-only afterwards.
type Registry struct {
	agents map[contractx.AgentID]contractx.Agent
}

func New() *Registry {
	return &Registry{agents: make(map[contractx.AgentID]contractx.Agent)}
}

// Register adds an agent. Registering the same id twice is an error; the
// registry is assembled once during wiring, not mutated at runtime.
func (r *Registry) Register(id contractx.AgentID, agent contractx.Agent) error {
	if id == "" {
		return errors.New("agent id is empty")
	}
	if agent == nil {
		return fmt.Errorf("agent %s is nil", id)
	}
	if _, exists := r.agents[id]; exists {
		return fmt.Errorf("agent %s already registered", id)
	}
	r.agents[id] = agent
	return nil
}

func (r *Registry) Agent(id contractx.AgentID) (contractx.Agent, bool) {
	agent, ok := r.agents[id]
	return agent, ok
}

func (r *Registry) IDs() []contractx.AgentID {
	ids := make([]contractx.AgentID, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
