package contract

import (
	"context"

	profilex "github.com/stylora/concierge/agent/profile"
)

// Agent is the narrow contract every domain service must satisfy to
// participate in orchestration. Implementations receive a read-only profile
// and must respect context cancellation.
type Agent interface {
	Invoke(ctx context.Context, params map[string]any, prof *profilex.UserProfile) (*AgentPayload, error)
}

// AgentFunc adapts a plain function to the Agent interface.
type AgentFunc func(ctx context.Context, params map[string]any, prof *profilex.UserProfile) (*AgentPayload, error)

func (f AgentFunc) Invoke(ctx context.Context, params map[string]any, prof *profilex.UserProfile) (*AgentPayload, error) {
	return f(ctx, params, prof)
}

// Registry resolves agent ids to agents.
type Registry interface {
	Agent(id AgentID) (Agent, bool)
	IDs() []AgentID
}

// ProfileSource resolves a usable profile for a user, degrading to tier
// defaults instead of failing.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) *profilex.UserProfile
}
