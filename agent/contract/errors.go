package contract

import (
	"errors"
	"fmt"

	profilex "github.com/stylora/concierge/agent/profile"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrAgentTimeout   = errors.New("agent timed out")
	ErrAgentExecution = errors.New("agent execution failed")
	ErrNoAgents       = errors.New("no agents reachable")
)

// PermissionDeniedError is raised before any agent dispatch and blocks the
// entire requested action.
type PermissionDeniedError struct {
	Action       string
	RequiredTier profilex.Tier
	ActualTier   profilex.Tier
}

func (e *PermissionDeniedError) Error() string {
	if e.RequiredTier != "" {
		return fmt.Sprintf("permission denied: action=%s requires tier=%s, actual tier=%s", e.Action, e.RequiredTier, e.ActualTier)
	}
	return fmt.Sprintf("permission denied: action=%s not allowed for tier=%s", e.Action, e.ActualTier)
}

// ExternalServiceError reports a collaborator failure inside a component that
// has no further fallback.
type ExternalServiceError struct {
	Source  string
	Message string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s failed: %s", e.Source, e.Message)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
