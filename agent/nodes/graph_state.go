package nodes

import (
	"errors"
	"time"

	contractx "github.com/stylora/concierge/agent/contract"
	profilex "github.com/stylora/concierge/agent/profile"
)

var (
	ErrInvalidUser  = errors.New("user id is empty")
	ErrInvalidQuery = errors.New("query intent is empty")
)

type GraphInput struct {
	Query contractx.UserQuery
}

type GraphOutput struct {
	Response *contractx.OrchestratedResponse
}

// GraphState is threaded through the per-query pipeline. Agent goroutines
// never share it; only the collecting step folds their results back in.
type GraphState struct {
	Query   contractx.UserQuery
	Started time.Time

	Profile  *profilex.UserProfile
	AgentIDs []contractx.AgentID
	Results  map[contractx.AgentID]contractx.AgentResult

	Recommendations []contractx.Recommendation
	NLResponse      string

	Warnings []string
	Degraded bool
}
