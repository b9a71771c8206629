package nodes

import (
	"context"
	"fmt"

	contractx "github.com/stylora/concierge/agent/contract"
)

// ResolveProfile loads the user's profile once per query. The profile is
// read-shared by all agent calls and never mutated during orchestration.
func ResolveProfile(ctx context.Context, in *GraphState, profiles contractx.ProfileSource) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Profile = profiles.Profile(ctx, in.Query.UserID)
	return in, nil
}
