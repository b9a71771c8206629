package nodes

import (
	"fmt"
	"sort"
	"time"

	contractx "github.com/stylora/concierge/agent/contract"
)

// FinalizeResponse assembles the orchestrated response. A degraded response
// with at least one surviving agent is returned normally; only the total loss
// of every dispatched agent is a hard failure.
func FinalizeResponse(in *GraphState, nowFn func() time.Time) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var agentsUsed []string
	for id, res := range in.Results {
		if res.Status == contractx.StatusSuccess {
			agentsUsed = append(agentsUsed, string(id))
		}
	}
	sort.Strings(agentsUsed)

	if len(agentsUsed) == 0 {
		return GraphOutput{}, fmt.Errorf("%w: all dispatched agents failed", contractx.ErrNoAgents)
	}

	resp := &contractx.OrchestratedResponse{
		Query:                     in.Query,
		PerAgentResults:           in.Results,
		AggregatedRecommendations: in.Recommendations,
		NaturalLanguageResponse:   in.NLResponse,
		Metadata: contractx.ResponseMetadata{
			AgentsUsed:       agentsUsed,
			ProcessingTimeMs: nowFn().UTC().Sub(in.Started).Milliseconds(),
			Degraded:         in.Degraded,
			Warnings:         in.Warnings,
		},
	}
	return GraphOutput{Response: resp}, nil
}
