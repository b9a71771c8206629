package nodes

import (
	"fmt"

	contractx "github.com/stylora/concierge/agent/contract"
)

// intentAgents maps normalized query intents to the agents able to answer
// them. Broad discovery intents fan out to several agents at once.
var intentAgents = map[string][]contractx.AgentID{
	"size":         {contractx.AgentSize},
	"fit":          {contractx.AgentSize},
	"sizing":       {contractx.AgentSize},
	"returns":      {contractx.AgentReturnsRisk},
	"return_risk":  {contractx.AgentReturnsRisk},
	"checkout":     {contractx.AgentReturnsRisk},
	"makeup":       {contractx.AgentMakeup},
	"beauty":       {contractx.AgentMakeup},
	"skincare":     {contractx.AgentMakeup},
	"promotions":   {contractx.AgentPromotions},
	"deals":        {contractx.AgentPromotions},
	"search":       {contractx.AgentSearch, contractx.AgentShopper, contractx.AgentPromotions},
	"browse":       {contractx.AgentSearch, contractx.AgentShopper, contractx.AgentPromotions},
	"discover":     {contractx.AgentSearch, contractx.AgentShopper, contractx.AgentPromotions},
	"recommend":    {contractx.AgentSearch, contractx.AgentShopper},
	"outfit":       {contractx.AgentShopper, contractx.AgentSearch},
}

// ResolveAgents maps the query intent to the subset of registered agents
// capable of answering it. Unknown intents fall back to search.
func ResolveAgents(in *GraphState, registry contractx.Registry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	wanted, ok := intentAgents[in.Query.Intent]
	if !ok {
		wanted = []contractx.AgentID{contractx.AgentSearch}
	}

	resolved := make([]contractx.AgentID, 0, len(wanted))
	for _, id := range wanted {
		if _, ok := registry.Agent(id); !ok {
			in.Warnings = append(in.Warnings, fmt.Sprintf("agent %s is not available", id))
			continue
		}
		resolved = append(resolved, id)
	}

	if len(resolved) == 0 {
		return nil, fmt.Errorf("%w: intent=%q", contractx.ErrNoAgents, in.Query.Intent)
	}

	in.AgentIDs = resolved
	return in, nil
}
