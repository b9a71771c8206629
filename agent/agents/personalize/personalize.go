// Package personalize exposes the reranking module as an invokable agent, so
// broad search intents can fan out to it alongside the external agents.
package personalize

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/stylora/concierge/agent/contract"
	profilex "github.com/stylora/concierge/agent/profile"
	rerankx "github.com/stylora/concierge/agent/rerank"
)

type Agent struct {
	ranker *rerankx.Ranker
	opts   rerankx.Options
}

func New(ranker *rerankx.Ranker, opts rerankx.Options) (*Agent, error) {
	if ranker == nil {
		return nil, errors.New("ranker is required")
	}
	return &Agent{ranker: ranker, opts: opts}, nil
}

func (a *Agent) Invoke(ctx context.Context, params map[string]any, prof *profilex.UserProfile) (*contractx.AgentPayload, error) {
	var q rerankx.Query
	if text, ok := params["query"].(string); ok {
		q.Text = text
	}
	if category, ok := params["category"].(string); ok {
		q.Category = category
	}

	userID := ""
	if prof != nil {
		userID = prof.UserID
	}

	recs, err := a.ranker.PersonalizedRecommendations(ctx, userID, q, a.opts)
	if err != nil {
		return nil, err
	}

	payload := &contractx.AgentPayload{Recommendations: recs}
	if len(recs) > 0 {
		payload.Summary = fmt.Sprintf("Picked %d items matching your style.", len(recs))
	}
	return payload, nil
}
