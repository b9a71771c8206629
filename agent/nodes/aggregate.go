package nodes

import (
	"fmt"
	"strings"

	contractx "github.com/stylora/concierge/agent/contract"
	rerankx "github.com/stylora/concierge/agent/rerank"
)

// Aggregate merges surviving agent outputs: recommendation lists go through
// the reranker's merge/sort step, summaries are stitched into one natural
// language response. The merge is order-independent; iteration follows the
// resolved agent order so the synthesized text is deterministic.
func Aggregate(in *GraphState, ranker *rerankx.Ranker, rerankTop int) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var lists [][]contractx.Recommendation
	var summaries []string

	for _, id := range in.AgentIDs {
		res, ok := in.Results[id]
		if !ok || res.Status != contractx.StatusSuccess || res.Payload == nil {
			continue
		}
		if len(res.Payload.Recommendations) > 0 {
			lists = append(lists, res.Payload.Recommendations)
		}
		if summary := strings.TrimSpace(res.Payload.Summary); summary != "" {
			summaries = append(summaries, summary)
		}
	}

	in.Recommendations = ranker.MergeAndScore(lists, rerankTop)
	in.NLResponse = synthesizeResponse(summaries, len(in.Recommendations))
	return in, nil
}

func synthesizeResponse(summaries []string, recommendationCount int) string {
	if len(summaries) > 0 {
		return strings.Join(summaries, " ")
	}
	if recommendationCount > 0 {
		return fmt.Sprintf("Found %d recommendations for you.", recommendationCount)
	}
	return ""
}
