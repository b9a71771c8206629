package nodes

import (
	"fmt"

	contractx "github.com/stylora/concierge/agent/contract"
	guardrailx "github.com/stylora/concierge/agent/guardrail"
)

// SanitizeResults rewrites every surviving agent payload before it can leave
// the system: medical-advice and body-negative language, PII in return-reason
// text, and colorblind pairing warnings from recommendation color sets.
func SanitizeResults(in *GraphState, guard *guardrailx.Engine) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	for id, res := range in.Results {
		if res.Status != contractx.StatusSuccess || res.Payload == nil {
			continue
		}

		payload := *res.Payload
		payload.Summary = guard.SanitizeText(payload.Summary)
		payload.Recommendations = sanitizeRecommendations(in, guard, payload.Recommendations)

		if payload.ReturnRisk != nil {
			risk := *payload.ReturnRisk
			risk.Factors = guard.AnonymizeReturnReasons(risk.Factors)
			risk.Advice = guard.SanitizeText(risk.Advice)
			payload.ReturnRisk = &risk
		}

		if payload.Makeup != nil {
			makeup := *payload.Makeup
			makeup.Products = sanitizeRecommendations(in, guard, makeup.Products)
			routine := make([]string, len(makeup.Routine))
			for i, step := range makeup.Routine {
				routine[i] = guard.SanitizeText(step)
			}
			makeup.Routine = routine
			payload.Makeup = &makeup
		}

		res.Payload = &payload
		in.Results[id] = res
	}

	return in, nil
}

func sanitizeRecommendations(in *GraphState, guard *guardrailx.Engine, recs []contractx.Recommendation) []contractx.Recommendation {
	if len(recs) == 0 {
		return recs
	}
	out := make([]contractx.Recommendation, len(recs))
	for i, rec := range recs {
		rec.Explanation = guard.SanitizeText(rec.Explanation)
		if colors, ok := guardrailx.ToStringSlice(rec.Metadata["colors"]); ok {
			in.Warnings = append(in.Warnings, guard.EnsureColorblindAccessibility(colors)...)
		}
		out[i] = rec
	}
	return out
}
