package nodes

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/stylora/concierge/agent/contract"
	guardrailx "github.com/stylora/concierge/agent/guardrail"
)

// ValidateRequest checks the inbound query before anything else runs. The
// query itself stays immutable; sanitized entity values land in a copy.
func ValidateRequest(in GraphInput, guard *guardrailx.Engine, nowFn func() time.Time) (*GraphState, error) {
	q := in.Query

	if strings.TrimSpace(q.UserID) == "" {
		return nil, fmt.Errorf("%w: %s", contractx.ErrValidation, ErrInvalidUser)
	}

	q.Intent = strings.ToLower(strings.TrimSpace(q.Intent))
	if q.Intent == "" {
		return nil, fmt.Errorf("%w: %s", contractx.ErrValidation, ErrInvalidQuery)
	}

	if len(q.Entities) > 0 {
		entities := make(map[string]any, len(q.Entities))
		for k, v := range q.Entities {
			entities[k] = v
		}

		if raw, ok := entities["query"]; ok {
			check := guard.ValidateInput(guardrailx.InputQuery, raw)
			if !check.Valid {
				return nil, fmt.Errorf("%w: %s", contractx.ErrValidation, check.Reason)
			}
			entities["query"] = check.Sanitized
		}

		if raw, ok := entities["age"]; ok {
			check := guard.ValidateInput(guardrailx.InputAge, raw)
			if !check.Valid {
				return nil, fmt.Errorf("%w: %s", contractx.ErrValidation, check.Reason)
			}
			if check.Sanitized != nil {
				entities["age"] = check.Sanitized
			}
		}

		q.Entities = entities
	}

	return &GraphState{
		Query:   q,
		Started: nowFn().UTC(),
		Results: make(map[contractx.AgentID]contractx.AgentResult),
	}, nil
}
