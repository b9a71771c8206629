// Package guardrail validates inputs before agents run, sanitizes agent
// outputs before they leave the system, and approves or blocks whole agent
// actions. All checks are stateless pure functions over their inputs.
package guardrail

import (
	"fmt"

	contractx "github.com/stylora/concierge/agent/contract"
	profilex "github.com/stylora/concierge/agent/profile"
)

// Config tunes action approval thresholds.
type Config struct {
	MinMakeupAge int `envconfig:"MIN_MAKEUP_AGE" split_words:"true" default:"13"`
}

// Engine is the guardrail policy engine. Construct it explicitly at startup
// and share it freely; it holds no mutable state.
type Engine struct {
	minMakeupAge int
}

func NewEngine(cfg Config) *Engine {
	minAge := cfg.MinMakeupAge
	if minAge <= 0 {
		minAge = 13
	}
	return &Engine{minMakeupAge: minAge}
}

// validatedPayloadKeys pairs payload keys with the input kind each is checked
// as. Ordered so the rejection reason is stable when several fields fail.
var validatedPayloadKeys = []struct {
	key  string
	kind string
}{
	{"age", InputAge},
	{"budget", InputBudget},
	{"measurements", InputMeasurements},
	{"query", InputQuery},
	{"selfie", InputSelfie},
	{"selfie_url", InputSelfie},
}

// ValidateAgentAction approves or blocks a proposed agent action. A rejected
// result must prevent the action from executing; an approved result may carry
// auto-corrected payload values in Modified and soft issues in Warnings.
func (e *Engine) ValidateAgentAction(agentID contractx.AgentID, action contractx.AgentAction, user *profilex.UserProfile) contractx.GuardrailResult {
	if agentID == contractx.AgentMakeup && user != nil {
		if user.Age > 0 && user.Age < e.minMakeupAge && !user.ParentalConsent {
			return contractx.GuardrailResult{
				Approved: false,
				Reason:   fmt.Sprintf("cosmetic recommendations require a minimum age of %d or parental consent", e.minMakeupAge),
			}
		}
	}

	result := contractx.GuardrailResult{Approved: true}

	for _, entry := range validatedPayloadKeys {
		raw, ok := action.Payload[entry.key]
		if !ok {
			continue
		}
		check := e.ValidateInput(entry.kind, raw)
		if !check.Valid {
			return contractx.GuardrailResult{
				Approved: false,
				Reason:   fmt.Sprintf("invalid %s: %s", entry.key, check.Reason),
			}
		}
		if check.Sanitized != nil {
			if result.Modified == nil {
				result.Modified = make(map[string]any, len(action.Payload))
			}
			result.Modified[entry.key] = check.Sanitized
		}
	}

	if raw, ok := action.Payload["colors"]; ok {
		if colors, ok := ToStringSlice(raw); ok {
			result.Warnings = append(result.Warnings, e.EnsureColorblindAccessibility(colors)...)
		}
	}

	return result
}

// ToStringSlice coerces a color-list-shaped value to []string. JSON decoding
// yields []any, so both forms must be accepted.
func ToStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
