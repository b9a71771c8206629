package contract

import (
	"time"

	"github.com/google/uuid"
)

// AgentID identifies one invokable domain agent.
type AgentID string

const (
	AgentSearch      AgentID = "search"
	AgentSize        AgentID = "size"
	AgentReturnsRisk AgentID = "returns_risk"
	AgentShopper     AgentID = "personal_shopper"
	AgentPromotions  AgentID = "promotions"
	AgentMakeup      AgentID = "makeup"
)

// UserQuery is the immutable per-request input to the orchestrator.
type UserQuery struct {
	ID        uuid.UUID      `json:"id"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Intent    string         `json:"intent"`
	Entities  map[string]any `json:"entities,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
	StatusTimeout ResultStatus = "timeout"
)

// AgentResult records the outcome of one dispatched agent call.
type AgentResult struct {
	AgentID   AgentID       `json:"agent_id"`
	Status    ResultStatus  `json:"status"`
	Payload   *AgentPayload `json:"payload,omitempty"`
	Err       string        `json:"error,omitempty"`
	LatencyMs int64         `json:"latency_ms"`
}

// AgentPayload is the per-agent result variant, discriminated by AgentID.
// Only the fields matching the producing agent are populated.
type AgentPayload struct {
	Summary         string                `json:"summary,omitempty"`
	Recommendations []Recommendation      `json:"recommendations,omitempty"`
	Size            *SizeEstimate         `json:"size,omitempty"`
	ReturnRisk      *ReturnRiskAssessment `json:"return_risk,omitempty"`
	Promotions      []Promotion           `json:"promotions,omitempty"`
	Makeup          *MakeupAdvice         `json:"makeup,omitempty"`
}

// Recommendation is a scored, explained candidate. Score is always in [0,1].
type Recommendation struct {
	ID          string         `json:"id"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Explanation string         `json:"explanation,omitempty"`
}

type SizeEstimate struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Alternates []string `json:"alternates,omitempty"`
}

type ReturnRiskAssessment struct {
	Score   float64  `json:"score"`
	Factors []string `json:"factors,omitempty"`
	Advice  string   `json:"advice,omitempty"`
}

type Promotion struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	DiscountPct float64   `json:"discount_pct"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

type MakeupAdvice struct {
	SkinTone string           `json:"skin_tone,omitempty"`
	Products []Recommendation `json:"products,omitempty"`
	Routine  []string         `json:"routine,omitempty"`
}

// ResponseMetadata describes how the response was assembled, including any
// degradation along the way.
type ResponseMetadata struct {
	AgentsUsed       []string `json:"agents_used"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Degraded         bool     `json:"degraded"`
	Warnings         []string `json:"warnings,omitempty"`
}

// OrchestratedResponse is the merged outcome of one user query.
type OrchestratedResponse struct {
	Query                     UserQuery               `json:"query"`
	PerAgentResults           map[AgentID]AgentResult `json:"per_agent_results"`
	AggregatedRecommendations []Recommendation        `json:"aggregated_recommendations"`
	NaturalLanguageResponse   string                  `json:"natural_language_response,omitempty"`
	Metadata                  ResponseMetadata        `json:"metadata"`
}

// AgentAction is a proposed agent invocation submitted for guardrail approval.
type AgentAction struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// GuardrailResult is produced once per validated action. A rejected result
// means the action must not execute.
type GuardrailResult struct {
	Approved bool           `json:"approved"`
	Reason   string         `json:"reason,omitempty"`
	Modified map[string]any `json:"modified,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// InputValidation is the outcome of a single input guardrail check.
type InputValidation struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
	Sanitized any    `json:"sanitized,omitempty"`
}
