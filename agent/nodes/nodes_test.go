package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/stylora/concierge/agent/contract"
	guardrailx "github.com/stylora/concierge/agent/guardrail"
	profilex "github.com/stylora/concierge/agent/profile"
	rerankx "github.com/stylora/concierge/agent/rerank"
)

type staticProfiles struct{}

func (staticProfiles) Profile(context.Context, string) *profilex.UserProfile {
	return &profilex.UserProfile{}
}

func newTestRanker(t *testing.T) *rerankx.Ranker {
	t.Helper()
	ranker, err := rerankx.New(staticProfiles{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("rerank.New: %v", err)
	}
	return ranker
}

type fakeRegistry map[contractx.AgentID]contractx.Agent

func (r fakeRegistry) Agent(id contractx.AgentID) (contractx.Agent, bool) {
	a, ok := r[id]
	return a, ok
}

func (r fakeRegistry) IDs() []contractx.AgentID {
	ids := make([]contractx.AgentID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	return ids
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func okAgent(payload *contractx.AgentPayload) contractx.Agent {
	return contractx.AgentFunc(func(context.Context, map[string]any, *profilex.UserProfile) (*contractx.AgentPayload, error) {
		return payload, nil
	})
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	guard := guardrailx.NewEngine(guardrailx.Config{})

	t.Run("normalizes intent and sanitizes entities", func(t *testing.T) {
		t.Parallel()
		state, err := ValidateRequest(GraphInput{Query: contractx.UserQuery{
			UserID:   "u1",
			Intent:   "  Search ",
			Entities: map[string]any{"query": "  red dress "},
		}}, guard, fixedNow)
		if err != nil {
			t.Fatalf("ValidateRequest: %v", err)
		}
		if state.Query.Intent != "search" {
			t.Errorf("Intent = %q", state.Query.Intent)
		}
		if got := state.Query.Entities["query"]; got != "red dress" {
			t.Errorf("query entity = %v", got)
		}
		if !state.Started.Equal(fixedNow()) {
			t.Errorf("Started = %v", state.Started)
		}
	})

	t.Run("missing user id rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ValidateRequest(GraphInput{Query: contractx.UserQuery{Intent: "search"}}, guard, fixedNow)
		if !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("missing intent rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ValidateRequest(GraphInput{Query: contractx.UserQuery{UserID: "u1"}}, guard, fixedNow)
		if !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("prohibited query entity rejected", func(t *testing.T) {
		t.Parallel()
		_, err := ValidateRequest(GraphInput{Query: contractx.UserQuery{
			UserID:   "u1",
			Intent:   "search",
			Entities: map[string]any{"query": "how to shoplift jackets"},
		}}, guard, fixedNow)
		if !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("original entities map untouched", func(t *testing.T) {
		t.Parallel()
		entities := map[string]any{"query": "  padded  "}
		_, err := ValidateRequest(GraphInput{Query: contractx.UserQuery{
			UserID:   "u1",
			Intent:   "search",
			Entities: entities,
		}}, guard, fixedNow)
		if err != nil {
			t.Fatal(err)
		}
		if entities["query"] != "  padded  " {
			t.Errorf("caller's entities mutated: %v", entities["query"])
		}
	})
}

func TestResolveAgents(t *testing.T) {
	t.Parallel()

	registry := fakeRegistry{
		contractx.AgentSearch: okAgent(&contractx.AgentPayload{}),
		contractx.AgentSize:   okAgent(&contractx.AgentPayload{}),
	}

	t.Run("intent maps to registered subset with warnings", func(t *testing.T) {
		t.Parallel()
		state := &GraphState{Query: contractx.UserQuery{Intent: "search"}}
		state, err := ResolveAgents(state, registry)
		if err != nil {
			t.Fatalf("ResolveAgents: %v", err)
		}
		if len(state.AgentIDs) != 1 || state.AgentIDs[0] != contractx.AgentSearch {
			t.Errorf("AgentIDs = %v", state.AgentIDs)
		}
		if len(state.Warnings) != 2 {
			t.Errorf("Warnings = %v, want shopper and promotions flagged", state.Warnings)
		}
	})

	t.Run("unknown intent falls back to search", func(t *testing.T) {
		t.Parallel()
		state := &GraphState{Query: contractx.UserQuery{Intent: "haggle"}}
		state, err := ResolveAgents(state, registry)
		if err != nil {
			t.Fatalf("ResolveAgents: %v", err)
		}
		if len(state.AgentIDs) != 1 || state.AgentIDs[0] != contractx.AgentSearch {
			t.Errorf("AgentIDs = %v", state.AgentIDs)
		}
	})

	t.Run("no registered agent for intent", func(t *testing.T) {
		t.Parallel()
		state := &GraphState{Query: contractx.UserQuery{Intent: "makeup"}}
		_, err := ResolveAgents(state, registry)
		if !errors.Is(err, contractx.ErrNoAgents) {
			t.Fatalf("err = %v, want ErrNoAgents", err)
		}
	})
}

func TestDispatchAgentsIsolation(t *testing.T) {
	t.Parallel()

	guard := guardrailx.NewEngine(guardrailx.Config{})

	slow := contractx.AgentFunc(func(ctx context.Context, _ map[string]any, _ *profilex.UserProfile) (*contractx.AgentPayload, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return &contractx.AgentPayload{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	failing := contractx.AgentFunc(func(context.Context, map[string]any, *profilex.UserProfile) (*contractx.AgentPayload, error) {
		return nil, errors.New("upstream 503")
	})

	registry := fakeRegistry{
		contractx.AgentSearch:  okAgent(&contractx.AgentPayload{Summary: "ok"}),
		contractx.AgentShopper: slow,
		contractx.AgentSize:    failing,
	}

	state := &GraphState{
		Query:    contractx.UserQuery{UserID: "u1", Intent: "search"},
		Profile:  &profilex.UserProfile{UserID: "u1"},
		AgentIDs: []contractx.AgentID{contractx.AgentSearch, contractx.AgentShopper, contractx.AgentSize},
		Results:  make(map[contractx.AgentID]contractx.AgentResult),
	}

	budgets := Budgets{
		PerAgent: map[contractx.AgentID]time.Duration{contractx.AgentShopper: 20 * time.Millisecond},
		Default:  time.Second,
		Overall:  2 * time.Second,
	}

	state, err := DispatchAgents(context.Background(), state, registry, guard, budgets)
	if err != nil {
		t.Fatalf("DispatchAgents: %v", err)
	}

	if got := state.Results[contractx.AgentSearch].Status; got != contractx.StatusSuccess {
		t.Errorf("search status = %s", got)
	}
	if got := state.Results[contractx.AgentShopper].Status; got != contractx.StatusTimeout {
		t.Errorf("shopper status = %s, want timeout", got)
	}
	if got := state.Results[contractx.AgentShopper].Err; !strings.HasPrefix(got, contractx.ErrAgentTimeout.Error()) {
		t.Errorf("shopper err = %q, want %q prefix", got, contractx.ErrAgentTimeout)
	}
	if got := state.Results[contractx.AgentSize].Status; got != contractx.StatusError {
		t.Errorf("size status = %s, want error", got)
	}
	if got := state.Results[contractx.AgentSize].Err; !strings.HasPrefix(got, contractx.ErrAgentExecution.Error()) {
		t.Errorf("size err = %q, want %q prefix", got, contractx.ErrAgentExecution)
	}
	if got := state.Results[contractx.AgentSize].Err; !strings.Contains(got, "upstream 503") {
		t.Errorf("size err = %q, want original cause preserved", got)
	}
	if !state.Degraded {
		t.Error("Degraded = false, want true")
	}
	if len(state.Warnings) != 2 {
		t.Errorf("Warnings = %v, want one per failed agent", state.Warnings)
	}
}

func TestDispatchAgentsUnregisteredAgent(t *testing.T) {
	t.Parallel()

	state := &GraphState{
		Query:    contractx.UserQuery{UserID: "u1"},
		AgentIDs: []contractx.AgentID{contractx.AgentPromotions},
		Results:  make(map[contractx.AgentID]contractx.AgentResult),
	}

	state, err := DispatchAgents(context.Background(), state, fakeRegistry{}, guardrailx.NewEngine(guardrailx.Config{}), Budgets{})
	if err != nil {
		t.Fatalf("DispatchAgents: %v", err)
	}
	if got := state.Results[contractx.AgentPromotions].Status; got != contractx.StatusError {
		t.Errorf("status = %s, want error", got)
	}
}

func TestInvokeAgentGuardrailBlocked(t *testing.T) {
	t.Parallel()

	invoked := false
	agent := contractx.AgentFunc(func(context.Context, map[string]any, *profilex.UserProfile) (*contractx.AgentPayload, error) {
		invoked = true
		return &contractx.AgentPayload{}, nil
	})

	res := InvokeAgent(
		context.Background(),
		contractx.AgentMakeup,
		agent,
		nil,
		&profilex.UserProfile{Age: 10},
		time.Second,
		guardrailx.NewEngine(guardrailx.Config{}),
	)

	if res.Status != contractx.StatusError {
		t.Fatalf("status = %s, want error", res.Status)
	}
	if !strings.Contains(res.Err, "blocked by guardrail") {
		t.Errorf("Err = %q", res.Err)
	}
	if invoked {
		t.Error("blocked agent was invoked")
	}
}

func TestInvokeAgentAppliesModifiedParams(t *testing.T) {
	t.Parallel()

	var seen map[string]any
	agent := contractx.AgentFunc(func(_ context.Context, params map[string]any, _ *profilex.UserProfile) (*contractx.AgentPayload, error) {
		seen = params
		return &contractx.AgentPayload{}, nil
	})

	res := InvokeAgent(
		context.Background(),
		contractx.AgentSearch,
		agent,
		map[string]any{"query": "  red dress ", "limit": 5},
		&profilex.UserProfile{},
		time.Second,
		guardrailx.NewEngine(guardrailx.Config{}),
	)

	if res.Status != contractx.StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	if seen["query"] != "red dress" {
		t.Errorf("query param = %v, want sanitized value", seen["query"])
	}
	if seen["limit"] != 5 {
		t.Errorf("limit param = %v, want untouched value", seen["limit"])
	}
}

func TestFinalizeResponse(t *testing.T) {
	t.Parallel()

	t.Run("degraded response with survivors succeeds", func(t *testing.T) {
		t.Parallel()
		started := fixedNow()
		state := &GraphState{
			Query:   contractx.UserQuery{UserID: "u1"},
			Started: started,
			Results: map[contractx.AgentID]contractx.AgentResult{
				contractx.AgentSearch:  {AgentID: contractx.AgentSearch, Status: contractx.StatusSuccess},
				contractx.AgentShopper: {AgentID: contractx.AgentShopper, Status: contractx.StatusTimeout},
			},
			Degraded: true,
			Warnings: []string{"agent personal_shopper timed out"},
		}

		out, err := FinalizeResponse(state, func() time.Time { return started.Add(120 * time.Millisecond) })
		if err != nil {
			t.Fatalf("FinalizeResponse: %v", err)
		}
		resp := out.Response
		if len(resp.Metadata.AgentsUsed) != 1 || resp.Metadata.AgentsUsed[0] != "search" {
			t.Errorf("AgentsUsed = %v", resp.Metadata.AgentsUsed)
		}
		if resp.Metadata.ProcessingTimeMs != 120 {
			t.Errorf("ProcessingTimeMs = %d", resp.Metadata.ProcessingTimeMs)
		}
		if !resp.Metadata.Degraded {
			t.Error("Degraded = false")
		}
	})

	t.Run("total loss is a hard failure", func(t *testing.T) {
		t.Parallel()
		state := &GraphState{
			Started: fixedNow(),
			Results: map[contractx.AgentID]contractx.AgentResult{
				contractx.AgentSearch: {AgentID: contractx.AgentSearch, Status: contractx.StatusTimeout},
			},
		}
		_, err := FinalizeResponse(state, fixedNow)
		if !errors.Is(err, contractx.ErrNoAgents) {
			t.Fatalf("err = %v, want ErrNoAgents", err)
		}
	})
}

func TestSanitizeResults(t *testing.T) {
	t.Parallel()

	guard := guardrailx.NewEngine(guardrailx.Config{})

	state := &GraphState{
		Results: map[contractx.AgentID]contractx.AgentResult{
			contractx.AgentReturnsRisk: {
				AgentID: contractx.AgentReturnsRisk,
				Status:  contractx.StatusSuccess,
				Payload: &contractx.AgentPayload{
					Summary: "This jacket cures eczema overnight",
					ReturnRisk: &contractx.ReturnRiskAssessment{
						Score:   0.4,
						Factors: []string{"buyer at jane@example.com returned twice"},
					},
				},
			},
			contractx.AgentSearch: {
				AgentID: contractx.AgentSearch,
				Status:  contractx.StatusError,
				Err:     "upstream 503",
			},
		},
	}

	state, err := SanitizeResults(state, guard)
	if err != nil {
		t.Fatalf("SanitizeResults: %v", err)
	}

	payload := state.Results[contractx.AgentReturnsRisk].Payload
	if strings.Contains(payload.Summary, "cures") {
		t.Errorf("Summary = %q, medical claim survived", payload.Summary)
	}
	if got := payload.ReturnRisk.Factors[0]; strings.Contains(got, "jane@example.com") {
		t.Errorf("Factors[0] = %q, PII survived", got)
	}
}

func TestSanitizeResultsColorWarnings(t *testing.T) {
	t.Parallel()

	guard := guardrailx.NewEngine(guardrailx.Config{})

	// Colors arrive as []any after a JSON round trip and as []string when
	// built in-process; both shapes must trigger the warning.
	for name, colors := range map[string]any{
		"decoded json": []any{"red", "green"},
		"native slice": []string{"red", "green"},
	} {
		name, colors := name, colors
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			state := &GraphState{
				Results: map[contractx.AgentID]contractx.AgentResult{
					contractx.AgentSearch: {
						AgentID: contractx.AgentSearch,
						Status:  contractx.StatusSuccess,
						Payload: &contractx.AgentPayload{
							Recommendations: []contractx.Recommendation{
								{ID: "p1", Metadata: map[string]any{"colors": colors}},
							},
						},
					},
				},
			}

			state, err := SanitizeResults(state, guard)
			if err != nil {
				t.Fatalf("SanitizeResults: %v", err)
			}
			if len(state.Warnings) != 1 || !strings.Contains(state.Warnings[0], "hard to distinguish") {
				t.Errorf("Warnings = %v, want colorblind pairing flagged", state.Warnings)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	ranker := newTestRanker(t)

	state := &GraphState{
		AgentIDs: []contractx.AgentID{contractx.AgentSearch, contractx.AgentShopper},
		Results: map[contractx.AgentID]contractx.AgentResult{
			contractx.AgentSearch: {
				AgentID: contractx.AgentSearch,
				Status:  contractx.StatusSuccess,
				Payload: &contractx.AgentPayload{
					Summary:         "Found two jackets.",
					Recommendations: []contractx.Recommendation{{ID: "a", Score: 0.9}},
				},
			},
			contractx.AgentShopper: {
				AgentID: contractx.AgentShopper,
				Status:  contractx.StatusSuccess,
				Payload: &contractx.AgentPayload{
					Summary:         "Styled an outfit.",
					Recommendations: []contractx.Recommendation{{ID: "b", Score: 0.8}},
				},
			},
		},
	}

	state, err := Aggregate(state, ranker, 10)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(state.Recommendations) != 2 {
		t.Errorf("Recommendations = %v", state.Recommendations)
	}
	if state.NLResponse != "Found two jackets. Styled an outfit." {
		t.Errorf("NLResponse = %q", state.NLResponse)
	}
}

func TestBudgetsFor(t *testing.T) {
	t.Parallel()

	b := Budgets{
		PerAgent: map[contractx.AgentID]time.Duration{contractx.AgentSize: 800 * time.Millisecond},
		Default:  time.Second,
	}
	if got := b.For(contractx.AgentSize); got != 800*time.Millisecond {
		t.Errorf("For(size) = %v", got)
	}
	if got := b.For(contractx.AgentSearch); got != time.Second {
		t.Errorf("For(search) = %v", got)
	}
	if got := (Budgets{}).For(contractx.AgentSearch); got != 2*time.Second {
		t.Errorf("For with zero budgets = %v", got)
	}
}
