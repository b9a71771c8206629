package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	registryx "github.com/stylora/concierge/agent/agents/registry"
	contractx "github.com/stylora/concierge/agent/contract"
	guardrailx "github.com/stylora/concierge/agent/guardrail"
	permissionx "github.com/stylora/concierge/agent/permission"
	profilex "github.com/stylora/concierge/agent/profile"
	rerankx "github.com/stylora/concierge/agent/rerank"
)

type memoryStore struct {
	profiles map[string]*profilex.UserProfile
}

func (s *memoryStore) Load(_ context.Context, userID string) (*profilex.UserProfile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, profilex.ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *memoryStore) Save(_ context.Context, p *profilex.UserProfile) error {
	clone := *p
	s.profiles[p.UserID] = &clone
	return nil
}

type stubAgent struct {
	payload *contractx.AgentPayload
	err     error
	delay   time.Duration
	calls   atomic.Int64
}

func (a *stubAgent) Invoke(ctx context.Context, _ map[string]any, _ *profilex.UserProfile) (*contractx.AgentPayload, error) {
	a.calls.Add(1)
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.payload, nil
}

func newTestOrchestrator(t *testing.T, agents map[contractx.AgentID]contractx.Agent, store profilex.Store, cfg Config) *Orchestrator {
	t.Helper()

	if store == nil {
		store = &memoryStore{profiles: map[string]*profilex.UserProfile{}}
	}

	permissions, err := permissionx.NewManager(store, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ranker, err := rerankx.New(permissions, nil, nil, nil)
	if err != nil {
		t.Fatalf("rerank.New: %v", err)
	}

	reg := registryx.New()
	for id, agent := range agents {
		if err := reg.Register(id, agent); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}

	o, err := New(reg, guardrailx.NewEngine(guardrailx.Config{}), permissions, ranker, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func query(intent string) contractx.UserQuery {
	return contractx.UserQuery{
		ID:        uuid.New(),
		UserID:    "u1",
		SessionID: "s1",
		Intent:    intent,
		Timestamp: time.Now(),
	}
}

func TestProcessQuerySuccess(t *testing.T) {
	t.Parallel()

	search := &stubAgent{payload: &contractx.AgentPayload{
		Summary: "Found three jackets.",
		Recommendations: []contractx.Recommendation{
			{ID: "p1", Score: 0.9},
			{ID: "p2", Score: 0.7},
		},
	}}
	shopper := &stubAgent{payload: &contractx.AgentPayload{
		Recommendations: []contractx.Recommendation{
			{ID: "p1", Score: 0.5},
			{ID: "p3", Score: 0.8},
		},
	}}

	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentSearch:  search,
		contractx.AgentShopper: shopper,
	}, nil, Config{})

	resp, err := o.ProcessQuery(context.Background(), query("recommend"))
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	if got := resp.Metadata.AgentsUsed; len(got) != 2 {
		t.Fatalf("AgentsUsed = %v, want 2 agents", got)
	}
	if resp.Metadata.Degraded {
		t.Errorf("Degraded = true, want false")
	}
	if resp.NaturalLanguageResponse != "Found three jackets." {
		t.Errorf("NaturalLanguageResponse = %q", resp.NaturalLanguageResponse)
	}

	// Duplicate p1 keeps its best score; ordering is score-descending.
	recs := resp.AggregatedRecommendations
	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}
	if recs[0].ID != "p1" || recs[0].Score != 0.9 {
		t.Errorf("recs[0] = %+v, want p1 at 0.9", recs[0])
	}
	if recs[1].ID != "p3" {
		t.Errorf("recs[1].ID = %s, want p3", recs[1].ID)
	}
}

func TestProcessQueryPartialFailureDegrades(t *testing.T) {
	t.Parallel()

	search := &stubAgent{payload: &contractx.AgentPayload{
		Recommendations: []contractx.Recommendation{{ID: "p1", Score: 0.9}},
	}}
	slow := &stubAgent{
		delay:   500 * time.Millisecond,
		payload: &contractx.AgentPayload{},
	}
	promos := &stubAgent{payload: &contractx.AgentPayload{
		Promotions: []contractx.Promotion{{Code: "SAVE10", DiscountPct: 10}},
	}}

	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentSearch:     search,
		contractx.AgentShopper:    slow,
		contractx.AgentPromotions: promos,
	}, nil, Config{ShopperTimeout: 20 * time.Millisecond, OverallTimeout: 2 * time.Second})

	resp, err := o.ProcessQuery(context.Background(), query("search"))
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	if !resp.Metadata.Degraded {
		t.Error("Degraded = false, want true")
	}
	if got := resp.Metadata.AgentsUsed; len(got) != 2 {
		t.Fatalf("AgentsUsed = %v, want the two surviving agents", got)
	}

	var warned bool
	for _, w := range resp.Metadata.Warnings {
		if strings.Contains(w, string(contractx.AgentShopper)) && strings.Contains(w, "timed out") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("Warnings = %v, want a timeout warning naming %s", resp.Metadata.Warnings, contractx.AgentShopper)
	}

	if got := resp.PerAgentResults[contractx.AgentShopper].Status; got != contractx.StatusTimeout {
		t.Errorf("shopper status = %s, want timeout", got)
	}
}

func TestProcessQueryAgentErrorIsolated(t *testing.T) {
	t.Parallel()

	search := &stubAgent{payload: &contractx.AgentPayload{
		Recommendations: []contractx.Recommendation{{ID: "p1", Score: 0.9}},
	}}
	failing := &stubAgent{err: errors.New("upstream 503")}

	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentSearch:  search,
		contractx.AgentShopper: failing,
	}, nil, Config{})

	resp, err := o.ProcessQuery(context.Background(), query("recommend"))
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !resp.Metadata.Degraded {
		t.Error("Degraded = false, want true")
	}
	if got := resp.PerAgentResults[contractx.AgentShopper].Status; got != contractx.StatusError {
		t.Errorf("shopper status = %s, want error", got)
	}
	if len(resp.AggregatedRecommendations) != 1 {
		t.Errorf("got %d recommendations, want the surviving agent's 1", len(resp.AggregatedRecommendations))
	}
}

func TestProcessQueryValidationFailures(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentSearch: &stubAgent{payload: &contractx.AgentPayload{}},
	}, nil, Config{})

	tests := []struct {
		name string
		q    contractx.UserQuery
	}{
		{name: "empty user id", q: contractx.UserQuery{Intent: "search"}},
		{name: "empty intent", q: contractx.UserQuery{UserID: "u1"}},
		{
			name: "prohibited query entity",
			q: contractx.UserQuery{
				UserID:   "u1",
				Intent:   "search",
				Entities: map[string]any{"query": "where to buy stolen goods"},
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := o.ProcessQuery(context.Background(), tc.q); err == nil {
				t.Fatal("ProcessQuery succeeded, want validation error")
			}
		})
	}
}

func TestProcessQueryPermissionGate(t *testing.T) {
	t.Parallel()

	store := &memoryStore{profiles: map[string]*profilex.UserProfile{
		"free-user": {
			UserID:      "free-user",
			Permissions: permissionx.PermissionsForTier(profilex.TierFree, nil),
		},
		"vip-user": {
			UserID:      "vip-user",
			Permissions: permissionx.PermissionsForTier(profilex.TierVIP, nil),
		},
	}}

	search := &stubAgent{payload: &contractx.AgentPayload{
		Recommendations: []contractx.Recommendation{{ID: "p1", Score: 0.9}},
	}}
	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentSearch: search,
	}, store, Config{})

	q := query("auto_purchase")
	q.UserID = "free-user"

	_, err := o.ProcessQuery(context.Background(), q)
	var denied *contractx.PermissionDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want PermissionDeniedError", err)
	}
	if denied.Action != "auto_purchase" {
		t.Errorf("denied.Action = %q", denied.Action)
	}

	q.UserID = "vip-user"
	if _, err := o.ProcessQuery(context.Background(), q); err != nil {
		t.Fatalf("vip ProcessQuery: %v", err)
	}
	if search.calls.Load() == 0 {
		t.Error("search agent never invoked for permitted user")
	}
}

func TestProcessQueryGuardrailBlocksAgent(t *testing.T) {
	t.Parallel()

	store := &memoryStore{profiles: map[string]*profilex.UserProfile{
		"kid": {
			UserID:      "kid",
			Age:         12,
			Permissions: permissionx.PermissionsForTier(profilex.TierFree, nil),
		},
	}}

	makeup := &stubAgent{payload: &contractx.AgentPayload{}}
	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentMakeup: makeup,
	}, store, Config{})

	q := query("makeup")
	q.UserID = "kid"

	if _, err := o.ProcessQuery(context.Background(), q); err == nil {
		t.Fatal("ProcessQuery succeeded, want failure when the only agent is blocked")
	}
	if makeup.calls.Load() != 0 {
		t.Error("blocked agent was invoked")
	}
}

func TestProcessQueryAllAgentsFailed(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentSize: &stubAgent{err: errors.New("model unavailable")},
	}, nil, Config{})

	if _, err := o.ProcessQuery(context.Background(), query("size")); err == nil {
		t.Fatal("ProcessQuery succeeded, want failure when every agent failed")
	}
}

func TestProcessQueryUnavailableAgentsWarned(t *testing.T) {
	t.Parallel()

	search := &stubAgent{payload: &contractx.AgentPayload{
		Recommendations: []contractx.Recommendation{{ID: "p1", Score: 0.9}},
	}}
	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentSearch: search,
	}, nil, Config{})

	// "search" wants three agents; only one is registered.
	resp, err := o.ProcessQuery(context.Background(), query("search"))
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if len(resp.Metadata.Warnings) != 2 {
		t.Errorf("Warnings = %v, want 2 unavailable-agent warnings", resp.Metadata.Warnings)
	}
}

func TestInvokeAgentDirect(t *testing.T) {
	t.Parallel()

	size := &stubAgent{payload: &contractx.AgentPayload{
		Size: &contractx.SizeEstimate{Label: "M", Confidence: 0.82},
	}}
	o := newTestOrchestrator(t, map[contractx.AgentID]contractx.Agent{
		contractx.AgentSize: size,
	}, nil, Config{})

	res := o.InvokeAgentDirect(context.Background(), contractx.AgentSize, nil, nil)
	if res.Status != contractx.StatusSuccess {
		t.Fatalf("status = %s, err = %s", res.Status, res.Err)
	}
	if res.Payload == nil || res.Payload.Size == nil || res.Payload.Size.Label != "M" {
		t.Errorf("payload = %+v, want size estimate M", res.Payload)
	}

	res = o.InvokeAgentDirect(context.Background(), contractx.AgentMakeup, nil, nil)
	if res.Status != contractx.StatusError {
		t.Errorf("status = %s, want error for unregistered agent", res.Status)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	t.Parallel()

	store := &memoryStore{profiles: map[string]*profilex.UserProfile{}}
	permissions, err := permissionx.NewManager(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	ranker, err := rerankx.New(permissions, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	guard := guardrailx.NewEngine(guardrailx.Config{})
	reg := registryx.New()

	if _, err := New(nil, guard, permissions, ranker, Config{}); err == nil {
		t.Error("New accepted nil registry")
	}
	if _, err := New(reg, nil, permissions, ranker, Config{}); err == nil {
		t.Error("New accepted nil guardrail engine")
	}
	if _, err := New(reg, guard, nil, ranker, Config{}); err == nil {
		t.Error("New accepted nil permission manager")
	}
	if _, err := New(reg, guard, permissions, nil, Config{}); err == nil {
		t.Error("New accepted nil ranker")
	}
}
