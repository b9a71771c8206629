// Package orchestrator coordinates independent domain agents into one
// policy-compliant, latency-bounded response per user query.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/stylora/concierge/agent/contract"
	guardrailx "github.com/stylora/concierge/agent/guardrail"
	nodex "github.com/stylora/concierge/agent/nodes"
	permissionx "github.com/stylora/concierge/agent/permission"
	profilex "github.com/stylora/concierge/agent/profile"
	rerankx "github.com/stylora/concierge/agent/rerank"
)

// Config carries the latency budgets for each agent class and the aggregate
// query budget. Tighter classes (size inference) default well below the broad
// multi-agent search budget.
type Config struct {
	SearchTimeout     time.Duration `envconfig:"SEARCH_TIMEOUT" split_words:"true" default:"2s"`
	SizeTimeout       time.Duration `envconfig:"SIZE_TIMEOUT" split_words:"true" default:"800ms"`
	ReturnsTimeout    time.Duration `envconfig:"RETURNS_TIMEOUT" split_words:"true" default:"1s"`
	ShopperTimeout    time.Duration `envconfig:"SHOPPER_TIMEOUT" split_words:"true" default:"2s"`
	PromotionsTimeout time.Duration `envconfig:"PROMOTIONS_TIMEOUT" split_words:"true" default:"1s"`
	MakeupTimeout     time.Duration `envconfig:"MAKEUP_TIMEOUT" split_words:"true" default:"1500ms"`
	DefaultTimeout    time.Duration `envconfig:"DEFAULT_TIMEOUT" split_words:"true" default:"2s"`
	OverallTimeout    time.Duration `envconfig:"OVERALL_TIMEOUT" split_words:"true" default:"5s"`

	RerankTop int `envconfig:"RERANK_TOP" split_words:"true" default:"10"`
}

func (c Config) budgets() nodex.Budgets {
	return nodex.Budgets{
		PerAgent: map[contractx.AgentID]time.Duration{
			contractx.AgentSearch:      c.SearchTimeout,
			contractx.AgentSize:        c.SizeTimeout,
			contractx.AgentReturnsRisk: c.ReturnsTimeout,
			contractx.AgentShopper:     c.ShopperTimeout,
			contractx.AgentPromotions:  c.PromotionsTimeout,
			contractx.AgentMakeup:      c.MakeupTimeout,
		},
		Default: c.DefaultTimeout,
		Overall: c.OverallTimeout,
	}
}

// Orchestrator resolves, dispatches, and merges agent calls for one query at
// a time. All collaborators are injected at construction; there is no lazy
// global state.
type Orchestrator struct {
	registry    contractx.Registry
	guard       *guardrailx.Engine
	permissions *permissionx.Manager
	ranker      *rerankx.Ranker

	budgets   nodex.Budgets
	rerankTop int

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	registry contractx.Registry,
	guard *guardrailx.Engine,
	permissions *permissionx.Manager,
	ranker *rerankx.Ranker,
	cfg Config,
) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("agent registry is required")
	}
	if guard == nil {
		return nil, errors.New("guardrail engine is required")
	}
	if permissions == nil {
		return nil, errors.New("permission manager is required")
	}
	if ranker == nil {
		return nil, errors.New("ranker is required")
	}

	rerankTop := cfg.RerankTop
	if rerankTop <= 0 {
		rerankTop = 10
	}

	o := &Orchestrator{
		registry:    registry,
		guard:       guard,
		permissions: permissions,
		ranker:      ranker,
		budgets:     cfg.budgets(),
		rerankTop:   rerankTop,
		now:         time.Now,
	}

	graphRunner, err := o.compileProcessQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// permissionGatedIntents are the intents that require a permission check
// before any agent dispatch.
var permissionGatedIntents = map[string]string{
	"auto_purchase": permissionx.ActionAutoPurchase,
	"auto_refund":   permissionx.ActionAutoRefund,
}

// ProcessQuery runs the full pipeline for one query. Per-agent failures are
// recovered internally and surface only through response metadata; the
// returned error is non-nil only for validation failures, permission denials,
// or when no agent could be reached at all.
func (o *Orchestrator) ProcessQuery(ctx context.Context, q contractx.UserQuery) (*contractx.OrchestratedResponse, error) {
	intent := strings.ToLower(strings.TrimSpace(q.Intent))
	if action, ok := permissionGatedIntents[intent]; ok {
		if err := o.permissions.RequirePermission(ctx, q.UserID, action, ""); err != nil {
			return nil, err
		}
	}

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Query: q})
	if err != nil {
		return nil, err
	}
	return out.Response, nil
}

// InvokeAgentDirect bypasses intent resolution and calls one agent under its
// class budget, used for targeted calls and testing. The call is still
// guardrail-approved.
func (o *Orchestrator) InvokeAgentDirect(
	ctx context.Context,
	id contractx.AgentID,
	params map[string]any,
	prof *profilex.UserProfile,
) contractx.AgentResult {
	agent, ok := o.registry.Agent(id)
	if !ok {
		return contractx.AgentResult{
			AgentID: id,
			Status:  contractx.StatusError,
			Err:     "agent not registered",
		}
	}
	if prof == nil {
		prof = o.permissions.Profile(ctx, "")
	}
	return nodex.InvokeAgent(ctx, id, agent, params, prof, o.budgets.For(id), o.guard)
}
