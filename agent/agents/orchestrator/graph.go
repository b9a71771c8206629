package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/stylora/concierge/agent/nodes"
)

// compileProcessQueryGraph wires the per-query pipeline:
// Received -> ResolvingAgents -> Dispatching -> Collecting -> Aggregating -> Done.
func (o *Orchestrator) compileProcessQueryGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.guard, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_profile",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResolveProfile(ctx, in, o.permissions)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_profile: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_agents",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResolveAgents(in, o.registry)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_agents: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_agents",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.DispatchAgents(ctx, in, o.registry, o.guard, o.budgets)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_agents: %w", err)
	}

	if err := graph.AddLambdaNode("sanitize_results",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SanitizeResults(in, o.guard)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node sanitize_results: %w", err)
	}

	if err := graph.AddLambdaNode("aggregate",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Aggregate(in, o.ranker, o.rerankTop)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node aggregate: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_response",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeResponse(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_response: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "resolve_profile"},
		{"resolve_profile", "resolve_agents"},
		{"resolve_agents", "dispatch_agents"},
		{"dispatch_agents", "sanitize_results"},
		{"sanitize_results", "aggregate"},
		{"aggregate", "finalize_response"},
		{"finalize_response", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.process_query"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
