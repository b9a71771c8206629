package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	contractx "github.com/stylora/concierge/agent/contract"
	guardrailx "github.com/stylora/concierge/agent/guardrail"
	profilex "github.com/stylora/concierge/agent/profile"
)

// Budgets holds per-agent-class and aggregate latency budgets.
type Budgets struct {
	PerAgent map[contractx.AgentID]time.Duration
	Default  time.Duration
	Overall  time.Duration
}

// For returns the timeout budget for one agent class.
func (b Budgets) For(id contractx.AgentID) time.Duration {
	if d, ok := b.PerAgent[id]; ok && d > 0 {
		return d
	}
	if b.Default > 0 {
		return b.Default
	}
	return 2 * time.Second
}

// DispatchAgents fans out to every resolved agent concurrently and joins once
// all calls settle or time out. Each call is guardrail-approved first and runs
// under its own deadline derived from the aggregate budget, so an abandoned
// call is cancelled rather than merely ignored. A per-agent failure shrinks
// the result set and adds a warning; it never aborts the query.
func DispatchAgents(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
	guard *guardrailx.Engine,
	budgets Budgets,
) (*GraphState, error) {
	if in == nil || len(in.AgentIDs) == 0 {
		return nil, fmt.Errorf("%w: no agents resolved", contractx.ErrValidation)
	}

	overall := budgets.Overall
	if overall <= 0 {
		overall = 5 * time.Second
	}
	overallCtx, cancel := context.WithTimeout(ctx, overall)
	defer cancel()

	results := make([]contractx.AgentResult, len(in.AgentIDs))
	var g errgroup.Group
	for i, id := range in.AgentIDs {
		i, id := i, id
		agent, ok := registry.Agent(id)
		if !ok {
			results[i] = contractx.AgentResult{AgentID: id, Status: contractx.StatusError, Err: "agent not registered"}
			continue
		}
		g.Go(func() error {
			results[i] = invokeOne(overallCtx, id, agent, in.Query.Entities, in.Profile, budgets.For(id), guard)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		in.Results[res.AgentID] = res
		switch res.Status {
		case contractx.StatusTimeout:
			in.Degraded = true
			in.Warnings = append(in.Warnings, fmt.Sprintf("agent %s timed out", res.AgentID))
		case contractx.StatusError:
			in.Degraded = true
			in.Warnings = append(in.Warnings, fmt.Sprintf("agent %s failed: %s", res.AgentID, res.Err))
		}
	}
	if overallCtx.Err() != nil {
		in.Degraded = true
	}

	return in, nil
}

// InvokeAgent runs a single guardrail-approved agent call under its timeout.
// Used both by the dispatch fan-out and by direct agent invocation.
func InvokeAgent(
	ctx context.Context,
	id contractx.AgentID,
	agent contractx.Agent,
	params map[string]any,
	prof *profilex.UserProfile,
	timeout time.Duration,
	guard *guardrailx.Engine,
) contractx.AgentResult {
	return invokeOne(ctx, id, agent, params, prof, timeout, guard)
}

func invokeOne(
	ctx context.Context,
	id contractx.AgentID,
	agent contractx.Agent,
	params map[string]any,
	prof *profilex.UserProfile,
	timeout time.Duration,
	guard *guardrailx.Engine,
) contractx.AgentResult {
	start := time.Now()

	approval := guard.ValidateAgentAction(id, contractx.AgentAction{Type: "invoke", Payload: params}, prof)
	if !approval.Approved {
		return contractx.AgentResult{
			AgentID:   id,
			Status:    contractx.StatusError,
			Err:       "blocked by guardrail: " + approval.Reason,
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}
	if len(approval.Modified) > 0 {
		merged := make(map[string]any, len(params)+len(approval.Modified))
		for k, v := range params {
			merged[k] = v
		}
		for k, v := range approval.Modified {
			merged[k] = v
		}
		params = merged
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := agent.Invoke(callCtx, params, prof)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		status := contractx.StatusError
		wrapped := fmt.Errorf("%w: %v", contractx.ErrAgentExecution, err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			status = contractx.StatusTimeout
			wrapped = fmt.Errorf("%w: %v", contractx.ErrAgentTimeout, err)
		}
		return contractx.AgentResult{
			AgentID:   id,
			Status:    status,
			Err:       wrapped.Error(),
			LatencyMs: latency,
		}
	}

	return contractx.AgentResult{
		AgentID:   id,
		Status:    contractx.StatusSuccess,
		Payload:   payload,
		LatencyMs: latency,
	}
}
