package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RouteRefreshWorkflowName is the registered name used to start the workflow from a client.
const RouteRefreshWorkflowName = "RouteRefreshWorkflow"

// RefreshInput selects the routes to refresh. An empty list means every active route.
type RefreshInput struct {
	RouteIDs []int64
}

// RefreshResult summarises a finished fleet refresh.
type RefreshResult struct {
	Refreshed int
	BySource  map[string]int
	Failed    []int64
}

// RouteRefreshWorkflow re-resolves routes one at a time so the external provider never sees a
// burst, persisting each estimate as it goes. A failed route is recorded and skipped.
func RouteRefreshWorkflow(ctx workflow.Context, input RefreshInput) (RefreshResult, error) {
	logger := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 2 * time.Second,
			MaximumAttempts: 3,
		},
	})

	ids := input.RouteIDs
	if len(ids) == 0 {
		if err := workflow.ExecuteActivity(ctx, "ListActiveRouteIDs").Get(ctx, &ids); err != nil {
			return RefreshResult{}, err
		}
	}
	logger.Info("Starting route refresh", "routes", len(ids))

	result := RefreshResult{BySource: map[string]int{}}
	for _, id := range ids {
		var out RefreshOutcome
		if err := workflow.ExecuteActivity(ctx, "RefreshRoute", id).Get(ctx, &out); err != nil {
			logger.Warn("route refresh failed", "route_id", id, "error", err)
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Refreshed++
		result.BySource[out.Source]++
	}

	logger.Info("Route refresh finished", "refreshed", result.Refreshed, "failed", len(result.Failed))
	return result, nil
}
