package flow

import (
	"context"

	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// strategyOptions is the 6R disposition set a strategy recommendation picks
// from.
var strategyOptions = []string{
	"rehost",
	"replatform",
	"refactor",
	"repurchase",
	"retire",
	"retain",
}

// StrategyExecutor recommends a 6R migration strategy per asset, feeding the
// tech-debt scores from the previous phase into each unit.
type StrategyExecutor struct {
	capabilityExecutor
}

func (e *StrategyExecutor) Phase() models.Phase { return models.PhaseStrategy }

func (e *StrategyExecutor) Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error) {
	worker, release, err := e.acquire(wf.Key, "strategy")
	if err != nil {
		return nil, "", err
	}
	defer release()

	units := make([]unit, 0, len(wf.Assets))
	for _, asset := range wf.Assets {
		units = append(units, unit{
			key: "asset:" + asset.ID,
			run: func(ctx context.Context) (*workers.TaskResult, error) {
				return worker.Invoke(ctx, workers.TaskSpec{
					Operation: "recommend_strategy",
					AssetID:   asset.ID,
					Input: map[string]any{
						"name":      asset.Name,
						"options":   strategyOptions,
						"tech_debt": wf.PriorSummary(models.PhaseTechDebt),
					},
				})
			},
		})
	}

	results := runUnits(ctx, e.cfg, e.logger, units)
	result, status := mergeResult(e.Phase(), results, map[string]any{
		"assets_scored": len(units),
		"options":       strategyOptions,
	})
	return result, status, nil
}
