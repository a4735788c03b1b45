package flow

import (
	"context"

	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// WavePlanningExecutor assigns each asset to a migration wave, using the
// dependency analysis summary so tightly coupled assets land in the same
// wave.
type WavePlanningExecutor struct {
	capabilityExecutor
}

func (e *WavePlanningExecutor) Phase() models.Phase { return models.PhaseWavePlanning }

func (e *WavePlanningExecutor) Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error) {
	worker, release, err := e.acquire(wf.Key, "wave_planning")
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
					Operation: "assign_wave",
					AssetID:   asset.ID,
					Input: map[string]any{
						"name":         asset.Name,
						"environment":  asset.Environment,
						"dependencies": wf.PriorSummary(models.PhaseDependencyAnalysis),
					},
				})
			},
		})
	}

	results := runUnits(ctx, e.cfg, e.logger, units)
	result, status := mergeResult(e.Phase(), results, map[string]any{
		"assets_planned": len(units),
	})
	return result, status, nil
}
