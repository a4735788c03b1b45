package flow

import (
	"context"

	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// DataCleansingExecutor normalizes and deduplicates asset attribute values,
// one unit per asset.
type DataCleansingExecutor struct {
	capabilityExecutor
}

func (e *DataCleansingExecutor) Phase() models.Phase { return models.PhaseDataCleansing }

func (e *DataCleansingExecutor) Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error) {
	worker, release, err := e.acquire(wf.Key, "cleansing")
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
					Operation: "cleanse",
					AssetID:   asset.ID,
					Input: map[string]any{
						"name":     asset.Name,
						"mappings": wf.PriorSummary(models.PhaseFieldMapping),
					},
				})
			},
		})
	}

	results := runUnits(ctx, e.cfg, e.logger, units)
	result, status := mergeResult(e.Phase(), results, map[string]any{
		"assets_cleansed": len(units),
	})
	return result, status, nil
}
