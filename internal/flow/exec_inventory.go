package flow

import (
	"context"

	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// InventoryExecutor classifies each asset into the inventory taxonomy
// (server, database, application component, network device, ...).
type InventoryExecutor struct {
	capabilityExecutor
}

func (e *InventoryExecutor) Phase() models.Phase { return models.PhaseInventory }

func (e *InventoryExecutor) Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error) {
	worker, release, err := e.acquire(wf.Key, "inventory")
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
					Operation: "classify",
					AssetID:   asset.ID,
					Input: map[string]any{
						"name":        asset.Name,
						"environment": asset.Environment,
					},
				})
			},
		})
	}

	results := runUnits(ctx, e.cfg, e.logger, units)
	result, status := mergeResult(e.Phase(), results, map[string]any{
		"assets_classified": len(units),
	})
	return result, status, nil
}
