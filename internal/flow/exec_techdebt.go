package flow

import (
	"context"

	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// techDebtDimensions are the independent analysis dimensions scored per
// asset. Each (asset, dimension) pair is its own sub-task; one dimension
// failing leaves the other five usable.
var techDebtDimensions = []string{
	"os_currency",
	"runtime_currency",
	"architecture",
	"security",
	"licensing",
	"operability",
}

// TechDebtExecutor scores technical debt across the fixed dimension set.
// Dimension scores may legitimately be zero; zero is kept as a computed
// value, never collapsed into "no score".
type TechDebtExecutor struct {
	capabilityExecutor
}

func (e *TechDebtExecutor) Phase() models.Phase { return models.PhaseTechDebt }

func (e *TechDebtExecutor) Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error) {
	worker, release, err := e.acquire(wf.Key, "tech_debt")
	if err != nil {
		return nil, "", err
	}
	defer release()

	units := make([]unit, 0, len(wf.Assets)*len(techDebtDimensions))
	for _, asset := range wf.Assets {
		for _, dim := range techDebtDimensions {
			units = append(units, unit{
				key: "asset:" + asset.ID + "/dimension:" + dim,
				run: func(ctx context.Context) (*workers.TaskResult, error) {
					return worker.Invoke(ctx, workers.TaskSpec{
						Operation: "score_tech_debt",
						AssetID:   asset.ID,
						Dimension: dim,
						Input: map[string]any{
							"name": asset.Name,
							"kind": asset.Kind,
						},
					})
				},
			})
		}
	}

	results := runUnits(ctx, e.cfg, e.logger, units)
	result, status := mergeResult(e.Phase(), results, map[string]any{
		"assets":     len(wf.Assets),
		"dimensions": techDebtDimensions,
	})
	return result, status, nil
}
