package flow

import (
	"context"

	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// EnrichmentExecutor fills attribute gaps per asset from the worker's
// accumulated tenant context. Readiness itself is owned by the enrichment
// subsystem; this phase only produces the candidate values a reviewer
// confirms.
type EnrichmentExecutor struct {
	capabilityExecutor
}

func (e *EnrichmentExecutor) Phase() models.Phase { return models.PhaseEnrichment }

func (e *EnrichmentExecutor) Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error) {
	worker, release, err := e.acquire(wf.Key, "enrichment")
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
					Operation: "enrich",
					AssetID:   asset.ID,
					Input: map[string]any{
						"name":                    asset.Name,
						"required_fields_present": asset.RequiredFieldsPresent,
					},
				})
			},
		})
	}

	results := runUnits(ctx, e.cfg, e.logger, units)
	result, status := mergeResult(e.Phase(), results, map[string]any{
		"assets_enriched": len(units),
	})
	return result, status, nil
}
