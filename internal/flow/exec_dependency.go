package flow

import (
	"context"

	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// DependencyAnalysisExecutor discovers inbound and outbound dependencies per
// asset so later phases can reason about move groups.
type DependencyAnalysisExecutor struct {
	capabilityExecutor
}

func (e *DependencyAnalysisExecutor) Phase() models.Phase { return models.PhaseDependencyAnalysis }

func (e *DependencyAnalysisExecutor) Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error) {
	worker, release, err := e.acquire(wf.Key, "dependency_analysis")
	if err != nil {
		return nil, "", err
	}
	defer release()

	// Peer ids travel with every unit so the worker can resolve references
	// within the selection without a second round trip.
	peerIDs := make([]string, 0, len(wf.Assets))
	for _, a := range wf.Assets {
		peerIDs = append(peerIDs, a.ID)
	}

	units := make([]unit, 0, len(wf.Assets))
	for _, asset := range wf.Assets {
		units = append(units, unit{
			key: "asset:" + asset.ID,
			run: func(ctx context.Context) (*workers.TaskResult, error) {
				return worker.Invoke(ctx, workers.TaskSpec{
					Operation: "analyze_dependencies",
					AssetID:   asset.ID,
					Input: map[string]any{
						"name":  asset.Name,
						"peers": peerIDs,
					},
				})
			},
		})
	}

	results := runUnits(ctx, e.cfg, e.logger, units)
	result, status := mergeResult(e.Phase(), results, map[string]any{
		"assets_analyzed": len(units),
	})
	return result, status, nil
}
