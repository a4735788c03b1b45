package flow

import (
	"context"
	"fmt"

	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// FieldMappingExecutor maps source inventory columns onto the canonical
// asset schema. Each field is an independent unit; a field the worker cannot
// map is recorded as a failed unit and left for the reviewer.
type FieldMappingExecutor struct {
	capabilityExecutor
}

func (e *FieldMappingExecutor) Phase() models.Phase { return models.PhaseFieldMapping }

func (e *FieldMappingExecutor) Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error) {
	worker, release, err := e.acquire(wf.Key, "field_mapping")
	if err != nil {
		return nil, "", err
	}
	defer release()

	fields := stringSlice(input["fields"])
	if len(fields) == 0 {
		// No explicit column list supplied; ask the worker to infer the
		// mapping from the selection as a whole.
		fields = []string{"__inferred__"}
	}

	units := make([]unit, 0, len(fields))
	for _, field := range fields {
		units = append(units, unit{
			key: "field:" + field,
			run: func(ctx context.Context) (*workers.TaskResult, error) {
				return worker.Invoke(ctx, workers.TaskSpec{
					Operation: "map_field",
					Input: map[string]any{
						"field":       field,
						"asset_count": len(wf.Assets),
					},
				})
			},
		})
	}

	results := runUnits(ctx, e.cfg, e.logger, units)
	summary := map[string]any{
		"fields_requested": len(fields),
		"note":             fmt.Sprintf("field mapping over %d assets", len(wf.Assets)),
	}
	result, status := mergeResult(e.Phase(), results, summary)
	return result, status, nil
}

// stringSlice coerces a decoded JSON value into a string slice. A missing or
// malformed value yields nil, which callers treat as "not provided".
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
