package flow

import (
	"migration-assess/backend/pkg/models"
)

// WorkingFlow is the validation-light representation an executor mutates
// during a single ExecutePhase call. It is built from the persisted records
// and the current asset rows at the start of the call and converted back at
// the persistence boundary; it never leaks past it.
type WorkingFlow struct {
	FlowID       string
	ChildFlowID  string
	Key          models.TenantKey
	Kind         models.FlowKind
	Phase        models.Phase
	Assets       []*models.Asset
	PriorResults map[models.Phase]models.PhaseResult

	// Scratch collects intermediate values executors want to carry into the
	// result summary without committing to a schema up front.
	Scratch map[string]any
}

func newWorkingFlow(master *models.MasterFlow, child *models.ChildFlow, assets []*models.Asset) *WorkingFlow {
	prior := make(map[models.Phase]models.PhaseResult, len(child.PhaseResults))
	for p, r := range child.PhaseResults {
		prior[p] = r
	}
	return &WorkingFlow{
		FlowID:       master.ID,
		ChildFlowID:  child.ID,
		Key:          models.TenantKey{TenantID: master.TenantID, EngagementID: master.EngagementID},
		Kind:         master.FlowKind,
		Phase:        child.CurrentPhase,
		Assets:       assets,
		PriorResults: prior,
		Scratch:      make(map[string]any),
	}
}

// PriorSummary returns the summary of an earlier phase's result, or nil when
// that phase has not produced one. Absence is distinct from an empty summary.
func (w *WorkingFlow) PriorSummary(p models.Phase) map[string]any {
	r, ok := w.PriorResults[p]
	if !ok {
		return nil
	}
	return r.Summary
}
