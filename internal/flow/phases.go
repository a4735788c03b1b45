package flow

import (
	"migration-assess/backend/pkg/models"
)

// phaseOrder is the fixed, flow-kind-specific total order of phases. The
// next action for a flow is always computable from (kind, currentPhase,
// phaseStatus) against this table, which keeps resumption deterministic
// after a crash.
var phaseOrder = map[models.FlowKind][]models.Phase{
	models.FlowKindDiscovery: {
		models.PhaseFieldMapping,
		models.PhaseDataCleansing,
		models.PhaseInventory,
	},
	models.FlowKindCollection: {
		models.PhaseFieldMapping,
		models.PhaseDataCleansing,
		models.PhaseEnrichment,
	},
	models.FlowKindAssessment: {
		models.PhaseDependencyAnalysis,
		models.PhaseTechDebt,
		models.PhaseStrategy,
	},
	models.FlowKindPlanning: {
		models.PhaseDependencyAnalysis,
		models.PhaseWavePlanning,
	},
}

// selectionRequired lists the flow kinds that cannot start without an
// explicit asset selection. Discovery runs over the whole imported inventory
// and may start empty.
var selectionRequired = map[models.FlowKind]bool{
	models.FlowKindCollection: true,
	models.FlowKindAssessment: true,
	models.FlowKindPlanning:   true,
}

// FirstPhase returns the first phase for a flow kind.
func FirstPhase(kind models.FlowKind) (models.Phase, error) {
	order, ok := phaseOrder[kind]
	if !ok || len(order) == 0 {
		return "", ErrUnknownFlowKind
	}
	return order[0], nil
}

// NextPhase returns the phase following current for the given kind. The
// second return is false when current is the terminal phase.
func NextPhase(kind models.FlowKind, current models.Phase) (models.Phase, bool, error) {
	order, ok := phaseOrder[kind]
	if !ok {
		return "", false, ErrUnknownFlowKind
	}
	for i, p := range order {
		if p == current {
			if i == len(order)-1 {
				return "", false, nil
			}
			return order[i+1], true, nil
		}
	}
	return "", false, ErrUnknownPhase
}

// IsTerminalPhase returns true if phase is the last phase for the kind.
func IsTerminalPhase(kind models.FlowKind, phase models.Phase) bool {
	order, ok := phaseOrder[kind]
	if !ok || len(order) == 0 {
		return false
	}
	return order[len(order)-1] == phase
}

// Phases returns the full ordering for a kind.
func Phases(kind models.FlowKind) []models.Phase {
	return phaseOrder[kind]
}

// RequiresSelection returns true if the kind cannot initialize with an empty
// asset selection.
func RequiresSelection(kind models.FlowKind) bool {
	return selectionRequired[kind]
}
