// Package models defines the domain models for the migration-assessment service.
package models

import (
	"time"
)

// FlowKind identifies which analysis pipeline a flow runs.
type FlowKind string

const (
	FlowKindDiscovery  FlowKind = "discovery"
	FlowKindCollection FlowKind = "collection"
	FlowKindAssessment FlowKind = "assessment"
	FlowKindPlanning   FlowKind = "planning"
)

// IsValid returns true if the flow kind is one of the known pipelines.
func (k FlowKind) IsValid() bool {
	switch k {
	case FlowKindDiscovery, FlowKindCollection, FlowKindAssessment, FlowKindPlanning:
		return true
	default:
		return false
	}
}

// LifecycleStatus is the master-level state of a flow.
type LifecycleStatus string

const (
	LifecycleRunning   LifecycleStatus = "running"
	LifecyclePaused    LifecycleStatus = "paused"
	LifecycleCompleted LifecycleStatus = "completed"
	LifecycleFailed    LifecycleStatus = "failed"
	LifecycleCancelled LifecycleStatus = "cancelled"
)

// Terminal returns true if no further lifecycle transitions are allowed.
func (s LifecycleStatus) Terminal() bool {
	switch s {
	case LifecycleCompleted, LifecycleFailed, LifecycleCancelled:
		return true
	default:
		return false
	}
}

// Phase is a discrete step within a flow kind's fixed ordering.
type Phase string

const (
	PhaseFieldMapping       Phase = "field_mapping"
	PhaseDataCleansing      Phase = "data_cleansing"
	PhaseInventory          Phase = "inventory"
	PhaseEnrichment         Phase = "enrichment"
	PhaseDependencyAnalysis Phase = "dependency_analysis"
	PhaseTechDebt           Phase = "tech_debt"
	PhaseStrategy           Phase = "strategy"
	PhaseWavePlanning       Phase = "wave_planning"
)

// PhaseStatus is the child-level state of the current phase.
type PhaseStatus string

const (
	PhaseNotStarted           PhaseStatus = "not_started"
	PhaseInProgress           PhaseStatus = "in_progress"
	PhaseAwaitingConfirmation PhaseStatus = "awaiting_confirmation"
	PhaseCompleted            PhaseStatus = "completed"
	PhaseFailed               PhaseStatus = "failed"
)

// MasterFlow is the tenant-scoped lifecycle record for one workflow instance.
// Its ID is the single source of truth for "this workflow exists".
type MasterFlow struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	EngagementID string          `json:"engagement_id"`
	FlowKind     FlowKind        `json:"flow_kind"`
	Status       LifecycleStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ChildFlow is the operational record for one flow kind. Its ID is distinct
// from the MasterFlow ID and the two are never conflated. TenantID and
// EngagementID must always equal the master's — the pairing is checked on
// every persistence write, never just inherited.
type ChildFlow struct {
	ID               string                `json:"id"`
	MasterFlowID     string                `json:"master_flow_id"`
	TenantID         string                `json:"tenant_id"`
	EngagementID     string                `json:"engagement_id"`
	FlowKind         FlowKind              `json:"flow_kind"`
	CurrentPhase     Phase                 `json:"current_phase"`
	PhaseStatus      PhaseStatus           `json:"phase_status"`
	PhaseResults     map[Phase]PhaseResult `json:"phase_results"`
	SelectedAssetIDs []string              `json:"selected_asset_ids"`
	Version          int                   `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// Result returns the stored result for a phase and whether one exists.
func (c *ChildFlow) Result(p Phase) (PhaseResult, bool) {
	r, ok := c.PhaseResults[p]
	return r, ok
}

// PhaseResult is the persisted outcome of one executed phase. Units carry
// per-sub-task success or failure; a phase with some failed units is still a
// usable result.
type PhaseResult struct {
	Phase       Phase          `json:"phase"`
	Units       []UnitResult   `json:"units,omitempty"`
	Summary     map[string]any `json:"summary,omitempty"`
	UserInput   map[string]any `json:"user_input,omitempty"`
	FailedUnits int            `json:"failed_units"`
	CompletedAt time.Time      `json:"completed_at"`
}

// UnitResult is the outcome of one independent sub-task within a phase.
// Score is nil when the unit produced no score — a zero score is a computed
// value and is kept as-is.
type UnitResult struct {
	Key    string         `json:"key"`
	OK     bool           `json:"ok"`
	Score  *float64       `json:"score,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// FlowStatus is the read-only projection returned to callers.
type FlowStatus struct {
	FlowID       string            `json:"flow_id"`
	ChildFlowID  string            `json:"child_flow_id"`
	FlowKind     FlowKind          `json:"flow_kind"`
	Lifecycle    LifecycleStatus   `json:"lifecycle"`
	CurrentPhase Phase             `json:"current_phase"`
	PhaseStatus  PhaseStatus       `json:"phase_status"`
	Readiness    *ReadinessSummary `json:"readiness,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ReadinessSummary is an aggregate readiness verdict over a group of assets.
type ReadinessSummary struct {
	Ready    int `json:"ready"`
	NotReady int `json:"not_ready"`
}
