// Package flow implements the workflow orchestration core: the flow
// lifecycle state machine, the phase executors, and the two-phase completion
// protocol that keeps a human decision between automated work finishing and
// a phase being marked complete.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"migration-assess/backend/internal/events"
	"migration-assess/backend/internal/logging"
	"migration-assess/backend/internal/readiness"
	"migration-assess/backend/internal/repository"
	"migration-assess/backend/internal/telemetry"
	"migration-assess/backend/pkg/models"
)

// Machine sequences phase executors over persisted flow state. It is the
// orchestrator facade the API layer calls; per-flow write ordering is
// enforced by the persistence gateway's optimistic locking, so two
// concurrent mutations of the same flow never both succeed.
type Machine struct {
	store     repository.FlowStore
	assets    repository.AssetStore
	executors map[models.Phase]Executor
	publisher *events.Publisher
	metrics   *telemetry.Metrics
	logger    *logging.Logger
}

// NewMachine creates a Machine. publisher and metrics may be nil; both
// degrade to no-ops.
func NewMachine(
	store repository.FlowStore,
	assets repository.AssetStore,
	executors map[models.Phase]Executor,
	publisher *events.Publisher,
	metrics *telemetry.Metrics,
	logger *logging.Logger,
) *Machine {
	return &Machine{
		store:     store,
		assets:    assets,
		executors: executors,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Initialize creates the master and child records for a new flow atomically.
// The master starts running; the child starts at the first phase for the
// kind with status not_started.
func (m *Machine) Initialize(ctx context.Context, key models.TenantKey, kind models.FlowKind, selection []string) (*models.MasterFlow, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlowKind, kind)
	}
	if len(selection) == 0 && RequiresSelection(kind) {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidSelection, kind)
	}

	first, err := FirstPhase(kind)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	master := &models.MasterFlow{
		ID:           uuid.New().String(),
		TenantID:     key.TenantID,
		EngagementID: key.EngagementID,
		FlowKind:     kind,
		Status:       models.LifecycleRunning,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	child := &models.ChildFlow{
		ID:               uuid.New().String(),
		MasterFlowID:     master.ID,
		TenantID:         key.TenantID,
		EngagementID:     key.EngagementID,
		FlowKind:         kind,
		CurrentPhase:     first,
		PhaseStatus:      models.PhaseNotStarted,
		PhaseResults:     make(map[models.Phase]models.PhaseResult),
		SelectedAssetIDs: selection,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := m.store.CreateFlowPair(ctx, master, child); err != nil {
		return nil, err
	}

	m.metrics.FlowStarted(ctx, string(kind))
	m.publish(ctx, key, master.ID, "initialized", string(first))
	m.logger.Info("flow initialized", "flow_id", master.ID, "kind", kind, "tenant", key.String())
	return master, nil
}

// ExecutePhase runs the automated work for the flow's current phase and
// persists the outcome in exactly one durable write — or none when the call
// fails. The requested phase must match the current phase.
func (m *Machine) ExecutePhase(ctx context.Context, key models.TenantKey, flowID string, phase models.Phase, input map[string]any) (*models.PhaseResult, error) {
	master, child, err := m.store.GetFlow(ctx, key, flowID)
	if err != nil {
		return nil, err
	}
	if err := m.checkExecutable(master, child, phase); err != nil {
		return nil, err
	}

	exec, ok := m.executors[phase]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}

	assets, err := m.assets.GetAssets(ctx, key, child.SelectedAssetIDs)
	if err != nil {
		return nil, err
	}

	wf := newWorkingFlow(master, child, assets)
	result, status, err := exec.Execute(ctx, wf, input)
	if err != nil {
		return nil, err
	}

	if err := m.persistExecution(ctx, key, flowID, child, phase, result, status); err != nil {
		return nil, err
	}

	m.metrics.PhaseExecuted(ctx, string(child.FlowKind), string(phase), string(status))
	m.publish(ctx, key, flowID, "phase_executed", string(phase))
	m.logger.Info("phase executed",
		"flow_id", flowID,
		"phase", phase,
		"status", status,
		"units", len(result.Units),
		"failed_units", result.FailedUnits,
	)
	return result, nil
}

func (m *Machine) checkExecutable(master *models.MasterFlow, child *models.ChildFlow, phase models.Phase) error {
	if master.Status != models.LifecycleRunning {
		return fmt.Errorf("%w: lifecycle is %s", ErrFlowNotRunning, master.Status)
	}
	if phase != child.CurrentPhase {
		return fmt.Errorf("%w: requested %q, current %q", ErrPhaseMismatch, phase, child.CurrentPhase)
	}
	if child.PhaseStatus == models.PhaseAwaitingConfirmation {
		return ErrAwaitingConfirmation
	}
	if child.PhaseStatus == models.PhaseCompleted {
		return fmt.Errorf("%w: phase %q already completed", ErrPhaseMismatch, phase)
	}
	return nil
}

// persistExecution applies the phase result to the child record and writes
// it. A first optimistic conflict triggers one reload, re-validation and
// retry; a second conflict is surfaced as ErrPersistenceConflict.
func (m *Machine) persistExecution(ctx context.Context, key models.TenantKey, flowID string, child *models.ChildFlow, phase models.Phase, result *models.PhaseResult, status models.PhaseStatus) error {
	for attempt := 0; ; attempt++ {
		if err := m.applyResult(ctx, key, child, phase, result, status); err == nil {
			return nil
		} else if !errors.Is(err, repository.ErrConflict) {
			return err
		} else if attempt > 0 {
			return fmt.Errorf("%w: flow %s", ErrPersistenceConflict, flowID)
		}

		master, fresh, err := m.store.GetFlow(ctx, key, flowID)
		if err != nil {
			return err
		}
		if err := m.checkExecutable(master, fresh, phase); err != nil {
			return err
		}
		*child = *fresh
	}
}

func (m *Machine) applyResult(ctx context.Context, key models.TenantKey, child *models.ChildFlow, phase models.Phase, result *models.PhaseResult, status models.PhaseStatus) error {
	if child.PhaseResults == nil {
		child.PhaseResults = make(map[models.Phase]models.PhaseResult)
	}
	child.PhaseResults[phase] = *result
	child.PhaseStatus = status
	child.UpdatedAt = time.Now().UTC()

	if status == models.PhaseCompleted {
		// Fully automatic phase: advance past it in the same write, or
		// close out the whole flow when it was the terminal phase.
		next, ok, err := NextPhase(child.FlowKind, phase)
		if err != nil {
			return err
		}
		if !ok {
			return m.store.CompleteFlow(ctx, key, child)
		}
		child.CurrentPhase = next
		child.PhaseStatus = models.PhaseNotStarted
	}

	return m.store.UpdateChildFlow(ctx, key, child)
}

// Resume merges the user's confirmation into the current phase result and
// advances to the next phase. Only valid while the phase is awaiting
// confirmation.
func (m *Machine) Resume(ctx context.Context, key models.TenantKey, flowID string, userInput map[string]any) (*models.ChildFlow, error) {
	for attempt := 0; ; attempt++ {
		master, child, err := m.store.GetFlow(ctx, key, flowID)
		if err != nil {
			return nil, err
		}
		if master.Status != models.LifecycleRunning {
			return nil, fmt.Errorf("%w: lifecycle is %s", ErrFlowNotRunning, master.Status)
		}
		if child.PhaseStatus != models.PhaseAwaitingConfirmation {
			return nil, fmt.Errorf("%w: phase status is %s", ErrNotAwaitingConfirmation, child.PhaseStatus)
		}

		next, ok, err := NextPhase(child.FlowKind, child.CurrentPhase)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTerminalPhase
		}

		confirmed := child.CurrentPhase
		result := child.PhaseResults[confirmed]
		result.UserInput = mergeUserInput(result.UserInput, userInput)
		child.PhaseResults[confirmed] = result
		child.CurrentPhase = next
		child.PhaseStatus = models.PhaseNotStarted
		child.UpdatedAt = time.Now().UTC()

		err = m.store.UpdateChildFlow(ctx, key, child)
		if err == nil {
			m.publish(ctx, key, flowID, "resumed", string(next))
			m.logger.Info("flow resumed", "flow_id", flowID, "confirmed_phase", confirmed, "next_phase", next)
			return child, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		if attempt > 0 {
			return nil, fmt.Errorf("%w: flow %s", ErrPersistenceConflict, flowID)
		}
	}
}

// Finalize closes a flow whose terminal phase is awaiting confirmation:
// child phase completed and master lifecycle completed in one transaction.
func (m *Machine) Finalize(ctx context.Context, key models.TenantKey, flowID string) (*models.MasterFlow, error) {
	master, child, err := m.store.GetFlow(ctx, key, flowID)
	if err != nil {
		return nil, err
	}
	if master.Status != models.LifecycleRunning {
		return nil, fmt.Errorf("%w: lifecycle is %s", ErrFlowNotRunning, master.Status)
	}
	if !IsTerminalPhase(child.FlowKind, child.CurrentPhase) || child.PhaseStatus != models.PhaseAwaitingConfirmation {
		return nil, fmt.Errorf("%w: phase %q status %q", ErrNotFinalizable, child.CurrentPhase, child.PhaseStatus)
	}

	child.PhaseStatus = models.PhaseCompleted
	child.UpdatedAt = time.Now().UTC()
	if err := m.store.CompleteFlow(ctx, key, child); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: flow %s", ErrPersistenceConflict, flowID)
		}
		return nil, err
	}

	master.Status = models.LifecycleCompleted
	master.UpdatedAt = child.UpdatedAt

	m.metrics.FlowCompleted(ctx, string(master.FlowKind))
	m.publish(ctx, key, flowID, "completed", string(child.CurrentPhase))
	m.logger.Info("flow finalized", "flow_id", flowID, "kind", master.FlowKind)
	return master, nil
}

// Pause suspends a running flow. The child record is untouched, so resuming
// returns to exactly the state the flow paused in.
func (m *Machine) Pause(ctx context.Context, key models.TenantKey, flowID string) error {
	if err := m.store.SetLifecycle(ctx, key, flowID, models.LifecycleRunning, models.LifecyclePaused); err != nil {
		return err
	}
	m.publish(ctx, key, flowID, "paused", "")
	return nil
}

// Unpause returns a paused flow to running.
func (m *Machine) Unpause(ctx context.Context, key models.TenantKey, flowID string) error {
	if err := m.store.SetLifecycle(ctx, key, flowID, models.LifecyclePaused, models.LifecycleRunning); err != nil {
		return err
	}
	m.publish(ctx, key, flowID, "unpaused", "")
	return nil
}

// Cancel marks the flow cancelled immediately so new operations are
// rejected. In-flight sub-tasks are not interrupted; their results are
// discarded at the persistence gateway, which refuses child writes once the
// master is no longer running.
func (m *Machine) Cancel(ctx context.Context, key models.TenantKey, flowID string) error {
	master, _, err := m.store.GetFlow(ctx, key, flowID)
	if err != nil {
		return err
	}
	if master.Status.Terminal() {
		return fmt.Errorf("%w: lifecycle is %s", ErrFlowNotRunning, master.Status)
	}

	if err := m.store.SetLifecycle(ctx, key, flowID, master.Status, models.LifecycleCancelled); err != nil {
		return err
	}
	m.publish(ctx, key, flowID, "cancelled", "")
	m.logger.Info("flow cancelled", "flow_id", flowID)
	return nil
}

// GetStatus returns the read-only status projection. With refreshReadiness
// set, group readiness is recomputed from the current asset rows rather than
// any summary stored in phase results, because those snapshots go stale as
// assets are enriched.
func (m *Machine) GetStatus(ctx context.Context, key models.TenantKey, flowID string, refreshReadiness bool) (*models.FlowStatus, error) {
	master, child, err := m.store.GetFlow(ctx, key, flowID)
	if err != nil {
		return nil, err
	}

	status := &models.FlowStatus{
		FlowID:       master.ID,
		ChildFlowID:  child.ID,
		FlowKind:     master.FlowKind,
		Lifecycle:    master.Status,
		CurrentPhase: child.CurrentPhase,
		PhaseStatus:  child.PhaseStatus,
		UpdatedAt:    child.UpdatedAt,
	}

	if refreshReadiness {
		assets, err := m.assets.GetAssets(ctx, key, child.SelectedAssetIDs)
		if err != nil {
			return nil, err
		}
		summary := readiness.EvaluateGroup(assets)
		status.Readiness = &summary
	}

	return status, nil
}

// ListFlows returns the master flows for a tenant key.
func (m *Machine) ListFlows(ctx context.Context, key models.TenantKey) ([]*models.MasterFlow, error) {
	return m.store.ListFlows(ctx, key)
}

func (m *Machine) publish(ctx context.Context, key models.TenantKey, flowID, event, detail string) {
	if err := m.publisher.PublishTransition(ctx, events.FlowTransition{
		TenantKey: key,
		FlowID:    flowID,
		Event:     event,
		Detail:    detail,
		At:        time.Now().UTC(),
	}); err != nil {
		m.logger.Warn("failed to publish flow transition", "flow_id", flowID, "event", event, "error", err)
	}
}

func mergeUserInput(existing, incoming map[string]any) map[string]any {
	if existing == nil {
		existing = make(map[string]any, len(incoming))
	}
	for k, v := range incoming {
		existing[k] = v
	}
	return existing
}
