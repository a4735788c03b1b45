package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"migration-assess/backend/internal/logging"
	"migration-assess/backend/pkg/models"
)

// PostgresFlowStore is a PostgreSQL implementation of the FlowStore
// interface.
type PostgresFlowStore struct {
	db     *pgxpool.Pool
	logger *logging.Logger
}

// NewPostgresFlowStore creates a new PostgresFlowStore.
func NewPostgresFlowStore(db *pgxpool.Pool, logger *logging.Logger) *PostgresFlowStore {
	return &PostgresFlowStore{db: db, logger: logger}
}

// CreateFlowPair inserts the master and child records in one transaction.
// The pairing invariant (matching master id, tenant and engagement) is
// checked up front; a violation is a programming error surfaced before any
// write.
func (s *PostgresFlowStore) CreateFlowPair(ctx context.Context, master *models.MasterFlow, child *models.ChildFlow) error {
	if child.MasterFlowID != master.ID {
		return fmt.Errorf("child master_flow_id %q does not reference master %q", child.MasterFlowID, master.ID)
	}
	if child.TenantID != master.TenantID || child.EngagementID != master.EngagementID {
		return fmt.Errorf("%w: child scope %s/%s, master scope %s/%s",
			ErrTenantMismatch, child.TenantID, child.EngagementID, master.TenantID, master.EngagementID)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO master_flows (id, tenant_id, engagement_id, flow_kind, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		master.ID, master.TenantID, master.EngagementID, master.FlowKind, master.Status, master.CreatedAt, master.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert master flow: %w", err)
	}

	results, err := json.Marshal(child.PhaseResults)
	if err != nil {
		return fmt.Errorf("failed to marshal phase results: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO child_flows (id, master_flow_id, tenant_id, engagement_id, flow_kind,
			current_phase, phase_status, phase_results, selected_asset_ids, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		child.ID, child.MasterFlowID, child.TenantID, child.EngagementID, child.FlowKind,
		child.CurrentPhase, child.PhaseStatus, results, child.SelectedAssetIDs, child.Version, child.CreatedAt, child.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert child flow: %w", err)
	}

	return tx.Commit(ctx)
}

// GetFlow loads the master/child pair by master id, scoped to the tenant
// key. A flow stored under a different tenant or engagement is reported as
// ErrTenantMismatch, never returned.
func (s *PostgresFlowStore) GetFlow(ctx context.Context, key models.TenantKey, masterID string) (*models.MasterFlow, *models.ChildFlow, error) {
	master, err := s.getMaster(ctx, key, masterID)
	if err != nil {
		return nil, nil, err
	}

	var (
		child      models.ChildFlow
		resultsRaw []byte
	)
	err = s.db.QueryRow(ctx, `
		SELECT id, master_flow_id, tenant_id, engagement_id, flow_kind,
			current_phase, phase_status, phase_results, selected_asset_ids, version, created_at, updated_at
		FROM child_flows WHERE master_flow_id = $1`, masterID,
	).Scan(
		&child.ID, &child.MasterFlowID, &child.TenantID, &child.EngagementID, &child.FlowKind,
		&child.CurrentPhase, &child.PhaseStatus, &resultsRaw, &child.SelectedAssetIDs, &child.Version, &child.CreatedAt, &child.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Should be structurally impossible: the pair is created in one
			// transaction.
			return nil, nil, fmt.Errorf("%w: child flow for master %s", ErrNotFound, masterID)
		}
		return nil, nil, fmt.Errorf("failed to load child flow: %w", err)
	}

	if err := json.Unmarshal(resultsRaw, &child.PhaseResults); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal phase results: %w", err)
	}
	if child.TenantID != key.TenantID || child.EngagementID != key.EngagementID {
		return nil, nil, fmt.Errorf("%w: child flow %s", ErrTenantMismatch, child.ID)
	}

	return master, &child, nil
}

func (s *PostgresFlowStore) getMaster(ctx context.Context, key models.TenantKey, masterID string) (*models.MasterFlow, error) {
	var master models.MasterFlow
	err := s.db.QueryRow(ctx, `
		SELECT id, tenant_id, engagement_id, flow_kind, status, created_at, updated_at
		FROM master_flows WHERE id = $1`, masterID,
	).Scan(&master.ID, &master.TenantID, &master.EngagementID, &master.FlowKind, &master.Status, &master.CreatedAt, &master.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: master flow %s", ErrNotFound, masterID)
		}
		return nil, fmt.Errorf("failed to load master flow: %w", err)
	}

	if master.TenantID != key.TenantID || master.EngagementID != key.EngagementID {
		return nil, fmt.Errorf("%w: master flow %s", ErrTenantMismatch, masterID)
	}
	return &master, nil
}

// UpdateChildFlow writes the child record guarded by its version and by the
// master still being in a running lifecycle. The version check gives
// per-flow write ordering: of two concurrent writers, exactly one succeeds
// and the other observes ErrConflict.
func (s *PostgresFlowStore) UpdateChildFlow(ctx context.Context, key models.TenantKey, child *models.ChildFlow) error {
	if child.TenantID != key.TenantID || child.EngagementID != key.EngagementID {
		return fmt.Errorf("%w: child flow %s", ErrTenantMismatch, child.ID)
	}

	results, err := json.Marshal(child.PhaseResults)
	if err != nil {
		return fmt.Errorf("failed to marshal phase results: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE child_flows c
		SET current_phase = $1, phase_status = $2, phase_results = $3, version = c.version + 1, updated_at = $4
		FROM master_flows m
		WHERE c.id = $5 AND c.version = $6
			AND m.id = c.master_flow_id AND m.status = $7`,
		child.CurrentPhase, child.PhaseStatus, results, child.UpdatedAt,
		child.ID, child.Version, models.LifecycleRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to update child flow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.diagnoseChildWrite(ctx, child)
	}

	child.Version++
	return nil
}

// diagnoseChildWrite classifies a zero-row child update: the row may be
// gone, the version may have moved, or the master may have left the running
// lifecycle (pause or cancel racing with in-flight work).
func (s *PostgresFlowStore) diagnoseChildWrite(ctx context.Context, child *models.ChildFlow) error {
	var (
		storedVersion int
		masterStatus  models.LifecycleStatus
	)
	err := s.db.QueryRow(ctx, `
		SELECT c.version, m.status
		FROM child_flows c JOIN master_flows m ON m.id = c.master_flow_id
		WHERE c.id = $1`, child.ID,
	).Scan(&storedVersion, &masterStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: child flow %s", ErrNotFound, child.ID)
		}
		return fmt.Errorf("failed to diagnose child write: %w", err)
	}

	if masterStatus != models.LifecycleRunning {
		return fmt.Errorf("%w: master status is %s", ErrLifecycleMismatch, masterStatus)
	}
	if storedVersion != child.Version {
		return fmt.Errorf("%w: expected version %d, stored %d", ErrConflict, child.Version, storedVersion)
	}
	return fmt.Errorf("%w: child flow %s", ErrConflict, child.ID)
}

// SetLifecycle transitions the master status from `from` to `to`.
func (s *PostgresFlowStore) SetLifecycle(ctx context.Context, key models.TenantKey, masterID string, from, to models.LifecycleStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE master_flows SET status = $1, updated_at = now()
		WHERE id = $2 AND tenant_id = $3 AND engagement_id = $4 AND status = $5`,
		to, masterID, key.TenantID, key.EngagementID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update lifecycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// getMaster distinguishes not found / tenant mismatch; a scoped row
		// in the wrong state is a lifecycle mismatch.
		if _, err := s.getMaster(ctx, key, masterID); err != nil {
			return err
		}
		return fmt.Errorf("%w: expected status %s", ErrLifecycleMismatch, from)
	}
	return nil
}

// CompleteFlow marks the child completed and the master completed in one
// transaction, guarded by the child version and the master running.
func (s *PostgresFlowStore) CompleteFlow(ctx context.Context, key models.TenantKey, child *models.ChildFlow) error {
	if child.TenantID != key.TenantID || child.EngagementID != key.EngagementID {
		return fmt.Errorf("%w: child flow %s", ErrTenantMismatch, child.ID)
	}

	results, err := json.Marshal(child.PhaseResults)
	if err != nil {
		return fmt.Errorf("failed to marshal phase results: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE child_flows SET current_phase = $1, phase_status = $2, phase_results = $3,
			version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`,
		child.CurrentPhase, child.PhaseStatus, results, child.UpdatedAt, child.ID, child.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update child flow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: child flow %s", ErrConflict, child.ID)
	}

	tag, err = tx.Exec(ctx, `
		UPDATE master_flows SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		models.LifecycleCompleted, child.UpdatedAt, child.MasterFlowID, models.LifecycleRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to update master flow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: master flow %s is not running", ErrLifecycleMismatch, child.MasterFlowID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	child.Version++
	return nil
}

// ListFlows returns the master flows for a tenant key, newest first.
func (s *PostgresFlowStore) ListFlows(ctx context.Context, key models.TenantKey) ([]*models.MasterFlow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, tenant_id, engagement_id, flow_kind, status, created_at, updated_at
		FROM master_flows
		WHERE tenant_id = $1 AND engagement_id = $2
		ORDER BY created_at DESC`,
		key.TenantID, key.EngagementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	var flows []*models.MasterFlow
	for rows.Next() {
		var m models.MasterFlow
		if err := rows.Scan(&m.ID, &m.TenantID, &m.EngagementID, &m.FlowKind, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan master flow: %w", err)
		}
		flows = append(flows, &m)
	}
	return flows, rows.Err()
}
