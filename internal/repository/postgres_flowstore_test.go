package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"migration-assess/backend/internal/logging"
	"migration-assess/backend/pkg/models"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, Schema); err != nil {
		t.Fatal(err)
	}
	return pool
}

func newPair(key models.TenantKey, kind models.FlowKind) (*models.MasterFlow, *models.ChildFlow) {
	now := time.Now().UTC().Truncate(time.Microsecond)
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
		CurrentPhase:     models.PhaseFieldMapping,
		PhaseStatus:      models.PhaseNotStarted,
		PhaseResults:     map[models.Phase]models.PhaseResult{},
		SelectedAssetIDs: []string{uuid.New().String()},
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return master, child
}

func TestPostgresFlowStore(t *testing.T) {
	ctx := context.Background()
	pool := setupTestDB(t)
	store := NewPostgresFlowStore(pool, logging.NewLogger())
	key := models.TenantKey{TenantID: "acme", EngagementID: "eng-1"}

	t.Run("CreateFlowPair and GetFlow", func(t *testing.T) {
		master, child := newPair(key, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, master, child))

		gotMaster, gotChild, err := store.GetFlow(ctx, key, master.ID)
		require.NoError(t, err)
		assert.Equal(t, master.ID, gotMaster.ID)
		assert.Equal(t, models.LifecycleRunning, gotMaster.Status)
		assert.Equal(t, child.ID, gotChild.ID)
		assert.Equal(t, master.ID, gotChild.MasterFlowID)
		assert.NotEqual(t, gotMaster.ID, gotChild.ID)
		assert.Equal(t, models.PhaseFieldMapping, gotChild.CurrentPhase)
		assert.Equal(t, child.SelectedAssetIDs, gotChild.SelectedAssetIDs)
		assert.Equal(t, 1, gotChild.Version)
	})

	t.Run("CreateFlowPair rejects a mispaired child", func(t *testing.T) {
		master, child := newPair(key, models.FlowKindDiscovery)
		child.MasterFlowID = uuid.New().String()
		assert.Error(t, store.CreateFlowPair(ctx, master, child))

		master, child = newPair(key, models.FlowKindDiscovery)
		child.TenantID = "someone-else"
		assert.ErrorIs(t, store.CreateFlowPair(ctx, master, child), ErrTenantMismatch)
	})

	t.Run("GetFlow enforces tenant scope", func(t *testing.T) {
		master, child := newPair(key, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, master, child))

		_, _, err := store.GetFlow(ctx, models.TenantKey{TenantID: "intruder", EngagementID: "eng-1"}, master.ID)
		assert.ErrorIs(t, err, ErrTenantMismatch)

		_, _, err = store.GetFlow(ctx, models.TenantKey{TenantID: "acme", EngagementID: "eng-2"}, master.ID)
		assert.ErrorIs(t, err, ErrTenantMismatch)

		_, _, err = store.GetFlow(ctx, key, uuid.New().String())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateChildFlow bumps version and persists results", func(t *testing.T) {
		master, child := newPair(key, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, master, child))

		score := 0.8
		child.PhaseStatus = models.PhaseAwaitingConfirmation
		child.PhaseResults[models.PhaseFieldMapping] = models.PhaseResult{
			Phase:       models.PhaseFieldMapping,
			Units:       []models.UnitResult{{Key: "field:hostname", OK: true, Score: &score}},
			CompletedAt: time.Now().UTC().Truncate(time.Microsecond),
		}
		child.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, store.UpdateChildFlow(ctx, key, child))
		assert.Equal(t, 2, child.Version)

		_, got, err := store.GetFlow(ctx, key, master.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		result, ok := got.Result(models.PhaseFieldMapping)
		require.True(t, ok)
		require.Len(t, result.Units, 1)
		assert.Equal(t, 0.8, *result.Units[0].Score)
	})

	t.Run("stale version write observes conflict", func(t *testing.T) {
		master, child := newPair(key, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, master, child))

		// Two writers load the same version; the first one in wins.
		_, first, err := store.GetFlow(ctx, key, master.ID)
		require.NoError(t, err)
		_, second, err := store.GetFlow(ctx, key, master.ID)
		require.NoError(t, err)

		first.PhaseStatus = models.PhaseAwaitingConfirmation
		require.NoError(t, store.UpdateChildFlow(ctx, key, first))

		second.PhaseStatus = models.PhaseFailed
		err = store.UpdateChildFlow(ctx, key, second)
		assert.ErrorIs(t, err, ErrConflict)

		// The winner's write is what persisted.
		_, got, err := store.GetFlow(ctx, key, master.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PhaseAwaitingConfirmation, got.PhaseStatus)
	})

	t.Run("child writes rejected once the master leaves running", func(t *testing.T) {
		master, child := newPair(key, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, master, child))

		require.NoError(t, store.SetLifecycle(ctx, key, master.ID, models.LifecycleRunning, models.LifecycleCancelled))

		// An in-flight phase result arriving after cancellation is discarded.
		child.PhaseStatus = models.PhaseAwaitingConfirmation
		err := store.UpdateChildFlow(ctx, key, child)
		assert.ErrorIs(t, err, ErrLifecycleMismatch)

		_, got, err := store.GetFlow(ctx, key, master.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PhaseNotStarted, got.PhaseStatus)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("SetLifecycle", func(t *testing.T) {
		master, child := newPair(key, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, master, child))

		require.NoError(t, store.SetLifecycle(ctx, key, master.ID, models.LifecycleRunning, models.LifecyclePaused))
		gotMaster, _, err := store.GetFlow(ctx, key, master.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LifecyclePaused, gotMaster.Status)

		err = store.SetLifecycle(ctx, key, master.ID, models.LifecycleRunning, models.LifecycleCancelled)
		assert.ErrorIs(t, err, ErrLifecycleMismatch)

		err = store.SetLifecycle(ctx, models.TenantKey{TenantID: "intruder", EngagementID: "eng-1"}, master.ID, models.LifecyclePaused, models.LifecycleRunning)
		assert.ErrorIs(t, err, ErrTenantMismatch)

		err = store.SetLifecycle(ctx, key, uuid.New().String(), models.LifecycleRunning, models.LifecyclePaused)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("CompleteFlow closes child and master together", func(t *testing.T) {
		master, child := newPair(key, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, master, child))

		child.CurrentPhase = models.PhaseInventory
		child.PhaseStatus = models.PhaseCompleted
		child.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, store.CompleteFlow(ctx, key, child))

		gotMaster, gotChild, err := store.GetFlow(ctx, key, master.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LifecycleCompleted, gotMaster.Status)
		assert.Equal(t, models.PhaseCompleted, gotChild.PhaseStatus)
		assert.Equal(t, 2, gotChild.Version)

		// A completed flow accepts no further completion.
		child.Version = gotChild.Version
		err = store.CompleteFlow(ctx, key, child)
		assert.ErrorIs(t, err, ErrLifecycleMismatch)
	})

	t.Run("ListFlows scopes by tenant key", func(t *testing.T) {
		listKey := models.TenantKey{TenantID: "globex", EngagementID: "eng-9"}
		otherKey := models.TenantKey{TenantID: "globex", EngagementID: "eng-10"}

		m1, c1 := newPair(listKey, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, m1, c1))
		m2, c2 := newPair(listKey, models.FlowKindAssessment)
		m2.CreatedAt = m1.CreatedAt.Add(time.Second)
		require.NoError(t, store.CreateFlowPair(ctx, m2, c2))
		m3, c3 := newPair(otherKey, models.FlowKindDiscovery)
		require.NoError(t, store.CreateFlowPair(ctx, m3, c3))

		flows, err := store.ListFlows(ctx, listKey)
		require.NoError(t, err)
		require.Len(t, flows, 2)
		assert.Equal(t, m2.ID, flows[0].ID)
		assert.Equal(t, m1.ID, flows[1].ID)
	})
}

func TestPostgresTenantStore(t *testing.T) {
	ctx := context.Background()
	pool := setupTestDB(t)
	store := NewPostgresTenantStore(pool)

	t.Run("create and look up by domain", func(t *testing.T) {
		tenant := &models.Tenant{Name: "Acme Corp", Domain: "acme.example.com"}
		require.NoError(t, store.CreateTenant(ctx, tenant))
		assert.NotEmpty(t, tenant.ID)

		got, err := store.GetTenantByDomain(ctx, "acme.example.com")
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, got.ID)
		assert.Equal(t, "Acme Corp", got.Name)
	})

	t.Run("unknown domain is not found", func(t *testing.T) {
		_, err := store.GetTenantByDomain(ctx, "nobody.example.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresAssetStore(t *testing.T) {
	ctx := context.Background()
	pool := setupTestDB(t)
	store := NewPostgresAssetStore(pool)
	key := models.TenantKey{TenantID: "acme", EngagementID: "eng-1"}

	insertAsset := func(t *testing.T, tenantID, engagementID, name string) string {
		t.Helper()
		id := uuid.New().String()
		_, err := pool.Exec(ctx, `
			INSERT INTO assets (id, tenant_id, engagement_id, name, required_fields_present)
			VALUES ($1, $2, $3, $4, TRUE)`,
			id, tenantID, engagementID, name,
		)
		require.NoError(t, err)
		return id
	}

	a1 := insertAsset(t, key.TenantID, key.EngagementID, "web-01")
	a2 := insertAsset(t, key.TenantID, key.EngagementID, "db-01")
	foreign := insertAsset(t, "globex", key.EngagementID, "web-02")

	t.Run("loads scoped assets and skips foreign ids", func(t *testing.T) {
		assets, err := store.GetAssets(ctx, key, []string{a1, a2, foreign, uuid.New().String()})
		require.NoError(t, err)
		require.Len(t, assets, 2)

		names := []string{assets[0].Name, assets[1].Name}
		assert.ElementsMatch(t, []string{"web-01", "db-01"}, names)
	})

	t.Run("empty id list returns nothing", func(t *testing.T) {
		assets, err := store.GetAssets(ctx, key, nil)
		require.NoError(t, err)
		assert.Empty(t, assets)
	})
}
