// Package repository is the persistence gateway for the orchestration core.
// It is the only component touching durable storage. Every read and write is
// scoped by tenant key; a stored flow whose tenant/engagement does not match
// the caller's is rejected with ErrTenantMismatch — this is the one
// authorization boundary the core enforces itself.
package repository

import (
	"context"
	"errors"

	"migration-assess/backend/pkg/models"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an optimistic update raced with a
	// concurrent writer for the same flow.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrTenantMismatch is returned when a record exists but belongs to a
	// different tenant or engagement than the caller.
	ErrTenantMismatch = errors.New("tenant or engagement mismatch")

	// ErrLifecycleMismatch is returned when an update requires the master
	// flow to be in a lifecycle state it is no longer in.
	ErrLifecycleMismatch = errors.New("master flow lifecycle does not permit this update")
)

// FlowStore persists the master/child flow pair. Both records for one flow
// are written in a single transaction; a master without a child, or the
// reverse, is never observable.
type FlowStore interface {
	// CreateFlowPair inserts the master and child records atomically.
	CreateFlowPair(ctx context.Context, master *models.MasterFlow, child *models.ChildFlow) error

	// GetFlow loads the pair by master id, scoped to the tenant key.
	GetFlow(ctx context.Context, key models.TenantKey, masterID string) (*models.MasterFlow, *models.ChildFlow, error)

	// UpdateChildFlow persists child with optimistic locking on
	// child.Version and requires the master lifecycle to be running. On
	// success child.Version is incremented. Returns ErrConflict when the
	// stored version differs and ErrLifecycleMismatch when the master is no
	// longer running, so results of in-flight work on a cancelled flow are
	// discarded at the write boundary.
	UpdateChildFlow(ctx context.Context, key models.TenantKey, child *models.ChildFlow) error

	// SetLifecycle transitions the master lifecycle from one status to
	// another. Returns ErrLifecycleMismatch when the stored status is not
	// `from`.
	SetLifecycle(ctx context.Context, key models.TenantKey, masterID string, from, to models.LifecycleStatus) error

	// CompleteFlow marks the child phase completed and the master lifecycle
	// completed in one transaction, with optimistic locking on the child.
	CompleteFlow(ctx context.Context, key models.TenantKey, child *models.ChildFlow) error

	// ListFlows returns the master flows for a tenant key, newest first.
	ListFlows(ctx context.Context, key models.TenantKey) ([]*models.MasterFlow, error)
}

// AssetStore reads current asset rows. The orchestration core never writes
// assets; readiness mutation belongs to collaborating subsystems.
type AssetStore interface {
	// GetAssets loads the assets with the given ids, scoped to the tenant
	// key. Missing ids are skipped, not errors.
	GetAssets(ctx context.Context, key models.TenantKey, ids []string) ([]*models.Asset, error)
}

// TenantStore resolves and provisions tenants for the auth edge and seeding.
type TenantStore interface {
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
}
