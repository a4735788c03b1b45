package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"migration-assess/backend/pkg/models"
)

// PostgresTenantStore is a PostgreSQL implementation of the TenantStore
// interface.
type PostgresTenantStore struct {
	db *pgxpool.Pool
}

// NewPostgresTenantStore creates a new PostgresTenantStore.
func NewPostgresTenantStore(db *pgxpool.Pool) *PostgresTenantStore {
	return &PostgresTenantStore{db: db}
}

// GetTenantByDomain looks a tenant up by its email domain.
func (s *PostgresTenantStore) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRow(ctx, `
		SELECT id, name, domain, created_at, updated_at FROM tenants WHERE domain = $1`, domain,
	).Scan(&t.ID, &t.Name, &t.Domain, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: tenant for domain %s", ErrNotFound, domain)
		}
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	return &t, nil
}

// CreateTenant inserts a tenant, assigning an id and timestamps.
func (s *PostgresTenantStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO tenants (id, name, domain, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		tenant.ID, tenant.Name, tenant.Domain, tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}
