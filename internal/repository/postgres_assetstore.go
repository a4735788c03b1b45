package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"migration-assess/backend/pkg/models"
)

// PostgresAssetStore is a read-only PostgreSQL view over the asset table,
// which is owned by the import/questionnaire/enrichment subsystems.
type PostgresAssetStore struct {
	db *pgxpool.Pool
}

// NewPostgresAssetStore creates a new PostgresAssetStore.
func NewPostgresAssetStore(db *pgxpool.Pool) *PostgresAssetStore {
	return &PostgresAssetStore{db: db}
}

// GetAssets loads the assets with the given ids, scoped to the tenant key.
// Ids with no matching row are skipped.
func (s *PostgresAssetStore) GetAssets(ctx context.Context, key models.TenantKey, ids []string) ([]*models.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, tenant_id, engagement_id, name, kind, environment,
			assessment_readiness, assessment_readiness_score,
			required_fields_present, questionnaire_state, created_at, updated_at
		FROM assets
		WHERE tenant_id = $1 AND engagement_id = $2 AND id = ANY($3)`,
		key.TenantID, key.EngagementID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		var a models.Asset
		err := rows.Scan(
			&a.ID, &a.TenantID, &a.EngagementID, &a.Name, &a.Kind, &a.Environment,
			&a.Readiness, &a.ReadinessScore,
			&a.RequiredFieldsPresent, &a.Questionnaire, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, &a)
	}
	return assets, rows.Err()
}
