// seed prepares a development database: schema, a default tenant, and a
// batch of sample assets to run flows against.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"migration-assess/backend/internal/config"
	"migration-assess/backend/internal/logging"
	"migration-assess/backend/internal/repository"
	"migration-assess/backend/pkg/models"
)

var (
	configFile string
	logger     = logging.NewLogger()
)

func main() {
	root := &cobra.Command{
		Use:   "seed",
		Short: "Seed the migration-assess development database",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	root.AddCommand(schemaCmd(), tenantCmd(), assetsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	return pgxpool.New(ctx, connStr)
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := pool.Exec(ctx, repository.Schema); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
			logger.Info("Schema applied")
			return nil
		},
	}
}

func tenantCmd() *cobra.Command {
	var domain, name string
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Ensure a tenant exists for the given domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := repository.NewPostgresTenantStore(pool)
			tenant, err := store.GetTenantByDomain(ctx, domain)
			if err == nil {
				logger.Info("Found existing tenant", "id", tenant.ID, "domain", domain)
				return nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}

			tenant = &models.Tenant{Name: name, Domain: domain}
			if err := store.CreateTenant(ctx, tenant); err != nil {
				return err
			}
			logger.Info("Created tenant", "id", tenant.ID, "domain", domain)
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "localhost", "Tenant email domain")
	cmd.Flags().StringVar(&name, "name", "Local Dev Tenant", "Tenant display name")
	return cmd
}

func assetsCmd() *cobra.Command {
	var tenantID, engagementID string
	var count int
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Insert sample assets for an engagement",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			environments := []string{"prod", "staging", "dev"}
			kinds := []string{"server", "database", "application"}
			for i := 0; i < count; i++ {
				id := uuid.New().String()
				_, err := pool.Exec(ctx, `
					INSERT INTO assets (id, tenant_id, engagement_id, name, kind, environment,
						assessment_readiness, required_fields_present, questionnaire_state)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
					id, tenantID, engagementID,
					fmt.Sprintf("asset-%03d", i+1),
					kinds[i%len(kinds)],
					environments[i%len(environments)],
					models.ReadinessNotReady,
					i%2 == 0, // every other asset already has its required fields
					models.QuestionnaireNone,
				)
				if err != nil {
					return fmt.Errorf("failed to insert asset %d: %w", i, err)
				}
			}
			logger.Info("Inserted sample assets", "count", count, "tenant", tenantID, "engagement", engagementID)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant id (required)")
	cmd.Flags().StringVar(&engagementID, "engagement", "default", "Engagement id")
	cmd.Flags().IntVar(&count, "count", 12, "Number of assets to insert")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
