package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"migration-assess/backend/internal/api"
	"migration-assess/backend/internal/auth"
	"migration-assess/backend/internal/config"
	"migration-assess/backend/internal/events"
	"migration-assess/backend/internal/flow"
	"migration-assess/backend/internal/logging"
	"migration-assess/backend/internal/mcp"
	"migration-assess/backend/internal/repository"
	"migration-assess/backend/internal/telemetry"
	tlsutil "migration-assess/backend/internal/tls"
	"migration-assess/backend/internal/workers"
)

func main() {
	ctx := context.Background()

	// Parse command line flags
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}

	// Initialize logging
	logger := logging.NewLoggerWithLevel(cfg.LogLevel)
	logger.Info("Starting Migration Assessment Service",
		"environment", cfg.Environment,
		"capability_url", cfg.Capability.URL,
	)

	// Initialize database connection
	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer dbPool.Close()

	logger.Info("Database connected")

	// Initialize repository layer
	flowStore := repository.NewPostgresFlowStore(dbPool, logger)
	assetStore := repository.NewPostgresAssetStore(dbPool)
	tenantStore := repository.NewPostgresTenantStore(dbPool)

	// Worker pool over the external analysis capability. A missing provider
	// URL leaves the pool without a client; phase execution then fails with
	// a worker-unavailable error instead of crashing the process.
	var capability *workers.CapabilityClient
	if cfg.Capability.URL != "" {
		capability = workers.NewCapabilityClient(
			cfg.Capability.URL,
			cfg.Capability.InvokeTimeout,
			workers.RetryConfig{
				MaxAttempts:       cfg.Capability.MaxAttempts,
				BackoffBase:       cfg.Capability.BackoffBase,
				BackoffMultiplier: 2.0,
				MaxBackoff:        cfg.Capability.BackoffMax,
			},
			logger,
		)
	} else {
		logger.Warn("No capability URL configured; phase execution will be unavailable")
	}
	pool := workers.NewPool(capability, cfg.Pool.Capacity, logger)
	defer pool.Shutdown()

	// Optional flow transition events over NATS
	var nc *nats.Conn
	if cfg.Events.NATSURL != "" {
		nc, err = nats.Connect(cfg.Events.NATSURL)
		if err != nil {
			logger.Warn("Failed to connect to NATS, events disabled", "error", err)
			nc = nil
		} else {
			defer nc.Close()
		}
	}
	publisher := events.NewPublisher(nc)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Warn("Failed to register metrics", "error", err)
	}

	executors := flow.NewExecutors(pool, flow.ExecutorConfig{
		MaxConcurrentUnits: cfg.Phases.MaxConcurrentUnits,
		UnitTimeout:        cfg.Phases.UnitTimeout,
	}, logger)
	machine := flow.NewMachine(flowStore, assetStore, executors, publisher, metrics, logger)

	logger.Info("Orchestration core initialized")

	// Create Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("migration-assess"))

	// Initialize authentication
	authz, err := auth.New(ctx, cfg, tenantStore, logger)
	if err != nil {
		logger.Error("Failed to initialize auth", "error", err)
		log.Fatalf("auth initialization failed: %v", err)
	}

	// Register auth handlers
	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))
	e.GET("/health", api.HandleHealth)

	// Mount REST API handlers
	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	api.NewServer(machine).RegisterRoutes(apiGroup)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers behind the same auth middleware
	mcpServer := mcp.NewServer(machine)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp/*", echo.WrapHandler(authz.RequireAuth(mcpHandlers)))

	logger.Info("MCP protocol handlers mounted")

	// Create HTTP server
	addr := ":8080"
	if cfg.TLS.Enable {
		addr = ":8443"
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
				logger.Error("TLS enabled but cert/key file not provided")
				serverErrors <- server.ListenAndServe()
				return
			}
			// generate if missing and hostnames provided
			if _, err := os.Stat(cfg.TLS.CertFile); os.IsNotExist(err) {
				if len(cfg.TLS.Hostnames) > 0 {
					if err := tlsutil.GenerateSelfSignedCert(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames); err != nil {
						logger.Error("Failed to generate self-signed cert", "error", err)
					}
				}
			}
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
