package flow

import (
	"migration-assess/backend/internal/logging"
	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// capabilityExecutor is the shared plumbing for executors that delegate
// their sub-tasks to pooled workers.
type capabilityExecutor struct {
	pool   *workers.Pool
	cfg    ExecutorConfig
	logger *logging.Logger
}

func (e *capabilityExecutor) acquire(key models.TenantKey, kind string) (*workers.Worker, func(), error) {
	return e.pool.Acquire(key, kind)
}

// NewExecutors builds the full executor set wired to the given pool, keyed
// by phase. The machine consults this map when dispatching ExecutePhase.
func NewExecutors(pool *workers.Pool, cfg ExecutorConfig, logger *logging.Logger) map[models.Phase]Executor {
	base := capabilityExecutor{pool: pool, cfg: cfg.withDefaults(), logger: logger}
	execs := []Executor{
		&FieldMappingExecutor{capabilityExecutor: base},
		&DataCleansingExecutor{capabilityExecutor: base},
		&InventoryExecutor{capabilityExecutor: base},
		&DependencyAnalysisExecutor{capabilityExecutor: base},
		&TechDebtExecutor{capabilityExecutor: base},
		&EnrichmentExecutor{capabilityExecutor: base},
		&StrategyExecutor{capabilityExecutor: base},
		&WavePlanningExecutor{capabilityExecutor: base},
	}
	m := make(map[models.Phase]Executor, len(execs))
	for _, ex := range execs {
		m[ex.Phase()] = ex
	}
	return m
}
