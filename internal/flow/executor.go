package flow

import (
	"context"
	"math"
	"sync"
	"time"

	"migration-assess/backend/internal/logging"
	"migration-assess/backend/internal/workers"
	"migration-assess/backend/pkg/models"
)

// Executor runs the automated work for one phase. Implementations acquire
// workers from the pool, fan sub-tasks out concurrently where the phase
// decomposes into independent units, and return the merged result together
// with the status the phase should move to: awaiting_confirmation when a
// human decision is required before advancing (the common case), or
// completed for fully automatic phases.
type Executor interface {
	Phase() models.Phase
	Execute(ctx context.Context, wf *WorkingFlow, input map[string]any) (*models.PhaseResult, models.PhaseStatus, error)
}

// ExecutorConfig bounds sub-task dispatch within a phase.
type ExecutorConfig struct {
	// MaxConcurrentUnits caps how many sub-tasks run at once so a single
	// phase cannot overwhelm the worker pool.
	MaxConcurrentUnits int

	// UnitTimeout bounds one sub-task. A unit exceeding it contributes a
	// failure entry instead of blocking the phase.
	UnitTimeout time.Duration
}

func (c ExecutorConfig) withDefaults() ExecutorConfig {
	if c.MaxConcurrentUnits <= 0 {
		c.MaxConcurrentUnits = 8
	}
	if c.UnitTimeout <= 0 {
		c.UnitTimeout = 90 * time.Second
	}
	return c
}

// unit is one independent sub-task within a phase.
type unit struct {
	key string
	run func(ctx context.Context) (*workers.TaskResult, error)
}

// runUnits dispatches units concurrently, bounded by cfg.MaxConcurrentUnits,
// and waits for all of them. Failures are captured per unit and merged into
// the result slice, never dropped; results come back in unit order.
func runUnits(ctx context.Context, cfg ExecutorConfig, logger *logging.Logger, units []unit) []models.UnitResult {
	cfg = cfg.withDefaults()
	results := make([]models.UnitResult, len(units))
	sem := make(chan struct{}, cfg.MaxConcurrentUnits)

	var wg sync.WaitGroup
	for i, u := range units {
		wg.Add(1)
		go func(i int, u unit) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			unitCtx, cancel := context.WithTimeout(ctx, cfg.UnitTimeout)
			defer cancel()

			res, err := u.run(unitCtx)
			if err != nil {
				logger.Warn("phase sub-task failed", "unit", u.key, "error", err)
				results[i] = models.UnitResult{Key: u.key, OK: false, Error: err.Error()}
				return
			}
			results[i] = models.UnitResult{
				Key:    u.key,
				OK:     true,
				Score:  sanitizeScore(res.Score),
				Detail: res.Output,
			}
		}(i, u)
	}
	wg.Wait()

	return results
}

// mergeResult assembles the persisted phase result from unit outcomes. The
// phase advances to awaiting_confirmation as long as at least one unit
// succeeded; it fails only when every unit failed.
func mergeResult(phase models.Phase, units []models.UnitResult, summary map[string]any) (*models.PhaseResult, models.PhaseStatus) {
	failed := 0
	for _, u := range units {
		if !u.OK {
			failed++
		}
	}

	result := &models.PhaseResult{
		Phase:       phase,
		Units:       units,
		Summary:     summary,
		FailedUnits: failed,
		CompletedAt: time.Now().UTC(),
	}

	if len(units) > 0 && failed == len(units) {
		return result, models.PhaseFailed
	}
	return result, models.PhaseAwaitingConfirmation
}

// sanitizeScore normalizes scores at the core's output boundary. nil stays
// nil (not computed), finite values pass through unchanged — including zero —
// and non-finite values become nil so they never reach a JSON consumer.
func sanitizeScore(score *float64) *float64 {
	if score == nil {
		return nil
	}
	if math.IsNaN(*score) || math.IsInf(*score, 0) {
		return nil
	}
	return score
}
