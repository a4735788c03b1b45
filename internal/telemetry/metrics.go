// Package telemetry holds the OpenTelemetry instruments for the
// orchestration core.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the core's counters. A nil *Metrics is a no-op, so wiring
// telemetry stays optional.
type Metrics struct {
	flowsStarted   metric.Int64Counter
	flowsCompleted metric.Int64Counter
	phasesExecuted metric.Int64Counter
}

// NewMetrics registers the core's instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("migration-assess/flow")

	flowsStarted, err := meter.Int64Counter("flows_started_total",
		metric.WithDescription("Flows initialized, by kind"))
	if err != nil {
		return nil, err
	}
	flowsCompleted, err := meter.Int64Counter("flows_completed_total",
		metric.WithDescription("Flows finalized, by kind"))
	if err != nil {
		return nil, err
	}
	phasesExecuted, err := meter.Int64Counter("phases_executed_total",
		metric.WithDescription("Phase executions, by kind, phase and outcome"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		flowsStarted:   flowsStarted,
		flowsCompleted: flowsCompleted,
		phasesExecuted: phasesExecuted,
	}, nil
}

// FlowStarted records one initialized flow. Safe on a nil receiver.
func (m *Metrics) FlowStarted(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.flowsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// FlowCompleted records one finalized flow. Safe on a nil receiver.
func (m *Metrics) FlowCompleted(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.flowsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// PhaseExecuted records one phase execution. Safe on a nil receiver.
func (m *Metrics) PhaseExecuted(ctx context.Context, kind, phase, status string) {
	if m == nil {
		return
	}
	m.phasesExecuted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("phase", phase),
		attribute.String("status", status),
	))
}
