// Package events publishes flow transition events for dashboards and other
// subscribers. Publishing is best-effort: a nil publisher or nil connection
// skips silently so the core never depends on the event bus being up.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"migration-assess/backend/pkg/models"
)

// FlowTransition is the event emitted on every flow state change.
type FlowTransition struct {
	TenantKey models.TenantKey `json:"tenant_key"`
	FlowID    string           `json:"flow_id"`
	Event     string           `json:"event"`
	Detail    string           `json:"detail,omitempty"`
	At        time.Time        `json:"at"`
}

// Subject returns the NATS subject for this transition, partitioned by
// tenant so subscribers can scope their interest.
func (t FlowTransition) Subject() string {
	return fmt.Sprintf("flows.%s.%s", t.TenantKey.TenantID, t.Event)
}

// Publisher emits flow transitions over NATS.
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher creates a Publisher. nc may be nil, in which case every
// publish is a no-op.
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// PublishTransition emits one transition event. Safe on a nil Publisher.
func (p *Publisher) PublishTransition(ctx context.Context, transition FlowTransition) error {
	if p == nil || p.nc == nil {
		return nil
	}

	data, err := json.Marshal(transition)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}
	return p.nc.Publish(transition.Subject(), data)
}
