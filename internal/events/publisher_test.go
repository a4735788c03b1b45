package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"migration-assess/backend/pkg/models"
)

func TestSubject(t *testing.T) {
	transition := FlowTransition{
		TenantKey: models.TenantKey{TenantID: "acme", EngagementID: "eng-1"},
		FlowID:    "flow-1",
		Event:     "phase_executed",
	}
	assert.Equal(t, "flows.acme.phase_executed", transition.Subject())
}

func TestPublishTransitionNilSafe(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.PublishTransition(context.Background(), FlowTransition{Event: "initialized"}))

	p = NewPublisher(nil)
	assert.NoError(t, p.PublishTransition(context.Background(), FlowTransition{Event: "initialized"}))
}
