package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"migration-assess/backend/pkg/models"
)

func TestPhaseOrdering(t *testing.T) {
	for kind, order := range phaseOrder {
		t.Run(string(kind), func(t *testing.T) {
			first, err := FirstPhase(kind)
			require.NoError(t, err)
			assert.Equal(t, order[0], first)

			// Walking NextPhase from the first phase visits the whole table
			// in order and stops at the terminal phase.
			current := first
			for i := 1; i < len(order); i++ {
				assert.False(t, IsTerminalPhase(kind, current))
				next, ok, err := NextPhase(kind, current)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, order[i], next)
				current = next
			}

			assert.True(t, IsTerminalPhase(kind, current))
			_, ok, err := NextPhase(kind, current)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestFirstPhaseUnknownKind(t *testing.T) {
	_, err := FirstPhase(models.FlowKind("bogus"))
	assert.ErrorIs(t, err, ErrUnknownFlowKind)
}

func TestNextPhaseUnknownPhase(t *testing.T) {
	_, _, err := NextPhase(models.FlowKindDiscovery, models.PhaseWavePlanning)
	assert.ErrorIs(t, err, ErrUnknownPhase)
}

func TestRequiresSelection(t *testing.T) {
	assert.False(t, RequiresSelection(models.FlowKindDiscovery))
	assert.True(t, RequiresSelection(models.FlowKindCollection))
	assert.True(t, RequiresSelection(models.FlowKindAssessment))
	assert.True(t, RequiresSelection(models.FlowKindPlanning))
}
